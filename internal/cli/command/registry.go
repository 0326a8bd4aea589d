package command

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

var credentials = []Field{
	{Name: "username", Aliases: []string{"u"}, Prompt: "username", Type: FieldString, Required: true},
	{Name: "password", Aliases: []string{"p"}, Prompt: "password", Type: FieldString, Required: true, Secret: true},
}

// Registry returns all browse commands keyed by "service action".
func Registry() map[string]Command {
	commands := []Command{
		{
			Service:      "user",
			Action:       "register",
			Method:       "POST",
			PathTemplate: "/api/v1/user/register",
			Summary:      "create an account and log in",
			Fields:       credentials,
		},
		{
			Service:      "user",
			Action:       "login",
			Method:       "POST",
			PathTemplate: "/api/v1/user/login",
			Summary:      "log in and store the token",
			Fields:       credentials,
		},
		{
			Service:      "user",
			Action:       "logout",
			Method:       "POST",
			PathTemplate: "/api/v1/user/logout",
			RequiresAuth: true,
			Summary:      "revoke the stored token",
		},
		{
			Service:      "user",
			Action:       "profile",
			Method:       "GET",
			PathTemplate: "/api/v1/user/profile",
			RequiresAuth: true,
			Summary:      "show the logged in user",
		},
		{
			Service:      "problem",
			Action:       "list",
			Method:       "GET",
			PathTemplate: "/api/v1/problems",
			Summary:      "list practice problems",
		},
		{
			Service:      "problem",
			Action:       "get",
			Method:       "GET",
			PathTemplate: "/api/v1/problems/:id",
			Summary:      "show one problem",
			Fields: []Field{
				{Name: "id", Aliases: []string{"problem_id"}, Prompt: "problem_id", Type: FieldString, In: InPath, Required: true},
			},
		},
		{
			Service:      "contest",
			Action:       "list",
			Method:       "GET",
			PathTemplate: "/api/v1/contests",
			Summary:      "list contests",
		},
		{
			Service:      "contest",
			Action:       "get",
			Method:       "GET",
			PathTemplate: "/api/v1/contests/:id",
			Summary:      "show one contest",
			Fields: []Field{
				{Name: "id", Aliases: []string{"contest_id"}, Prompt: "contest_id", Type: FieldString, In: InPath, Required: true},
			},
		},
		{
			Service:      "contest",
			Action:       "join",
			Method:       "POST",
			PathTemplate: "/api/v1/contests/:id/join",
			RequiresAuth: true,
			Summary:      "register for a contest",
			Fields: []Field{
				{Name: "id", Aliases: []string{"contest_id"}, Prompt: "contest_id", Type: FieldString, In: InPath, Required: true},
			},
		},
		{
			Service:      "submission",
			Action:       "list",
			Method:       "GET",
			PathTemplate: "/api/v1/submissions",
			RequiresAuth: true,
			Summary:      "list your submissions",
			Fields: []Field{
				{Name: "problem_id", Aliases: []string{"problem"}, Prompt: "problem_id", Type: FieldString, In: InQuery},
			},
		},
		{
			Service:      "chat",
			Action:       "ask",
			Method:       "POST",
			PathTemplate: "/api/v1/chat",
			RequiresAuth: true,
			Summary:      "ask the assistant",
			Fields: []Field{
				{Name: "message", Aliases: []string{"m", "q"}, Prompt: "message", Type: FieldString, Required: true},
				{Name: "message_file", Type: FieldFile, FileFor: "message"},
			},
		},
	}

	result := make(map[string]Command, len(commands))
	for _, cmd := range commands {
		result[cmd.Key()] = cmd
	}
	return result
}

// Sorted returns the commands ordered by key, for help output.
func Sorted(commands map[string]Command) []Command {
	out := make([]Command, 0, len(commands))
	for _, cmd := range commands {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Missing lists required fields not yet present in params. A field that a
// supplied file will fill counts as present.
func Missing(cmd Command, params Params) []Field {
	params.Canonicalize(cmd.Fields)
	filled := map[string]bool{}
	for _, field := range cmd.Fields {
		if field.Type == FieldFile && field.FileFor != "" && params.Get(field.Name) != "" {
			filled[field.FileFor] = true
		}
	}
	var missing []Field
	for _, field := range cmd.Fields {
		if !field.Required || filled[field.Name] {
			continue
		}
		if strings.TrimSpace(params.Get(field.Name)) == "" {
			missing = append(missing, field)
		}
	}
	return missing
}

// BuildRequest creates HTTP request spec based on command.
func BuildRequest(cmd Command, params Params) (RequestSpec, error) {
	params.Canonicalize(cmd.Fields)
	if err := loadFiles(cmd, params); err != nil {
		return RequestSpec{}, err
	}
	if missing := Missing(cmd, params); len(missing) > 0 {
		return RequestSpec{}, fmt.Errorf("%s is required", missing[0].Name)
	}

	path := cmd.PathTemplate
	query := url.Values{}
	var body map[string]interface{}
	for _, field := range cmd.Fields {
		if field.Type == FieldFile {
			continue
		}
		value := params.Get(field.Name)
		switch field.In {
		case InPath:
			path = strings.ReplaceAll(path, ":"+field.Name, url.PathEscape(value))
		case InQuery:
			if value != "" {
				query.Set(field.Name, value)
			}
		default:
			if body == nil {
				body = map[string]interface{}{}
			}
			if field.Type == FieldInt {
				n, err := ParseInt(value)
				if err != nil {
					return RequestSpec{}, fmt.Errorf("invalid %s: %w", field.Name, err)
				}
				body[field.Name] = n
				continue
			}
			body[field.Name] = value
		}
	}
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}
	return RequestSpec{Method: cmd.Method, Path: path, Body: body}, nil
}

func loadFiles(cmd Command, params Params) error {
	for _, field := range cmd.Fields {
		if field.Type != FieldFile || field.FileFor == "" {
			continue
		}
		path := params.Get(field.Name)
		if path == "" || params.Get(field.FileFor) != "" {
			continue
		}
		data, err := ReadFile(path)
		if err != nil {
			return err
		}
		params.Set(field.FileFor, data)
	}
	return nil
}
