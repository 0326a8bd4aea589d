package repl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ojarena/internal/cli/command"
	httpclient "ojarena/internal/cli/http"
	"ojarena/internal/cli/state"
	"ojarena/pkg/errors"
	"ojarena/pkg/utils/logger"

	"go.uber.org/zap"
)

// handleBrowse runs a registry command: "<service> <action> key=value ...".
func (s *Shell) handleBrowse(ctx context.Context, line string) error {
	tokens, err := splitArgs(line)
	if err != nil {
		return err
	}
	if len(tokens) < 2 {
		return fmt.Errorf("unknown command %q, type help", line)
	}
	cmd, ok := s.Commands[tokens[0]+" "+tokens[1]]
	if !ok {
		return fmt.Errorf("unknown command: %s %s", tokens[0], tokens[1])
	}
	params, err := command.ParseArgs(tokens[2:])
	if err != nil {
		return err
	}
	if cmd.RequiresAuth && s.Tokens.AccessToken == "" {
		return errors.New(errors.Unauthorized).WithMessage("login required, use: user login")
	}
	if err := s.promptMissing(cmd, params); err != nil {
		return err
	}
	req, err := command.BuildRequest(cmd, params)
	if err != nil {
		return err
	}
	var body []byte
	if req.Body != nil {
		if body, err = json.Marshal(req.Body); err != nil {
			return fmt.Errorf("marshal request body failed: %w", err)
		}
	}
	resp, err := s.Client.Do(ctx, req.Method, req.Path, nil, body)
	if err != nil {
		return err
	}
	data, err := httpclient.DecodeEnvelope(resp)
	if err != nil {
		return err
	}
	logger.Debug(ctx, "browse command done",
		zap.String("command", cmd.Key()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", resp.Duration),
	)
	s.updateToken(cmd, data)
	s.renderData(cmd, data)
	return nil
}

func (s *Shell) promptMissing(cmd command.Command, params command.Params) error {
	for _, field := range command.Missing(cmd, params) {
		value, err := s.promptValue(field)
		if err != nil {
			return err
		}
		params.Set(field.Name, value)
	}
	return nil
}

func (s *Shell) promptValue(field command.Field) (string, error) {
	prompt := field.Prompt + ": "
	if field.Secret {
		value, err := s.in.ReadPassword(prompt)
		if err != nil {
			return "", fmt.Errorf("read input failed: %w", err)
		}
		return strings.TrimSpace(string(value)), nil
	}
	s.in.SetPrompt(prompt)
	value, err := s.in.Readline()
	if err != nil {
		return "", fmt.Errorf("read input failed: %w", err)
	}
	return strings.TrimSpace(value), nil
}

type authData struct {
	Username         string    `json:"username"`
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// updateToken persists tokens from login/register and clears them on logout.
func (s *Shell) updateToken(cmd command.Command, data json.RawMessage) {
	if cmd.Service != "user" {
		return
	}
	switch cmd.Action {
	case "login", "register":
		var auth authData
		if err := json.Unmarshal(data, &auth); err != nil || auth.AccessToken == "" {
			return
		}
		*s.Tokens = state.TokenState{
			AccessToken:      auth.AccessToken,
			RefreshToken:     auth.RefreshToken,
			AccessExpiresAt:  auth.AccessExpiresAt,
			RefreshExpiresAt: auth.RefreshExpiresAt,
			Username:         auth.Username,
		}
		if err := state.Save(s.StatePath, *s.Tokens); err != nil {
			s.printLine("warning: save token failed: %v", err)
		}
	case "logout":
		*s.Tokens = state.TokenState{}
		if err := state.Clear(s.StatePath); err != nil {
			s.printLine("warning: clear token failed: %v", err)
		}
	}
}

func (s *Shell) renderData(cmd command.Command, data json.RawMessage) {
	if cmd.Service == "user" && (cmd.Action == "login" || cmd.Action == "register") {
		s.printLine("logged in as %s", s.Tokens.Username)
		return
	}
	if len(data) == 0 || string(data) == "null" {
		s.printLine("ok")
		return
	}
	if cmd.Service == "chat" {
		var reply struct {
			Reply string `json:"reply"`
		}
		if err := json.Unmarshal(data, &reply); err == nil && reply.Reply != "" {
			s.printLine("%s", reply.Reply)
			return
		}
	}
	if s.PrettyJSON {
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err == nil {
			s.printLine("%s", buf.String())
			return
		}
	}
	s.printLine("%s", string(data))
}

func (s *Shell) printError(err error) {
	if e := errors.GetError(err); e != nil {
		switch e.Code {
		case errors.NetworkError:
			s.printLine("error: cannot reach %s: %v", s.Client.BaseURL(), err)
			return
		case errors.Unauthorized, errors.TokenExpired, errors.TokenInvalid:
			s.printLine("error: %v (try: user login)", err)
			return
		}
	}
	s.printLine("error: %v", err)
}
