// Package language canonicalizes language tags and seeds the editing buffer
// from a problem's starter code.
package language

import "strings"

// Canonical language identifiers.
const (
	CPP        = "cpp"
	C          = "c"
	Java       = "java"
	Python     = "python"
	JavaScript = "javascript"
	TypeScript = "typescript"
	Go         = "go"
	Rust       = "rust"
	CSharp     = "csharp"
	Kotlin     = "kotlin"
	Ruby       = "ruby"
)

// Default is used when neither the user nor the config picks a language.
const Default = CPP

var aliases = map[string]string{
	"c++":     CPP,
	"cxx":     CPP,
	"cc":      CPP,
	"py":      Python,
	"python3": Python,
	"py3":     Python,
	"js":      JavaScript,
	"node":    JavaScript,
	"nodejs":  JavaScript,
	"ts":      TypeScript,
	"golang":  Go,
	"rs":      Rust,
	"c#":      CSharp,
	"cs":      CSharp,
	"kt":      Kotlin,
	"rb":      Ruby,
}

var extensions = map[string]string{
	CPP:        ".cpp",
	C:          ".c",
	Java:       ".java",
	Python:     ".py",
	JavaScript: ".js",
	TypeScript: ".ts",
	Go:         ".go",
	Rust:       ".rs",
	CSharp:     ".cs",
	Kotlin:     ".kt",
	Ruby:       ".rb",
}

// Canonical maps a user or server supplied tag to one lower-case identifier.
// "Python", "python" and "py" all become "python". Unknown tags are lower-cased.
func Canonical(tag string) string {
	t := strings.ToLower(strings.TrimSpace(tag))
	if c, ok := aliases[t]; ok {
		return c
	}
	return t
}

// CommentPrefix returns the single-line comment token of lang.
func CommentPrefix(lang string) string {
	switch Canonical(lang) {
	case Python, Ruby, "shell", "bash", "r", "perl":
		return "#"
	case "sql", "haskell", "lua":
		return "--"
	default:
		return "//"
	}
}

// Extension returns a source file extension for lang, ".txt" when unknown.
func Extension(lang string) string {
	if ext, ok := extensions[Canonical(lang)]; ok {
		return ext
	}
	return ".txt"
}

// Placeholder is the buffer used when no starter code exists at all.
func Placeholder(lang string) string {
	return CommentPrefix(lang) + " Write your code here\n"
}
