package contest

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"ojarena/internal/language"

	"github.com/google/shlex"
)

// Editor turns a source buffer into an edited one.
type Editor interface {
	Edit(ctx context.Context, lang, source string) (string, error)
}

// EditorFunc adapts a function to Editor.
type EditorFunc func(ctx context.Context, lang, source string) (string, error)

func (f EditorFunc) Edit(ctx context.Context, lang, source string) (string, error) {
	return f(ctx, lang, source)
}

// ExternalEditor runs a command such as "vim" or "code --wait" on a temp
// file holding the buffer.
type ExternalEditor struct {
	Command string
	TempDir string
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
}

// ResolveEditorCommand picks the configured editor, then $VISUAL, $EDITOR, vi.
func ResolveEditorCommand(configured string) string {
	for _, c := range []string{configured, os.Getenv("VISUAL"), os.Getenv("EDITOR")} {
		if strings.TrimSpace(c) != "" {
			return c
		}
	}
	return "vi"
}

func (e ExternalEditor) Edit(ctx context.Context, lang, source string) (string, error) {
	args, err := shlex.Split(e.Command)
	if err != nil {
		return "", fmt.Errorf("parse editor command: %w", err)
	}
	if len(args) == 0 {
		return "", fmt.Errorf("editor command is empty")
	}

	f, err := os.CreateTemp(e.TempDir, "arena-*"+language.Extension(lang))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)
	if _, err := f.WriteString(source); err != nil {
		f.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	cmd := exec.CommandContext(ctx, args[0], append(args[1:], path)...)
	cmd.Stdin = orDefault(e.Stdin, os.Stdin)
	cmd.Stdout = orDefaultWriter(e.Stdout, os.Stdout)
	cmd.Stderr = orDefaultWriter(e.Stderr, os.Stderr)
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("run %s: %w", args[0], err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read temp file: %w", err)
	}
	return string(data), nil
}

func orDefault(r io.Reader, def io.Reader) io.Reader {
	if r == nil {
		return def
	}
	return r
}

func orDefaultWriter(w io.Writer, def io.Writer) io.Writer {
	if w == nil {
		return def
	}
	return w
}
