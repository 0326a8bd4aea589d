package repl

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"ojarena/internal/api"
	"ojarena/internal/cli/command"
	"ojarena/internal/cli/draft"
	httpclient "ojarena/internal/cli/http"
	"ojarena/internal/cli/state"
	"ojarena/internal/contest"
	"ojarena/internal/judge/verdict"
	"ojarena/pkg/utils/logger"

	"github.com/chzyer/readline"
	"github.com/google/shlex"
	"go.uber.org/zap"
)

const leaveWarning = "contest in progress, progress may be lost"

// LineReader is the terminal input. *readline.Instance satisfies it.
type LineReader interface {
	Readline() (string, error)
	ReadPassword(prompt string) ([]byte, error)
	SetPrompt(prompt string)
}

// Deps wires the shell to the backend and local stores.
type Deps struct {
	Client    *httpclient.Client
	Contests  *api.ContestClient
	Problems  *api.ProblemClient
	Judge     *api.JudgeClient
	Drafts    draft.Store
	Editor    contest.Editor
	Commands  map[string]command.Command
	Tokens    *state.TokenState
	StatePath string

	PrettyJSON   bool
	Language     string
	TickInterval time.Duration
	Clock        contest.Clock
}

// Shell holds REPL state. At most one contest session is open at a time.
type Shell struct {
	Deps
	in LineReader

	outMu sync.Mutex
	out   io.Writer

	session *contest.Session
	// lastReport is the most recent run or submit report browsed by "case".
	lastReport *verdict.Report
	lastLabel  string
	caseIdx    int
	quit       bool
}

func New(deps Deps, in LineReader, out io.Writer) *Shell {
	if deps.Commands == nil {
		deps.Commands = command.Registry()
	}
	if deps.Tokens == nil {
		deps.Tokens = &state.TokenState{}
	}
	if deps.Clock == nil {
		deps.Clock = contest.SystemClock{}
	}
	return &Shell{Deps: deps, in: in, out: out}
}

// Run reads commands until exit, end of input or ctx cancellation. A reader
// that is an io.Closer is closed on cancellation to unblock Readline. Any
// open session is closed before returning.
func (s *Shell) Run(ctx context.Context) error {
	defer s.closeSession()
	if closer, ok := s.in.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { _ = closer.Close() })
		defer stop()
	}
	for !s.quit {
		if s.stopped(ctx) {
			return nil
		}
		s.in.SetPrompt(s.prompt())
		line, err := s.in.Readline()
		if s.stopped(ctx) {
			return nil
		}
		if stderrors.Is(err, readline.ErrInterrupt) {
			s.interrupt()
			continue
		}
		if stderrors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input failed: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		s.Execute(ctx, line)
	}
	return nil
}

func (s *Shell) stopped(ctx context.Context) bool {
	if ctx.Err() == nil {
		return false
	}
	logger.Info(ctx, "shell stopped", zap.Error(context.Cause(ctx)))
	return true
}

// Execute runs one command line. A panic inside a command is reported as a
// generic failure and the shell keeps going.
func (s *Shell) Execute(ctx context.Context, line string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "command panicked",
				zap.String("line", firstWord(line)),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			s.printLine("error: command failed unexpectedly")
		}
	}()
	if err := s.dispatch(ctx, line); err != nil {
		s.printError(err)
	}
}

func (s *Shell) dispatch(ctx context.Context, line string) error {
	name, rest := splitCommand(line)
	switch name {
	case "exit", "quit":
		if s.confirmLeave() {
			s.printLine("bye")
			s.quit = true
		}
		return nil
	case "help":
		s.printHelp()
		return nil
	case "set":
		return s.handleSet(rest)
	case "whoami":
		s.showToken()
		return nil
	case "solve":
		return s.handleSolve(ctx, rest)
	}
	if s.session != nil {
		if handled, err := s.handleSolveCommand(ctx, name, rest); handled {
			return err
		}
	}
	if name == "show" && rest == "config" {
		s.showConfig()
		return nil
	}
	return s.handleBrowse(ctx, line)
}

func (s *Shell) interrupt() {
	if s.session == nil {
		s.printLine("(use exit to quit)")
		return
	}
	if s.confirmLeave() {
		s.closeSession()
		s.printLine("left contest")
	}
}

// confirmLeave asks before abandoning an active contest. It never asks once
// the contest is locked or access was denied.
func (s *Shell) confirmLeave() bool {
	if s.session == nil || !s.session.ExitGuarded() {
		return true
	}
	s.in.SetPrompt(leaveWarning + ". leave? [y/N] ")
	answer, err := s.in.Readline()
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

func (s *Shell) closeSession() {
	if s.session == nil {
		return
	}
	s.session.Close()
	s.session = nil
	s.lastReport = nil
	s.caseIdx = 0
}

func (s *Shell) prompt() string {
	if s.session == nil {
		return "arena> "
	}
	v := s.session.Snapshot()
	switch v.State {
	case contest.StateActive:
		return fmt.Sprintf("%s [%s] %s> ", v.Contest.ID, v.Clock(), letterOf(v))
	case contest.StateLocked:
		return fmt.Sprintf("%s [ended] %s> ", v.Contest.ID, letterOf(v))
	default:
		return fmt.Sprintf("%s [%s]> ", v.Contest.ID, strings.ToLower(v.State.String()))
	}
}

func letterOf(v contest.View) string {
	if v.Problem == nil {
		return "-"
	}
	return contest.Letter(v.Selected)
}

func (s *Shell) handleSet(args string) error {
	parts := strings.Fields(args)
	if len(parts) < 2 {
		s.printLine("usage: set base <url> | timeout <dur> | token <access_token>")
		return nil
	}
	switch parts[0] {
	case "base":
		s.Client.SetBaseURL(parts[1])
		s.printLine("base set to %s", parts[1])
	case "timeout":
		dur, err := time.ParseDuration(parts[1])
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		s.Client.SetTimeout(dur)
		s.printLine("timeout set to %s", dur)
	case "token":
		s.Tokens.AccessToken = parts[1]
		if claims, err := s.Tokens.Inspect(); err == nil {
			s.Tokens.Username = claims.Username
			s.Tokens.AccessExpiresAt = claims.ExpiresAt
		}
		if err := state.Save(s.StatePath, *s.Tokens); err != nil {
			return fmt.Errorf("save token failed: %w", err)
		}
		s.printLine("token updated")
	default:
		s.printLine("unknown set command")
	}
	return nil
}

func (s *Shell) showToken() {
	if s.Tokens.AccessToken == "" {
		s.printLine("not logged in")
		return
	}
	token := s.Tokens.AccessToken
	if len(token) > 12 {
		token = token[:6] + "..." + token[len(token)-4:]
	}
	name := s.Tokens.Username
	if name == "" {
		name = "<unknown>"
	}
	status := "valid"
	if s.Tokens.Expired(s.Clock.Now()) {
		status = "expired"
	}
	s.printLine("user: %s  token: %s (%s)", name, token, status)
}

func (s *Shell) showConfig() {
	s.printLine("base: %s", s.Client.BaseURL())
	s.printLine("tokenStatePath: %s", s.StatePath)
	s.printLine("language: %s", s.Language)
}

func (s *Shell) printHelp() {
	s.printLine("browse: <service> <action> key=value ...")
	for _, cmd := range command.Sorted(s.Commands) {
		s.printLine("  %-18s %s", cmd.Key(), cmd.Summary)
	}
	s.printLine("contest: solve <contest_id> [problem_id]")
	s.printLine("  problems | open <A|n> | show | lang <name> | edit | load <file> | code")
	s.printLine("  input <text>|@file | expect <text>|@file|clear | run | runc | submit")
	s.printLine("  case <n>|next|prev | time | draft save|restore|drop | leave")
	s.printLine("system: help | exit | whoami | show config | set base|timeout|token")
}

func (s *Shell) printLine(format string, args ...interface{}) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	_, _ = fmt.Fprintf(s.out, format+"\n", args...)
}

func splitCommand(line string) (string, string) {
	line = strings.TrimSpace(line)
	idx := strings.IndexAny(line, " \t")
	if idx < 0 {
		return line, ""
	}
	return line[:idx], strings.TrimSpace(line[idx+1:])
}

func firstWord(line string) string {
	name, _ := splitCommand(line)
	return name
}

func splitArgs(rest string) ([]string, error) {
	tokens, err := shlex.Split(rest)
	if err != nil {
		return nil, fmt.Errorf("parse command failed: %w", err)
	}
	return tokens, nil
}
