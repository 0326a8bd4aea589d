package repl

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"ojarena/internal/cli/draft"
	"ojarena/internal/contest"
	"ojarena/pkg/errors"
	"ojarena/pkg/utils/contextkey"
	"ojarena/pkg/utils/logger"

	"go.uber.org/zap"
)

func (s *Shell) handleSolve(ctx context.Context, args string) error {
	parts := strings.Fields(args)
	if len(parts) == 0 || len(parts) > 2 {
		s.printLine("usage: solve <contest_id> [problem_id]")
		return nil
	}
	if s.session != nil {
		return errors.BadRequest("already in a contest, leave it first")
	}
	problemID := ""
	if len(parts) == 2 {
		problemID = parts[1]
	}
	opts := []contest.Option{
		contest.WithClock(s.Clock),
		contest.WithNotifier(contest.NotifierFunc(s.onNotice)),
		contest.WithLanguage(s.Language),
	}
	if s.TickInterval > 0 {
		opts = append(opts, contest.WithTickInterval(s.TickInterval))
	}
	sess := contest.New(s.Contests, s.Problems, s.Judge, opts...)
	ctx = context.WithValue(ctx, contextkey.ContestID, parts[0])
	if err := sess.Start(ctx, parts[0], problemID); err != nil {
		sess.Close()
		logger.Warn(ctx, "contest session did not start", zap.String("state", sess.State().String()), zap.Error(err))
		if errors.Is(err, errors.ContestAccessDenied) {
			return fmt.Errorf("%w (use: contest join id=%s)", err, parts[0])
		}
		return err
	}
	s.session = sess
	s.lastReport, s.lastLabel, s.caseIdx = nil, "", 0

	v := sess.Snapshot()
	s.printLine("%s (%s)", v.Contest.Title, v.State)
	if v.State == contest.StateActive {
		s.printLine("time remaining %s", v.Clock())
	}
	s.renderProblem(v)
	return nil
}

func (s *Shell) onNotice(n contest.Notice) {
	s.printLine("\n*** %s", n.Message)
}

// handleSolveCommand reports whether name is a solve-mode command.
func (s *Shell) handleSolveCommand(ctx context.Context, name, rest string) (bool, error) {
	ctx = context.WithValue(ctx, contextkey.ContestID, s.session.Snapshot().Contest.ID)
	switch name {
	case "problems":
		s.renderProblemList(s.session.Snapshot())
	case "open":
		return true, s.openProblem(ctx, rest)
	case "show":
		if rest != "" {
			return false, nil
		}
		s.renderProblem(s.session.Snapshot())
	case "lang":
		if rest == "" {
			v := s.session.Snapshot()
			s.printLine("language: %s", v.Language)
			return true, nil
		}
		lang, err := s.session.SetLanguage(rest)
		if err != nil {
			return true, err
		}
		s.printLine("language set to %s, buffer reloaded", lang)
	case "edit":
		if s.Editor == nil {
			return true, errors.New(errors.EditorFailed).WithMessage("no editor configured")
		}
		edited, err := s.session.Edit(ctx, s.Editor)
		if err != nil {
			return true, err
		}
		s.printLine("buffer updated (%d lines)", lineCount(edited))
	case "load":
		if rest == "" {
			s.printLine("usage: load <file>")
			return true, nil
		}
		data, err := os.ReadFile(rest)
		if err != nil {
			return true, fmt.Errorf("read file failed: %w", err)
		}
		if err := s.session.SetSource(string(data)); err != nil {
			return true, err
		}
		s.printLine("loaded %s (%d lines)", rest, lineCount(string(data)))
	case "code":
		v := s.session.Snapshot()
		s.printLine("--- %s ---", v.Language)
		s.printLine("%s", v.Source)
	case "input":
		text, err := textArg(rest)
		if err != nil {
			return true, err
		}
		if err := s.session.SetCustomInput(text); err != nil {
			return true, err
		}
		s.printLine("custom input set (%d bytes)", len(text))
	case "expect":
		return true, s.setExpected(rest)
	case "run":
		report, err := s.session.Run(ctx)
		if err != nil {
			return true, err
		}
		s.showReport("run", report)
	case "runc":
		res, err := s.session.RunCustom(ctx)
		if err != nil {
			return true, err
		}
		s.renderCustom(res)
	case "submit":
		report, err := s.session.Submit(ctx)
		if err != nil {
			return true, err
		}
		s.showReport("submit", report)
	case "case":
		return true, s.moveCase(rest)
	case "time":
		v := s.session.Snapshot()
		if v.State == contest.StateActive {
			s.printLine("%s remaining (ends %s)", v.Clock(), v.Contest.EndTime.Local().Format("15:04:05"))
		} else {
			s.printLine("contest %s", strings.ToLower(v.State.String()))
		}
	case "draft":
		return true, s.handleDraft(ctx, rest)
	case "leave":
		if s.confirmLeave() {
			s.closeSession()
			s.printLine("left contest")
		}
	default:
		return false, nil
	}
	return true, nil
}

func (s *Shell) openProblem(ctx context.Context, arg string) error {
	if arg == "" {
		s.printLine("usage: open <letter|number>")
		return nil
	}
	idx := contest.ParseLetter(arg)
	if n, err := strconv.Atoi(arg); err == nil {
		idx = n - 1
	}
	if idx < 0 {
		v := s.session.Snapshot()
		idx = v.Contest.IndexOf(arg)
	}
	if err := s.session.SwitchProblem(ctx, idx); err != nil {
		return err
	}
	s.lastReport, s.lastLabel, s.caseIdx = nil, "", 0
	s.renderProblem(s.session.Snapshot())
	return nil
}

func (s *Shell) setExpected(arg string) error {
	if arg == "clear" {
		if err := s.session.SetCustomExpected(nil); err != nil {
			return err
		}
		s.printLine("expected output cleared")
		return nil
	}
	text, err := textArg(arg)
	if err != nil {
		return err
	}
	if err := s.session.SetCustomExpected(&text); err != nil {
		return err
	}
	s.printLine("expected output set")
	return nil
}

func (s *Shell) moveCase(arg string) error {
	if s.lastReport == nil || len(s.lastReport.Cases) == 0 {
		return errors.BadRequest("no results yet, use run or submit")
	}
	n := len(s.lastReport.Cases)
	switch arg {
	case "", "show":
	case "next":
		s.caseIdx = (s.caseIdx + 1) % n
	case "prev":
		s.caseIdx = (s.caseIdx - 1 + n) % n
	default:
		i, err := strconv.Atoi(arg)
		if err != nil || i < 1 || i > n {
			return errors.New(errors.ProblemIndexOutRange).WithMessage(fmt.Sprintf("case must be between 1 and %d", n))
		}
		s.caseIdx = i - 1
	}
	c, _ := s.lastReport.Case(s.caseIdx)
	s.renderCase(s.lastLabel, c, n)
	return nil
}

func (s *Shell) handleDraft(ctx context.Context, arg string) error {
	if s.Drafts == nil {
		return errors.New(errors.DraftStoreError).WithMessage("drafts are disabled")
	}
	v := s.session.Snapshot()
	if v.Problem == nil {
		return errors.New(errors.SessionNotActive)
	}
	switch arg {
	case "save":
		d := draft.Draft{
			ContestID:   v.Contest.ID,
			ProblemID:   v.Problem.ID,
			Language:    v.Language,
			Source:      v.Source,
			CustomInput: v.CustomInput,
			SavedAt:     s.Clock.Now(),
		}
		if err := s.Drafts.Save(ctx, d); err != nil {
			return err
		}
		s.printLine("draft saved")
	case "restore":
		d, err := s.Drafts.Load(ctx, v.Contest.ID, v.Problem.ID)
		if err != nil {
			return err
		}
		lang, err := s.session.RestoreDraft(d.Language, d.Source, d.CustomInput)
		if err != nil {
			return err
		}
		s.printLine("draft from %s restored (%s)", d.SavedAt.Local().Format("2006-01-02 15:04"), lang)
	case "drop":
		if err := s.Drafts.Delete(ctx, v.Contest.ID, v.Problem.ID); err != nil {
			return err
		}
		s.printLine("draft deleted")
	default:
		s.printLine("usage: draft save|restore|drop")
	}
	return nil
}

// textArg reads "@path" from a file; anything else is literal text with \n
// escapes expanded.
func textArg(arg string) (string, error) {
	if strings.HasPrefix(arg, "@") {
		data, err := os.ReadFile(strings.TrimPrefix(arg, "@"))
		if err != nil {
			return "", fmt.Errorf("read file failed: %w", err)
		}
		return string(data), nil
	}
	return strings.ReplaceAll(arg, `\n`, "\n"), nil
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(strings.TrimRight(s, "\n"), "\n") + 1
}
