package contest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ojarena/internal/judge/verdict"
	"ojarena/internal/language"
	"ojarena/pkg/errors"
	"ojarena/pkg/utils/contextkey"
	"ojarena/pkg/utils/logger"

	"go.uber.org/zap"
)

// DefaultTickInterval is the countdown refresh period.
const DefaultTickInterval = time.Second

// ContestClient fetches and joins contests.
type ContestClient interface {
	Get(ctx context.Context, contestID string) (*Contest, error)
	Join(ctx context.Context, contestID string) error
}

// ProblemClient fetches problem details.
type ProblemClient interface {
	Get(ctx context.Context, problemID string) (*Problem, error)
}

// Submission is the code sent to the judge.
type Submission struct {
	Code      string
	Language  string
	ContestID string
}

// JudgeClient runs and submits code.
type JudgeClient interface {
	Run(ctx context.Context, problemID string, sub Submission) ([]verdict.RawResult, error)
	RunCustom(ctx context.Context, sub Submission, input string) (verdict.RawResult, error)
	Submit(ctx context.Context, problemID string, sub Submission) ([]verdict.RawResult, error)
}

// State is the session lifecycle state.
type State int

const (
	StateLoading State = iota
	StateActive
	StateLocked
	StateAccessDenied
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateActive:
		return "active"
	case StateLocked:
		return "locked"
	case StateAccessDenied:
		return "access denied"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// NoticeKind classifies one-time user notifications.
type NoticeKind int

const (
	NoticeContestEnded NoticeKind = iota + 1
)

// Notice is a one-time message for the user.
type Notice struct {
	Kind    NoticeKind
	Message string
}

// Notifier receives session notices. It is called without the session lock
// held, possibly from the ticker goroutine, and must not call Close.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// Option configures a Session.
type Option func(*Session)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithTickInterval sets the countdown period. Zero disables the background
// ticker; Tick must then be driven by the caller.
func WithTickInterval(d time.Duration) Option {
	return func(s *Session) { s.tickInterval = d }
}

// WithNotifier sets the notice receiver.
func WithNotifier(n Notifier) Option {
	return func(s *Session) { s.notifier = n }
}

// WithLanguage sets the preferred editor language.
func WithLanguage(lang string) Option {
	return func(s *Session) { s.language = language.Canonical(lang) }
}

// Session is one open contest solving view. All state is guarded by mu;
// network calls and notifications happen outside the lock.
type Session struct {
	contests ContestClient
	problems ProblemClient
	judge    JudgeClient

	clock        Clock
	tickInterval time.Duration
	notifier     Notifier

	mu             sync.Mutex
	state          State
	closed         bool
	contest        *Contest
	problem        *Problem
	selected       int
	remaining      int64
	language       string
	source         string
	customInput    string
	customExpected *string

	lastRun    *verdict.Report
	lastSubmit *verdict.Report
	lastCustom *verdict.CustomResult

	// seq orders requests; problemGen invalidates responses for a previous problem.
	seq           uint64
	problemGen    uint64
	lastRunSeq    uint64
	lastSubmitSeq uint64
	lastCustomSeq uint64

	stopTicker context.CancelFunc
	tickerDone chan struct{}
}

// New creates a session in the Loading state.
func New(contests ContestClient, problems ProblemClient, judge JudgeClient, opts ...Option) *Session {
	s := &Session{
		contests:     contests,
		problems:     problems,
		judge:        judge,
		clock:        SystemClock{},
		tickInterval: DefaultTickInterval,
		language:     language.Default,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.language == "" {
		s.language = language.Default
	}
	return s
}

// Start loads the contest and the initial problem. A non-participant ends in
// AccessDenied without starting the timer or fetching any problem. A contest
// that already ended goes straight to Locked.
func (s *Session) Start(ctx context.Context, contestID, problemID string) error {
	s.mu.Lock()
	if s.state != StateLoading || s.closed {
		s.mu.Unlock()
		return errors.Newf(errors.SessionNotActive, "session already started")
	}
	s.mu.Unlock()

	ctx = context.WithValue(ctx, contextkey.ContestID, contestID)
	c, err := s.contests.Get(ctx, contestID)
	if err != nil {
		s.setState(StateFailed)
		logger.Warn(ctx, "load contest failed", zap.Error(err))
		return fmt.Errorf("load contest: %w", err)
	}
	remaining := SecondsRemaining(c.EndTime, s.clock.Now())

	s.mu.Lock()
	s.contest = c
	s.remaining = remaining
	if !c.IsParticipant {
		s.state = StateAccessDenied
		s.mu.Unlock()
		logger.Info(ctx, "contest access denied")
		return errors.New(errors.ContestAccessDenied).WithDetail("contest_id", contestID)
	}
	s.mu.Unlock()

	index := 0
	if problemID != "" {
		if i := c.IndexOf(problemID); i >= 0 {
			index = i
		}
	}

	var p *Problem
	if len(c.Problems) > 0 {
		p, err = s.problems.Get(ctx, c.Problems[index].ID)
		if err != nil {
			s.setState(StateFailed)
			logger.Warn(ctx, "load problem failed", zap.String("problem_id", c.Problems[index].ID), zap.Error(err))
			return fmt.Errorf("load problem: %w", err)
		}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.SessionInactive("start")
	}
	s.selectProblemLocked(index, p)
	var notice *Notice
	if remaining == 0 {
		n := s.lockLocked()
		notice = &n
	} else {
		s.state = StateActive
		s.startTickerLocked()
	}
	s.mu.Unlock()

	logger.Info(ctx, "contest session started",
		zap.Int64("seconds_remaining", remaining),
		zap.Int("problem_index", index),
	)
	if notice != nil {
		s.emit(*notice)
	}
	return nil
}

// Tick recomputes the remaining time from the fixed end time. Reaching zero
// locks the session for good and emits the contest-ended notice once.
func (s *Session) Tick() {
	s.mu.Lock()
	if s.state != StateActive || s.closed {
		s.mu.Unlock()
		return
	}
	s.remaining = SecondsRemaining(s.contest.EndTime, s.clock.Now())
	if s.remaining > 0 {
		s.mu.Unlock()
		return
	}
	notice := s.lockLocked()
	s.mu.Unlock()
	s.emit(notice)
}

// Close stops the ticker. It is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	done := s.haltTickerLocked()
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// ExitGuarded reports whether leaving should ask for confirmation.
func (s *Session) ExitGuarded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateActive && !s.closed
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Locked reports whether the contest time is over for this session.
func (s *Session) Locked() bool {
	return s.State() == StateLocked
}

// Remaining returns the last computed seconds remaining.
func (s *Session) Remaining() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// TimerRunning reports whether the background ticker is live.
func (s *Session) TimerRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tickerDone != nil
}

// View is a consistent copy of the session for rendering.
type View struct {
	State            State
	Contest          Contest
	Selected         int
	Problem          *Problem
	SecondsRemaining int64
	Language         string
	Source           string
	CustomInput      string
	CustomExpected   *string
	LastRun          *verdict.Report
	LastSubmit       *verdict.Report
	LastCustom       *verdict.CustomResult
	TimerRunning     bool
}

// Clock renders the remaining time as HH:MM:SS.
func (v View) Clock() string { return FormatClock(v.SecondsRemaining) }

// ProblemLabel returns "A. Title" for the selected problem.
func (v View) ProblemLabel() string {
	if v.Problem == nil {
		return ""
	}
	return Letter(v.Selected) + ". " + v.Problem.Title
}

// Snapshot copies the session state. Problem and results are shared
// read-only values.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		State:            s.state,
		Selected:         s.selected,
		Problem:          s.problem,
		SecondsRemaining: s.remaining,
		Language:         s.language,
		Source:           s.source,
		CustomInput:      s.customInput,
		LastRun:          s.lastRun,
		LastSubmit:       s.lastSubmit,
		LastCustom:       s.lastCustom,
		TimerRunning:     s.tickerDone != nil,
	}
	if s.contest != nil {
		v.Contest = *s.contest
	}
	if s.customExpected != nil {
		e := *s.customExpected
		v.CustomExpected = &e
	}
	return v
}

// SwitchProblem selects another problem and reseeds the editor. Unsaved
// edits are not carried over. Run results and custom buffers are cleared.
func (s *Session) SwitchProblem(ctx context.Context, index int) error {
	s.mu.Lock()
	if err := s.requireActiveLocked("switch problem"); err != nil {
		s.mu.Unlock()
		return err
	}
	if index < 0 || index >= len(s.contest.Problems) {
		n := len(s.contest.Problems)
		s.mu.Unlock()
		return errors.Newf(errors.ProblemIndexOutRange, "problem index %d out of range [0, %d)", index, n)
	}
	ref := s.contest.Problems[index]
	s.mu.Unlock()

	ctx = context.WithValue(ctx, contextkey.ProblemID, ref.ID)
	p, err := s.problems.Get(ctx, ref.ID)
	if err != nil {
		logger.Warn(ctx, "switch problem failed", zap.Error(err))
		return fmt.Errorf("load problem: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireActiveLocked("switch problem"); err != nil {
		return err
	}
	s.selectProblemLocked(index, p)
	return nil
}

// SetLanguage changes the editor language and reloads the buffer with that
// language's starter code, or a placeholder when the problem has none.
func (s *Session) SetLanguage(lang string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireActiveLocked("change language"); err != nil {
		return "", err
	}
	want := language.Canonical(lang)
	if want == "" {
		return "", errors.BadRequest("language is required")
	}
	s.language = want
	s.source = language.Placeholder(want)
	if s.problem != nil {
		if code, ok := language.Index(s.problem.StarterCode)[want]; ok {
			s.source = code
		}
	}
	return s.language, nil
}

// RestoreDraft applies a saved language, buffer and custom input in one step.
// An empty language keeps the current one. Nothing changes unless the
// session is active.
func (s *Session) RestoreDraft(lang, src, customInput string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireActiveLocked("restore draft"); err != nil {
		return "", err
	}
	if want := language.Canonical(lang); want != "" {
		s.language = want
	}
	s.source = src
	if customInput != "" {
		s.customInput = customInput
	}
	return s.language, nil
}

// SetSource replaces the editing buffer.
func (s *Session) SetSource(src string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireActiveLocked("edit"); err != nil {
		return err
	}
	s.source = src
	return nil
}

// Edit hands the buffer to an external editor. The edited text is returned
// even when it could not be applied so the caller may keep it elsewhere.
// The buffer is left untouched on any failure.
func (s *Session) Edit(ctx context.Context, editor Editor) (string, error) {
	s.mu.Lock()
	if err := s.requireActiveLocked("edit"); err != nil {
		s.mu.Unlock()
		return "", err
	}
	lang, src := s.language, s.source
	s.mu.Unlock()

	edited, err := editor.Edit(ctx, lang, src)
	if err != nil {
		return "", errors.Wrapf(err, errors.EditorFailed, "editor failed")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireActiveLocked("edit"); err != nil {
		return edited, err
	}
	s.source = edited
	return edited, nil
}

// SetCustomInput sets the stdin used by RunCustom.
func (s *Session) SetCustomInput(input string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireActiveLocked("set custom input"); err != nil {
		return err
	}
	s.customInput = input
	return nil
}

// SetCustomExpected sets or clears (nil) the expected output for RunCustom.
func (s *Session) SetCustomExpected(expected *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireActiveLocked("set expected output"); err != nil {
		return err
	}
	if expected != nil {
		v := *expected
		expected = &v
	}
	s.customExpected = expected
	return nil
}

// Run evaluates the buffer against the problem's visible test cases.
func (s *Session) Run(ctx context.Context) (verdict.Report, error) {
	req, err := s.prepare("run")
	if err != nil {
		return verdict.Report{}, err
	}
	ctx = req.context(ctx)
	raws, err := s.judge.Run(ctx, req.problem.ID, req.sub)
	if err != nil {
		logger.Warn(ctx, "run failed", zap.Error(err))
		return verdict.Report{}, fmt.Errorf("run: %w", err)
	}
	report := verdict.Aggregate(fillFromVisible(raws, req.problem.VisibleTestCases))

	s.mu.Lock()
	if req.gen == s.problemGen && req.seq > s.lastRunSeq {
		s.lastRun, s.lastRunSeq = &report, req.seq
	}
	s.mu.Unlock()
	logger.Info(ctx, "run finished", zap.String("overall", report.Overall.String()), zap.Int("cases", len(report.Cases)))
	return report, nil
}

// RunCustom evaluates the buffer against the custom input.
func (s *Session) RunCustom(ctx context.Context) (verdict.CustomResult, error) {
	req, err := s.prepare("run")
	if err != nil {
		return verdict.CustomResult{}, err
	}
	ctx = req.context(ctx)
	raw, err := s.judge.RunCustom(ctx, req.sub, req.input)
	if err != nil {
		logger.Warn(ctx, "custom run failed", zap.Error(err))
		return verdict.CustomResult{}, fmt.Errorf("run custom input: %w", err)
	}
	res := verdict.Custom(raw, req.expected)

	s.mu.Lock()
	if req.gen == s.problemGen && req.seq > s.lastCustomSeq {
		s.lastCustom, s.lastCustomSeq = &res, req.seq
	}
	s.mu.Unlock()
	return res, nil
}

// Submit evaluates the buffer against all test cases.
func (s *Session) Submit(ctx context.Context) (verdict.Report, error) {
	req, err := s.prepare("submit")
	if err != nil {
		return verdict.Report{}, err
	}
	ctx = req.context(ctx)
	raws, err := s.judge.Submit(ctx, req.problem.ID, req.sub)
	if err != nil {
		logger.Warn(ctx, "submit failed", zap.Error(err))
		return verdict.Report{}, fmt.Errorf("submit: %w", err)
	}
	report := verdict.Aggregate(raws)

	s.mu.Lock()
	if req.gen == s.problemGen && req.seq > s.lastSubmitSeq {
		s.lastSubmit, s.lastSubmitSeq = &report, req.seq
	}
	s.mu.Unlock()
	logger.Info(ctx, "submit finished", zap.String("overall", report.Overall.String()), zap.Int("cases", len(report.Cases)))
	return report, nil
}

type judgeRequest struct {
	contestID string
	problem   *Problem
	sub       Submission
	input     string
	expected  *string
	seq       uint64
	gen       uint64
}

func (r judgeRequest) context(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, contextkey.ContestID, r.contestID)
	return context.WithValue(ctx, contextkey.ProblemID, r.problem.ID)
}

func (s *Session) prepare(action string) (judgeRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireActiveLocked(action); err != nil {
		return judgeRequest{}, err
	}
	if s.problem == nil {
		return judgeRequest{}, errors.Newf(errors.ProblemNotFound, "no problem selected")
	}
	s.seq++
	return judgeRequest{
		contestID: s.contest.ID,
		problem:   s.problem,
		sub:       Submission{Code: s.source, Language: s.language, ContestID: s.contest.ID},
		input:     s.customInput,
		expected:  s.customExpected,
		seq:       s.seq,
		gen:       s.problemGen,
	}, nil
}

// fillFromVisible supplies stdin and expected output from the problem's
// visible cases when the judge left them out.
func fillFromVisible(raws []verdict.RawResult, cases []TestCase) []verdict.RawResult {
	if len(raws) != len(cases) {
		return raws
	}
	out := make([]verdict.RawResult, len(raws))
	for i, raw := range raws {
		if raw.ExpectedOutput == nil {
			expected := cases[i].Output
			raw.ExpectedOutput = &expected
		}
		if raw.Stdin == nil {
			input := cases[i].Input
			raw.Stdin = &input
		}
		out[i] = raw
	}
	return out
}

func (s *Session) requireActiveLocked(action string) error {
	if s.closed || s.state != StateActive {
		return errors.SessionInactive(action)
	}
	return nil
}

func (s *Session) selectProblemLocked(index int, p *Problem) {
	s.selected = index
	s.problem = p
	var starters []language.StarterCode
	if p != nil {
		starters = p.StarterCode
	}
	s.language, s.source = language.Seed(s.language, starters)
	s.lastRun, s.lastSubmit, s.lastCustom = nil, nil, nil
	s.customInput, s.customExpected = "", nil
	s.problemGen++
}

func (s *Session) lockLocked() Notice {
	s.state = StateLocked
	s.remaining = 0
	s.haltTickerLocked()
	return Notice{
		Kind:    NoticeContestEnded,
		Message: "Contest has ended. Editing, running and submitting are now disabled.",
	}
}

func (s *Session) startTickerLocked() {
	if s.tickInterval <= 0 || s.tickerDone != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	ticker := s.clock.NewTicker(s.tickInterval)
	s.stopTicker, s.tickerDone = cancel, done
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C():
				s.Tick()
			}
		}
	}()
}

// haltTickerLocked cancels the ticker without waiting, since it may run on
// the ticker goroutine itself. The returned channel closes once it exits.
func (s *Session) haltTickerLocked() chan struct{} {
	if s.stopTicker == nil {
		return nil
	}
	s.stopTicker()
	done := s.tickerDone
	s.stopTicker, s.tickerDone = nil, nil
	return done
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) emit(n Notice) {
	logger.Info(context.Background(), "session notice", zap.Int("kind", int(n.Kind)), zap.String("message", n.Message))
	if s.notifier != nil {
		s.notifier.Notify(n)
	}
}
