package contest

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"ojarena/internal/judge/verdict"
	"ojarena/internal/language"
	"ojarena/pkg/errors"
)

type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers int
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) NewTicker(time.Duration) Ticker {
	c.mu.Lock()
	c.tickers++
	c.mu.Unlock()
	return &fakeTicker{ch: make(chan time.Time)}
}

type fakeTicker struct{ ch chan time.Time }

func (t *fakeTicker) C() <-chan time.Time { return t.ch }
func (t *fakeTicker) Stop()               {}

type fakeBackend struct {
	mu           sync.Mutex
	contest      *Contest
	problems     map[string]*Problem
	contestErr   error
	problemErr   error
	judgeErr     error
	problemCalls int
	judgeCalls   int
	results      []verdict.RawResult
	onRun        func()
	lastSub      Submission
}

func (b *fakeBackend) Get(ctx context.Context, id string) (*Contest, error) {
	if b.contestErr != nil {
		return nil, b.contestErr
	}
	c := *b.contest
	return &c, nil
}

func (b *fakeBackend) Join(ctx context.Context, id string) error {
	b.contest.IsParticipant = true
	return nil
}

type problemSource struct{ b *fakeBackend }

func (p problemSource) Get(ctx context.Context, id string) (*Problem, error) {
	p.b.mu.Lock()
	defer p.b.mu.Unlock()
	p.b.problemCalls++
	if p.b.problemErr != nil {
		return nil, p.b.problemErr
	}
	pr, ok := p.b.problems[id]
	if !ok {
		return nil, errors.NotFoundError("problem")
	}
	return pr, nil
}

func (b *fakeBackend) Run(ctx context.Context, problemID string, sub Submission) ([]verdict.RawResult, error) {
	b.mu.Lock()
	b.judgeCalls++
	b.lastSub = sub
	hook := b.onRun
	b.mu.Unlock()
	if hook != nil {
		hook()
	}
	if b.judgeErr != nil {
		return nil, b.judgeErr
	}
	return b.results, nil
}

func (b *fakeBackend) RunCustom(ctx context.Context, sub Submission, input string) (verdict.RawResult, error) {
	b.mu.Lock()
	b.judgeCalls++
	b.lastSub = sub
	b.mu.Unlock()
	if b.judgeErr != nil {
		return verdict.RawResult{}, b.judgeErr
	}
	out := input
	return verdict.RawResult{StatusID: intPtr(3), Stdout: &out}, nil
}

func (b *fakeBackend) Submit(ctx context.Context, problemID string, sub Submission) ([]verdict.RawResult, error) {
	return b.Run(ctx, problemID, sub)
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

var baseTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newBackend(end time.Time, participant bool) *fakeBackend {
	return &fakeBackend{
		contest: &Contest{
			ID:        "c1",
			Title:     "Weekly 1",
			StartTime: baseTime.Add(-time.Hour),
			EndTime:   end,
			Problems: []ProblemRef{
				{ID: "p1", Title: "Two Sum"},
				{ID: "p2", Title: "Paths"},
			},
			IsParticipant: participant,
		},
		problems: map[string]*Problem{
			"p1": {
				ID:    "p1",
				Title: "Two Sum",
				VisibleTestCases: []TestCase{
					{Input: "1 2", Output: "3\n"},
					{Input: "2 2", Output: "4\n"},
				},
				StarterCode: []language.StarterCode{
					{Language: "cpp", Code: "// cpp p1"},
					{Language: "Python", Code: "# py p1"},
				},
			},
			"p2": {
				ID:          "p2",
				Title:       "Paths",
				StarterCode: []language.StarterCode{{Language: "java", Code: "// java p2"}},
			},
		},
	}
}

type noticeRecorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *noticeRecorder) Notify(n Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

func (r *noticeRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notices)
}

func newSession(t *testing.T, b *fakeBackend, clock *fakeClock, opts ...Option) (*Session, *noticeRecorder) {
	t.Helper()
	rec := &noticeRecorder{}
	opts = append([]Option{WithClock(clock), WithTickInterval(0), WithNotifier(rec)}, opts...)
	s := New(b, problemSource{b}, b, opts...)
	t.Cleanup(s.Close)
	return s, rec
}

func TestCountdownLocksOnce(t *testing.T) {
	clock := &fakeClock{now: baseTime}
	b := newBackend(baseTime.Add(3*time.Second+500*time.Millisecond), true)
	s, rec := newSession(t, b, clock)

	if err := s.Start(context.Background(), "c1", ""); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if s.State() != StateActive || s.Remaining() != 3 {
		t.Fatalf("state %v remaining %d", s.State(), s.Remaining())
	}

	prev := s.Remaining()
	for i := 0; i < 6; i++ {
		clock.Advance(time.Second)
		s.Tick()
		if s.Remaining() > prev {
			t.Fatalf("remaining went up: %d -> %d", prev, s.Remaining())
		}
		prev = s.Remaining()
	}
	if s.State() != StateLocked || s.Remaining() != 0 {
		t.Fatalf("state %v remaining %d", s.State(), s.Remaining())
	}
	if rec.count() != 1 {
		t.Fatalf("notices = %d, want exactly 1", rec.count())
	}
	if s.ExitGuarded() {
		t.Fatalf("locked session must not guard exit")
	}
	if s.Snapshot().Clock() != "00:00:00" {
		t.Fatalf("clock = %s", s.Snapshot().Clock())
	}
}

func TestCountdownSkippedTicks(t *testing.T) {
	clock := &fakeClock{now: baseTime}
	b := newBackend(baseTime.Add(2*time.Hour), true)
	s, _ := newSession(t, b, clock)
	if err := s.Start(context.Background(), "c1", ""); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	clock.Advance(90 * time.Minute)
	s.Tick()
	if got := s.Snapshot().Clock(); got != "00:30:00" {
		t.Fatalf("clock = %s, want 00:30:00", got)
	}
}

func TestAccessDeniedSkipsTimerAndProblem(t *testing.T) {
	clock := &fakeClock{now: baseTime}
	b := newBackend(baseTime.Add(time.Hour), false)
	s, rec := newSession(t, b, clock, WithTickInterval(time.Second))

	err := s.Start(context.Background(), "c1", "p1")
	if !errors.Is(err, errors.ContestAccessDenied) {
		t.Fatalf("err = %v, want access denied", err)
	}
	if s.State() != StateAccessDenied {
		t.Fatalf("state = %v", s.State())
	}
	if b.problemCalls != 0 {
		t.Fatalf("problem fetched %d times", b.problemCalls)
	}
	if clock.tickers != 0 || s.TimerRunning() {
		t.Fatalf("timer must not start")
	}
	if rec.count() != 0 {
		t.Fatalf("no notice expected")
	}
	if err := s.SetSource("x"); !errors.Is(err, errors.SessionNotActive) {
		t.Fatalf("editing must be rejected, got %v", err)
	}
}

func TestAlreadyEndedStartsLocked(t *testing.T) {
	clock := &fakeClock{now: baseTime}
	b := newBackend(baseTime.Add(-time.Minute), true)
	s, rec := newSession(t, b, clock, WithTickInterval(time.Second))

	if err := s.Start(context.Background(), "c1", "p2"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	v := s.Snapshot()
	if v.State != StateLocked || v.TimerRunning || clock.tickers != 0 {
		t.Fatalf("got %+v tickers %d", v.State, clock.tickers)
	}
	if v.Problem == nil || v.Problem.ID != "p2" || v.Selected != 1 {
		t.Fatalf("problem should still be viewable, got %+v", v.Problem)
	}
	if rec.count() != 1 {
		t.Fatalf("notices = %d", rec.count())
	}
}

func TestLockedRejectsMutations(t *testing.T) {
	clock := &fakeClock{now: baseTime}
	b := newBackend(baseTime.Add(time.Second), true)
	s, _ := newSession(t, b, clock)
	if err := s.Start(context.Background(), "c1", ""); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	clock.Advance(2 * time.Second)
	s.Tick()

	ctx := context.Background()
	before := s.Snapshot()
	checks := map[string]error{
		"set source":   s.SetSource("changed"),
		"switch":       s.SwitchProblem(ctx, 1),
		"custom input": s.SetCustomInput("1"),
	}
	_, checks["language"] = s.SetLanguage("java")
	_, checks["run"] = s.Run(ctx)
	_, checks["run custom"] = s.RunCustom(ctx)
	_, checks["submit"] = s.Submit(ctx)
	_, checks["edit"] = s.Edit(ctx, EditorFunc(func(context.Context, string, string) (string, error) {
		return "edited", nil
	}))
	for name, err := range checks {
		if !errors.Is(err, errors.SessionNotActive) {
			t.Errorf("%s: err = %v, want session not active", name, err)
		}
	}
	if b.judgeCalls != 0 {
		t.Fatalf("judge called %d times after lock", b.judgeCalls)
	}
	after := s.Snapshot()
	if after.Source != before.Source || after.Selected != before.Selected || after.Language != before.Language {
		t.Fatalf("locked session state changed")
	}
}

func TestSwitchProblemReseeds(t *testing.T) {
	clock := &fakeClock{now: baseTime}
	b := newBackend(baseTime.Add(time.Hour), true)
	s, _ := newSession(t, b, clock, WithLanguage("py"))
	ctx := context.Background()
	if err := s.Start(ctx, "c1", "p1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	v := s.Snapshot()
	if v.Language != language.Python || v.Source != "# py p1" {
		t.Fatalf("seed = %s %q", v.Language, v.Source)
	}

	if err := s.SetSource("my solution"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetCustomInput("5"); err != nil {
		t.Fatal(err)
	}
	if err := s.SwitchProblem(ctx, 1); err != nil {
		t.Fatalf("switch failed: %v", err)
	}
	v = s.Snapshot()
	if v.Language != language.Java || v.Source != "// java p2" {
		t.Fatalf("fallback seed = %s %q", v.Language, v.Source)
	}
	if v.CustomInput != "" || v.LastRun != nil {
		t.Fatalf("per-problem state should reset")
	}
	if v.ProblemLabel() != "B. Paths" {
		t.Fatalf("label = %q", v.ProblemLabel())
	}

	if err := s.SwitchProblem(ctx, 5); !errors.Is(err, errors.ProblemIndexOutRange) {
		t.Fatalf("err = %v", err)
	}
}

func TestSetLanguageLoadsStarterOrPlaceholder(t *testing.T) {
	clock := &fakeClock{now: baseTime}
	b := newBackend(baseTime.Add(time.Hour), true)
	s, _ := newSession(t, b, clock)
	if err := s.Start(context.Background(), "c1", ""); err != nil {
		t.Fatal(err)
	}
	lang, err := s.SetLanguage("Python")
	if err != nil || lang != language.Python || s.Snapshot().Source != "# py p1" {
		t.Fatalf("got %s %v %q", lang, err, s.Snapshot().Source)
	}
	lang, _ = s.SetLanguage("rust")
	if lang != language.Rust || s.Snapshot().Source != "// Write your code here\n" {
		t.Fatalf("got %s %q", lang, s.Snapshot().Source)
	}
}

func TestNetworkErrorKeepsState(t *testing.T) {
	clock := &fakeClock{now: baseTime}
	b := newBackend(baseTime.Add(time.Hour), true)
	s, _ := newSession(t, b, clock)
	ctx := context.Background()
	if err := s.Start(ctx, "c1", ""); err != nil {
		t.Fatal(err)
	}
	if err := s.SetSource("int main() {}"); err != nil {
		t.Fatal(err)
	}
	b.judgeErr = errors.NetworkFailure(stderrors.New("connection refused"))
	before := s.Snapshot()

	if _, err := s.Run(ctx); !errors.Is(err, errors.NetworkError) {
		t.Fatalf("err = %v", err)
	}
	if _, err := s.Submit(ctx); !errors.Is(err, errors.NetworkError) {
		t.Fatalf("err = %v", err)
	}
	b.problemErr = errors.NetworkFailure(stderrors.New("timeout"))
	if err := s.SwitchProblem(ctx, 1); !errors.Is(err, errors.NetworkError) {
		t.Fatalf("err = %v", err)
	}

	after := s.Snapshot()
	if after.Source != before.Source || after.State != StateActive || after.Selected != 0 {
		t.Fatalf("state changed after network failure: %+v", after)
	}
	if after.SecondsRemaining != before.SecondsRemaining {
		t.Fatalf("remaining changed")
	}
}

func TestRunFillsExpectedFromVisibleCases(t *testing.T) {
	clock := &fakeClock{now: baseTime}
	b := newBackend(baseTime.Add(time.Hour), true)
	b.results = []verdict.RawResult{
		{StatusID: intPtr(3), Stdout: strPtr("3\r\n")},
		{StatusID: intPtr(4), Stdout: strPtr("5\n")},
	}
	s, _ := newSession(t, b, clock)
	ctx := context.Background()
	if err := s.Start(ctx, "c1", ""); err != nil {
		t.Fatal(err)
	}
	report, err := s.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if report.Overall != verdict.OverallFailed || len(report.Failures()) != 1 || report.Failures()[0] != 1 {
		t.Fatalf("overall %v failures %v", report.Overall, report.Failures())
	}
	if !report.Cases[0].Passed {
		t.Fatalf("case 0 should pass against the visible expected output")
	}
	if s.Snapshot().LastRun == nil {
		t.Fatalf("last run should be recorded")
	}
	if b.lastSub.ContestID != "c1" || b.lastSub.Language != language.CPP {
		t.Fatalf("submission = %+v", b.lastSub)
	}
}

func TestStaleRunResultDropped(t *testing.T) {
	clock := &fakeClock{now: baseTime}
	b := newBackend(baseTime.Add(time.Hour), true)
	b.results = []verdict.RawResult{{StatusID: intPtr(3)}}
	s, _ := newSession(t, b, clock)
	ctx := context.Background()
	if err := s.Start(ctx, "c1", ""); err != nil {
		t.Fatal(err)
	}
	b.onRun = func() {
		if err := s.SwitchProblem(ctx, 1); err != nil {
			t.Errorf("switch during run: %v", err)
		}
	}
	if _, err := s.Run(ctx); err != nil {
		t.Fatal(err)
	}
	v := s.Snapshot()
	if v.Selected != 1 || v.LastRun != nil {
		t.Fatalf("result for the previous problem must not be attached: %+v", v.LastRun)
	}
}

func TestRunCustomMatch(t *testing.T) {
	clock := &fakeClock{now: baseTime}
	b := newBackend(baseTime.Add(time.Hour), true)
	s, _ := newSession(t, b, clock)
	ctx := context.Background()
	if err := s.Start(ctx, "c1", ""); err != nil {
		t.Fatal(err)
	}
	_ = s.SetCustomInput("hello\n")
	res, err := s.RunCustom(ctx)
	if err != nil || res.Matched != nil {
		t.Fatalf("without expected output there is no match indicator: %+v %v", res, err)
	}
	_ = s.SetCustomExpected(strPtr("hello\r\n"))
	res, _ = s.RunCustom(ctx)
	if res.Matched == nil || !*res.Matched {
		t.Fatalf("expected match")
	}
}

func TestEditFailureKeepsBuffer(t *testing.T) {
	clock := &fakeClock{now: baseTime}
	b := newBackend(baseTime.Add(time.Hour), true)
	s, _ := newSession(t, b, clock)
	ctx := context.Background()
	if err := s.Start(ctx, "c1", ""); err != nil {
		t.Fatal(err)
	}
	before := s.Snapshot().Source
	_, err := s.Edit(ctx, EditorFunc(func(context.Context, string, string) (string, error) {
		return "", stderrors.New("exit status 1")
	}))
	if !errors.Is(err, errors.EditorFailed) || s.Snapshot().Source != before {
		t.Fatalf("err = %v source %q", err, s.Snapshot().Source)
	}
	got, err := s.Edit(ctx, EditorFunc(func(_ context.Context, lang, src string) (string, error) {
		return src + "\nint main() {}\n", nil
	}))
	if err != nil || s.Snapshot().Source != got {
		t.Fatalf("edit not applied: %v", err)
	}
}

func TestStartFailureMarksFailed(t *testing.T) {
	clock := &fakeClock{now: baseTime}
	b := newBackend(baseTime.Add(time.Hour), true)
	b.contestErr = errors.NetworkFailure(stderrors.New("dial tcp"))
	s, _ := newSession(t, b, clock)
	if err := s.Start(context.Background(), "c1", ""); !errors.Is(err, errors.NetworkError) {
		t.Fatalf("err = %v", err)
	}
	if s.State() != StateFailed {
		t.Fatalf("state = %v", s.State())
	}
}

func TestCloseStopsTickerAndGuard(t *testing.T) {
	clock := &fakeClock{now: baseTime}
	b := newBackend(baseTime.Add(time.Hour), true)
	s, _ := newSession(t, b, clock, WithTickInterval(time.Second))
	if err := s.Start(context.Background(), "c1", ""); err != nil {
		t.Fatal(err)
	}
	if !s.TimerRunning() || !s.ExitGuarded() {
		t.Fatalf("active session should run its timer and guard exit")
	}
	s.Close()
	s.Close()
	if s.TimerRunning() || s.ExitGuarded() {
		t.Fatalf("closed session must stop")
	}
}

func TestRealTickerLocks(t *testing.T) {
	b := newBackend(time.Now().Add(1200*time.Millisecond), true)
	ended := make(chan Notice, 1)
	s := New(b, problemSource{b}, b,
		WithTickInterval(20*time.Millisecond),
		WithNotifier(NotifierFunc(func(n Notice) { ended <- n })),
	)
	defer s.Close()
	if err := s.Start(context.Background(), "c1", ""); err != nil {
		t.Fatal(err)
	}
	select {
	case n := <-ended:
		if n.Kind != NoticeContestEnded {
			t.Fatalf("kind = %v", n.Kind)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("session never locked")
	}
	if !s.Locked() {
		t.Fatalf("state = %v", s.State())
	}
}

func TestJoinRefreshesContest(t *testing.T) {
	b := newBackend(baseTime.Add(time.Hour), false)
	c, err := Join(context.Background(), b, "c1")
	if err != nil || !c.IsParticipant {
		t.Fatalf("join: %+v %v", c, err)
	}
}

func TestLetterRoundTrip(t *testing.T) {
	for _, tt := range []struct {
		i int
		s string
	}{{0, "A"}, {1, "B"}, {25, "Z"}, {26, "AA"}, {27, "AB"}, {701, "ZZ"}} {
		if got := Letter(tt.i); got != tt.s {
			t.Errorf("Letter(%d) = %s, want %s", tt.i, got, tt.s)
		}
		if got := ParseLetter(tt.s); got != tt.i {
			t.Errorf("ParseLetter(%s) = %d, want %d", tt.s, got, tt.i)
		}
	}
	if ParseLetter("1") != -1 {
		t.Errorf("digits are not letters")
	}
}

func TestFormatClock(t *testing.T) {
	for _, tt := range []struct {
		seconds int64
		want    string
	}{
		{3661, "01:01:01"},
		{59, "00:00:59"},
		{0, "00:00:00"},
		{-5, "00:00:00"},
		{100 * 3600, "100:00:00"},
	} {
		if got := FormatClock(tt.seconds); got != tt.want {
			t.Errorf("FormatClock(%d) = %s, want %s", tt.seconds, got, tt.want)
		}
	}
}

func TestClockRewindAfterLockStaysLocked(t *testing.T) {
	clock := &fakeClock{now: baseTime}
	b := newBackend(baseTime.Add(2*time.Second), true)
	s, rec := newSession(t, b, clock)
	if err := s.Start(context.Background(), "c1", ""); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	clock.Advance(3 * time.Second)
	s.Tick()
	if s.State() != StateLocked {
		t.Fatalf("state = %v, want locked", s.State())
	}

	clock.Advance(-time.Hour)
	for i := 0; i < 3; i++ {
		s.Tick()
	}
	ctx := context.Background()
	if err := s.SwitchProblem(ctx, 1); !errors.Is(err, errors.SessionNotActive) {
		t.Fatalf("switch err = %v", err)
	}
	if _, err := s.Run(ctx); !errors.Is(err, errors.SessionNotActive) {
		t.Fatalf("run err = %v", err)
	}
	if s.State() != StateLocked || s.Remaining() != 0 {
		t.Fatalf("state %v remaining %d after rewind", s.State(), s.Remaining())
	}
	if rec.count() != 1 {
		t.Fatalf("notices = %d, want exactly 1", rec.count())
	}
	if s.TimerRunning() {
		t.Fatalf("timer restarted after lock")
	}
}

func TestRestoreDraft(t *testing.T) {
	clock := &fakeClock{now: baseTime}
	b := newBackend(baseTime.Add(time.Second), true)
	s, _ := newSession(t, b, clock)
	if err := s.Start(context.Background(), "c1", ""); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	lang, err := s.RestoreDraft("Python3", "print(3)", "1 2")
	if err != nil || lang != "python" {
		t.Fatalf("restore = %q %v", lang, err)
	}
	v := s.Snapshot()
	if v.Language != "python" || v.Source != "print(3)" || v.CustomInput != "1 2" {
		t.Fatalf("view after restore = %+v", v)
	}

	clock.Advance(2 * time.Second)
	s.Tick()
	if _, err := s.RestoreDraft("cpp", "// lost?", ""); !errors.Is(err, errors.SessionNotActive) {
		t.Fatalf("restore on locked session err = %v", err)
	}
	after := s.Snapshot()
	if after.Language != "python" || after.Source != "print(3)" {
		t.Fatalf("locked restore changed the buffer: %q %q", after.Language, after.Source)
	}
}
