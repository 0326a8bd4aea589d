package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"ojarena/internal/api"
	httpclient "ojarena/internal/cli/http"
	"ojarena/internal/contest"
	"ojarena/internal/judge/verdict"
	"ojarena/internal/mockbackend"
	"ojarena/pkg/errors"

	"github.com/gin-gonic/gin"
)

type fixture struct {
	server *httptest.Server
	client *httpclient.Client
	token  string
}

func newFixture(t *testing.T, user string) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mock := mockbackend.NewServer(mockbackend.DemoConfig())
	srv := httptest.NewServer(mock.Handler())
	t.Cleanup(srv.Close)

	f := &fixture{server: srv}
	if user != "" {
		id, err := mock.Store().Login(user, map[string]string{"alice": "alice123", "bob": "bob123"}[user])
		if err != nil {
			t.Fatalf("login %s: %v", user, err)
		}
		pair, err := mock.Authenticator().Issue(id, user)
		if err != nil {
			t.Fatalf("issue token: %v", err)
		}
		f.token = pair.AccessToken
	}
	f.client = httpclient.New(srv.URL, 5*time.Second, func() string { return f.token })
	return f
}

func TestContestClientGet(t *testing.T) {
	f := newFixture(t, "alice")
	c, err := api.NewContestClient(f.client).Get(context.Background(), "weekly-1")
	if err != nil {
		t.Fatalf("get contest: %v", err)
	}
	if !c.IsParticipant || len(c.Problems) != 2 || c.Problems[0].ID != "sum" {
		t.Fatalf("contest = %+v", c)
	}
	if c.EndTime.Sub(c.StartTime) != 2*time.Hour {
		t.Fatalf("window = %s", c.EndTime.Sub(c.StartTime))
	}

	_, err = api.NewContestClient(f.client).Get(context.Background(), "nope")
	if !errors.Is(err, errors.ContestNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestContestJoinAndList(t *testing.T) {
	f := newFixture(t, "bob")
	client := api.NewContestClient(f.client)
	c, err := contest.Join(context.Background(), client, "weekly-1")
	if err != nil || !c.IsParticipant {
		t.Fatalf("join: %+v %v", c, err)
	}
	if _, err := contest.Join(context.Background(), client, "weekly-1"); err != nil {
		t.Fatalf("joining twice should succeed: %v", err)
	}
	list, err := client.List(context.Background())
	if err != nil || len(list) != 2 {
		t.Fatalf("list: %d %v", len(list), err)
	}
	if list[0].ID != "archive-0" {
		t.Fatalf("contests should be ordered by start time, got %s first", list[0].ID)
	}
}

func TestProblemClientCaches(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := mockbackend.NewServer(mockbackend.DemoConfig())
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		mock.Handler().ServeHTTP(w, r)
	}))
	defer srv.Close()

	problems := api.NewProblemClient(httpclient.New(srv.URL, time.Second, nil), time.Minute)
	for i := 0; i < 3; i++ {
		p, err := problems.Get(context.Background(), "paths")
		if err != nil {
			t.Fatalf("get problem: %v", err)
		}
		if p.Title != "Grid Paths" || len(p.StarterCode) != 1 || p.StarterCode[0].Code == "" {
			t.Fatalf("problem = %+v", p)
		}
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("hits = %d, want 1", hits)
	}
	problems.Invalidate("paths")
	if _, err := problems.Get(context.Background(), "paths"); err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&hits) != 2 {
		t.Fatalf("hits = %d, want 2", hits)
	}
}

func TestJudgeClientRunAndSubmit(t *testing.T) {
	f := newFixture(t, "alice")
	judge := api.NewJudgeClient(f.client, 0)
	sub := contest.Submission{Code: "int main() {}", Language: "cpp", ContestID: "weekly-1"}

	raws, err := judge.Run(context.Background(), "sum", sub)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	report := verdict.Aggregate(raws)
	if len(report.Cases) != 2 || report.Overall != verdict.OverallAccepted {
		t.Fatalf("report = %+v", report)
	}
	if !report.Cases[0].Passed {
		t.Fatalf("case 0 should pass")
	}

	sub.Code = "// WRONG_ANSWER"
	raws, err = judge.Submit(context.Background(), "sum", sub)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	report = verdict.Aggregate(raws)
	if len(report.Cases) != 3 || report.Overall != verdict.OverallFailed || len(report.Failures()) != 3 {
		t.Fatalf("report = %+v", report)
	}

	raw, err := judge.RunCustom(context.Background(), contest.Submission{Code: "ok", Language: "python"}, "7 8\n")
	if err != nil {
		t.Fatalf("run custom: %v", err)
	}
	expected := "7 8\r\n"
	res := verdict.Custom(raw, &expected)
	if res.Matched == nil || !*res.Matched {
		t.Fatalf("custom result = %+v", res)
	}
}

func TestJudgeClientAccessDenied(t *testing.T) {
	f := newFixture(t, "bob")
	judge := api.NewJudgeClient(f.client, 0)
	_, err := judge.Submit(context.Background(), "sum", contest.Submission{Code: "x", Language: "cpp", ContestID: "weekly-1"})
	if !errors.Is(err, errors.ContestAccessDenied) {
		t.Fatalf("err = %v", err)
	}
}

func TestJudgeClientMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":10000,"message":"Success","data":{"submissions":[{"status_id":"weird"},42]}}`))
	}))
	defer srv.Close()

	judge := api.NewJudgeClient(httpclient.New(srv.URL, time.Second, nil), 0)
	raws, err := judge.Run(context.Background(), "p", contest.Submission{Code: "x", Language: "cpp"})
	if err != nil {
		t.Fatalf("malformed cases must not fail the call: %v", err)
	}
	report := verdict.Aggregate(raws)
	if len(report.Cases) != 2 || report.Cases[1].Verdict.Output != "no output" {
		t.Fatalf("report = %+v", report)
	}
}

func TestJudgeClientThrottle(t *testing.T) {
	f := newFixture(t, "alice")
	judge := api.NewJudgeClient(f.client, time.Hour)
	sub := contest.Submission{Code: "x", Language: "cpp"}
	if _, err := judge.Run(context.Background(), "sum", sub); err != nil {
		t.Fatalf("first call: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := judge.Run(ctx, "sum", sub); !errors.Is(err, errors.SubmitTooFrequently) {
		t.Fatalf("err = %v", err)
	}
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := api.NewContestClient(httpclient.New(url, time.Second, nil)).Get(context.Background(), "c")
	if !errors.Is(err, errors.NetworkError) {
		t.Fatalf("err = %v", err)
	}
}

func TestLRUCacheEvicts(t *testing.T) {
	c := api.NewLRUCache[int](2, 0)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("a missing")
	}
	c.Set("c", 3)
	if _, ok := c.Get("b"); ok {
		t.Fatalf("b should be evicted as least recently used")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("a = %d %v", v, ok)
	}
	if c.Len() != 2 {
		t.Fatalf("len = %d", c.Len())
	}
}
