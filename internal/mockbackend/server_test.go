package mockbackend

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ojarena/pkg/errors"

	"github.com/gin-gonic/gin"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	TraceID string          `json:"trace_id"`
}

var fixedNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	now := fixedNow
	return NewServer(DemoConfig(), WithNow(func() time.Time { return now }))
}

func perform(t *testing.T, s *Server, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode response failed: %v (%s)", err, rec.Body.String())
		}
	}
	return rec, env
}

func login(t *testing.T, s *Server, user, pass string) string {
	t.Helper()
	rec, env := perform(t, s, http.MethodPost, "/api/v1/user/login", "", credentials{Username: user, Password: pass})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status %d: %s", rec.Code, rec.Body.String())
	}
	var pair TokenPair
	if err := json.Unmarshal(env.Data, &pair); err != nil || pair.AccessToken == "" {
		t.Fatalf("login data: %v %s", err, string(env.Data))
	}
	return pair.AccessToken
}

func TestLoginAndProfile(t *testing.T) {
	s := newTestServer(t)

	rec, env := perform(t, s, http.MethodPost, "/api/v1/user/login", "", credentials{Username: "alice", Password: "nope"})
	if rec.Code != http.StatusUnauthorized || env.Code != int(errors.InvalidCredentials) {
		t.Fatalf("bad password: %d %d", rec.Code, env.Code)
	}

	token := login(t, s, "alice", "alice123")
	rec, env = perform(t, s, http.MethodGet, "/api/v1/user/profile", token, nil)
	if rec.Code != http.StatusOK || env.TraceID == "" {
		t.Fatalf("profile: %d trace %q", rec.Code, env.TraceID)
	}

	perform(t, s, http.MethodPost, "/api/v1/user/logout", token, nil)
	rec, env = perform(t, s, http.MethodGet, "/api/v1/user/profile", token, nil)
	if rec.Code != http.StatusUnauthorized || env.Code != int(errors.TokenInvalid) {
		t.Fatalf("revoked token accepted: %d %d", rec.Code, env.Code)
	}
}

func TestContestParticipantFlag(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"anonymous", "", false},
		{"participant", login(t, s, "alice", "alice123"), true},
		{"not joined", login(t, s, "bob", "bob123"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := perform(t, s, http.MethodGet, "/api/v1/contests/weekly-1", tt.token, nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("status %d", rec.Code)
			}
			var data struct {
				IsParticipant bool      `json:"isParticipant"`
				EndTime       time.Time `json:"endTime"`
				Status        string    `json:"status"`
			}
			_ = json.Unmarshal(env.Data, &data)
			if data.IsParticipant != tt.want {
				t.Fatalf("isParticipant = %v, want %v", data.IsParticipant, tt.want)
			}
			if data.Status != "ongoing" || !data.EndTime.After(fixedNow) {
				t.Fatalf("contest should be ongoing: %+v", data)
			}
		})
	}

	rec, env := perform(t, s, http.MethodGet, "/api/v1/contests/missing", "", nil)
	if rec.Code != http.StatusNotFound || env.Code != int(errors.ContestNotFound) {
		t.Fatalf("missing contest: %d %d", rec.Code, env.Code)
	}
}

func TestJoinThenSubmit(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s, "bob", "bob123")
	body := judgeRequest{Code: "print(1)", Language: "python", ContestID: "weekly-1"}

	rec, env := perform(t, s, http.MethodPost, "/api/v1/submissions/submit/sum", token, body)
	if rec.Code != http.StatusForbidden || env.Code != int(errors.ContestAccessDenied) {
		t.Fatalf("non participant submit: %d %d", rec.Code, env.Code)
	}

	rec, _ = perform(t, s, http.MethodPost, "/api/v1/contests/weekly-1/join", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("join status %d", rec.Code)
	}
	rec, env = perform(t, s, http.MethodPost, "/api/v1/contests/weekly-1/join", token, nil)
	if env.Code != int(errors.AlreadyRegistered) {
		t.Fatalf("second join code %d", env.Code)
	}

	rec, env = perform(t, s, http.MethodPost, "/api/v1/submissions/submit/sum", token, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit status %d: %s", rec.Code, rec.Body.String())
	}
	var data struct {
		Submissions []judgeResult `json:"submissions"`
	}
	_ = json.Unmarshal(env.Data, &data)
	if len(data.Submissions) != 3 {
		t.Fatalf("submit should judge visible and hidden cases, got %d", len(data.Submissions))
	}

	rec, env = perform(t, s, http.MethodGet, "/api/v1/submissions", token, nil)
	var list struct {
		Submissions []SubmissionRecord `json:"submissions"`
	}
	_ = json.Unmarshal(env.Data, &list)
	if len(list.Submissions) != 1 || list.Submissions[0].Verdict != "Accepted" || list.Submissions[0].Total != 3 {
		t.Fatalf("submissions = %+v", list.Submissions)
	}
}

func TestEndedContestRejectsSubmit(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s, "alice", "alice123")
	body := judgeRequest{Code: "x", Language: "cpp", ContestID: "archive-0"}
	_, env := perform(t, s, http.MethodPost, "/api/v1/submissions/submit/sum", token, body)
	if env.Code != int(errors.ContestEnded) {
		t.Fatalf("code = %d", env.Code)
	}
	_, env = perform(t, s, http.MethodPost, "/api/v1/contests/archive-0/join", token, nil)
	if env.Code != int(errors.RegistrationClosed) {
		t.Fatalf("join ended contest code = %d", env.Code)
	}
}

func TestRunOutcomes(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s, "alice", "alice123")
	tests := []struct {
		code     string
		statusID int
	}{
		{"int main() {}", 3},
		{"// WRONG_ANSWER", 4},
		{"// TIME_LIMIT", 5},
		{"// COMPILE_ERROR", 6},
		{"// RUNTIME_ERROR", 11},
		{"   ", 6},
	}
	for _, tt := range tests {
		rec, env := perform(t, s, http.MethodPost, "/api/v1/submissions/run/sum", token, judgeRequest{Code: tt.code, Language: "cpp"})
		if rec.Code != http.StatusOK {
			t.Fatalf("%q: status %d", tt.code, rec.Code)
		}
		var data struct {
			Submissions []judgeResult `json:"submissions"`
		}
		_ = json.Unmarshal(env.Data, &data)
		if len(data.Submissions) != 2 {
			t.Fatalf("%q: run should cover visible cases only, got %d", tt.code, len(data.Submissions))
		}
		if data.Submissions[0].StatusID != tt.statusID {
			t.Errorf("%q: status %d, want %d", tt.code, data.Submissions[0].StatusID, tt.statusID)
		}
	}
}

func TestRunCustomEchoes(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s, "alice", "alice123")
	_, env := perform(t, s, http.MethodPost, "/api/v1/submissions/run-custom", token,
		judgeRequest{Code: "ok", Language: "py", CustomInput: "hello\n"})
	var data struct {
		Result judgeResult `json:"result"`
	}
	_ = json.Unmarshal(env.Data, &data)
	if data.Result.StatusID != 3 || data.Result.Stdout == nil || *data.Result.Stdout != "hello\n" {
		t.Fatalf("result = %+v", data.Result)
	}
	if data.Result.ExpectedOutput != nil {
		t.Fatalf("custom runs carry no expected output")
	}
}

func TestSubmissionsRequireAuth(t *testing.T) {
	s := newTestServer(t)
	rec, env := perform(t, s, http.MethodPost, "/api/v1/submissions/run/sum", "", judgeRequest{Code: "x", Language: "cpp"})
	if rec.Code != http.StatusUnauthorized || env.Code != int(errors.TokenInvalid) {
		t.Fatalf("status %d code %d", rec.Code, env.Code)
	}
}

func TestLoadShippedFixtures(t *testing.T) {
	cfg, err := Load("../../configs/arena-mock.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Users) != 2 || len(cfg.Contests) != 2 || len(cfg.Problems) != 2 {
		t.Fatalf("fixtures = %d users, %d contests, %d problems", len(cfg.Users), len(cfg.Contests), len(cfg.Problems))
	}
	sum := cfg.Problems[0]
	if sum.ID != "sum" || len(sum.VisibleTestCases) != 2 || len(sum.HiddenTestCases) != 1 {
		t.Fatalf("sum fixture = %+v", sum)
	}
	if len(sum.StarterCode) != 2 || !strings.Contains(sum.StarterCode[0].Code, "#include <iostream>") {
		t.Fatalf("starter code = %+v", sum.StarterCode)
	}
	if cfg.Contests[0].StartsIn != -10*time.Minute || cfg.Contests[0].Duration != 2*time.Hour {
		t.Fatalf("contest window = %+v", cfg.Contests[0])
	}
}
