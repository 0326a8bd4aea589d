package mockbackend

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"strings"
	"time"

	"ojarena/internal/contest"
	"ojarena/internal/language"
	"ojarena/pkg/errors"
	"ojarena/pkg/utils/contextkey"
	"ojarena/pkg/utils/logger"
	"ojarena/pkg/utils/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultShutdownTimeout = 5 * time.Second

// Server serves the fake backend.
type Server struct {
	cfg    Config
	store  *Store
	auth   *Authenticator
	now    func() time.Time
	router *gin.Engine
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithNow replaces the server clock.
func WithNow(now func() time.Time) ServerOption {
	return func(s *Server) { s.now = now }
}

// NewServer builds the router and loads fixtures.
func NewServer(cfg Config, opts ...ServerOption) *Server {
	applyDefaults(&cfg)
	s := &Server{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.store = NewStore(cfg, s.now())
	s.auth = NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	s.auth.now = s.now
	s.router = s.buildRouter()
	return s
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler { return s.router }

// Store exposes the in-memory state.
func (s *Server) Store() *Store { return s.store }

// Authenticator exposes token issuing.
func (s *Server) Authenticator() *Authenticator { return s.auth }

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return errors.Wrapf(err, errors.ServiceUnavailable, "listen on %s failed", s.cfg.Addr)
	}
	srv := &http.Server{Handler: s.router, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "mock backend started", zap.String("addr", listener.Addr().String()))
		errCh <- srv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) buildRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(traceContext())
	router.Use(requestLogger())

	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	v1 := router.Group("/api/v1")
	authed := requireAuth(s.auth)
	optional := optionalAuth(s.auth)

	user := v1.Group("/user")
	user.POST("/register", s.handleRegister)
	user.POST("/login", s.handleLogin)
	user.POST("/logout", authed, s.handleLogout)
	user.GET("/profile", authed, s.handleProfile)

	v1.GET("/contests", optional, s.handleListContests)
	v1.GET("/contests/:id", optional, s.handleGetContest)
	v1.POST("/contests/:id/join", authed, s.handleJoinContest)

	v1.GET("/problems", s.handleListProblems)
	v1.GET("/problems/:id", s.handleGetProblem)

	subs := v1.Group("/submissions", authed)
	subs.GET("", s.handleListSubmissions)
	subs.POST("/run/:problem_id", s.handleRun)
	subs.POST("/run-custom", s.handleRunCustom)
	subs.POST("/submit/:problem_id", s.handleSubmit)

	v1.POST("/chat", authed, s.handleChat)
	return router
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	id, err := s.store.Register(strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	s.issue(c, id, req.Username)
}

func (s *Server) handleLogin(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	id, err := s.store.Login(strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	s.issue(c, id, req.Username)
}

func (s *Server) issue(c *gin.Context, id int64, username string) {
	pair, err := s.auth.Issue(id, username)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, pair)
}

func (s *Server) handleLogout(c *gin.Context) {
	s.auth.Revoke(extractBearerToken(c.GetHeader("Authorization")))
	response.SuccessWithMessage(c, "logged out", nil)
}

func (s *Server) handleProfile(c *gin.Context) {
	id, _ := currentUser(c)
	name, ok := s.store.Username(id)
	if !ok {
		response.Error(c, errors.New(errors.UserNotFound))
		return
	}
	response.Success(c, gin.H{"id": id, "username": name})
}

func (s *Server) handleListContests(c *gin.Context) {
	id, _ := currentUser(c)
	response.Success(c, gin.H{"contests": s.store.Contests(id)})
}

func (s *Server) handleGetContest(c *gin.Context) {
	id, _ := currentUser(c)
	ct, err := s.store.Contest(c.Param("id"), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{
		"id":            ct.ID,
		"title":         ct.Title,
		"description":   ct.Description,
		"startTime":     ct.StartTime,
		"endTime":       ct.EndTime,
		"problems":      ct.Problems,
		"isParticipant": ct.IsParticipant,
		"status":        ct.StatusAt(s.now()),
	})
}

func (s *Server) handleJoinContest(c *gin.Context) {
	id, _ := currentUser(c)
	if err := s.store.Join(c.Param("id"), id, s.now()); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, "joined", nil)
}

func (s *Server) handleListProblems(c *gin.Context) {
	response.Success(c, gin.H{"problems": s.store.Problems()})
}

func (s *Server) handleGetProblem(c *gin.Context) {
	p, _, err := s.store.Problem(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, p)
}

type judgeRequest struct {
	Code        string `json:"code"`
	Language    string `json:"language"`
	ContestID   string `json:"contestId"`
	CustomInput string `json:"customInput"`
}

func (s *Server) bindJudgeRequest(c *gin.Context) (judgeRequest, int64, bool) {
	var req judgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return req, 0, false
	}
	if language.Canonical(req.Language) == "" {
		response.Error(c, errors.New(errors.LanguageNotSupported))
		return req, 0, false
	}
	if len(req.Code) > 64*1024 {
		response.Error(c, errors.New(errors.CodeTooLarge))
		return req, 0, false
	}
	userID, _ := currentUser(c)
	if req.ContestID != "" {
		if err := s.store.CheckParticipant(req.ContestID, userID, s.now()); err != nil {
			response.Error(c, err)
			return req, 0, false
		}
		ctx := context.WithValue(c.Request.Context(), contextkey.ContestID, req.ContestID)
		c.Request = c.Request.WithContext(ctx)
	}
	return req, userID, true
}

func (s *Server) handleRun(c *gin.Context) {
	req, _, ok := s.bindJudgeRequest(c)
	if !ok {
		return
	}
	p, _, err := s.store.Problem(c.Param("problem_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	results, _ := judgeAll(req.Code, p.VisibleTestCases)
	response.Success(c, gin.H{"submissions": results})
}

func (s *Server) handleRunCustom(c *gin.Context) {
	req, _, ok := s.bindJudgeRequest(c)
	if !ok {
		return
	}
	if len(req.CustomInput) > 16*1024 {
		response.Error(c, errors.New(errors.CustomInputTooLarge))
		return
	}
	response.Success(c, gin.H{"result": evaluateCustom(req.Code, req.CustomInput)})
}

func (s *Server) handleSubmit(c *gin.Context) {
	req, userID, ok := s.bindJudgeRequest(c)
	if !ok {
		return
	}
	p, hidden, err := s.store.Problem(c.Param("problem_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	cases := append(append([]contest.TestCase(nil), p.VisibleTestCases...), hidden...)
	results, passed := judgeAll(req.Code, cases)
	verdictText := "Accepted"
	for _, r := range results {
		if !r.accepted() {
			verdictText = r.Status.Description
			break
		}
	}
	rec := s.store.AddSubmission(SubmissionRecord{
		UserID:    userID,
		ProblemID: p.ID,
		ContestID: req.ContestID,
		Language:  language.Canonical(req.Language),
		Verdict:   verdictText,
		Passed:    passed,
		Total:     len(cases),
		CreatedAt: s.now(),
	})
	logger.Info(c.Request.Context(), "submission judged",
		zap.Int64("submission_id", rec.ID),
		zap.String("problem_id", p.ID),
		zap.String("verdict", verdictText),
	)
	response.Success(c, gin.H{"submissionId": rec.ID, "submissions": results})
}

func (s *Server) handleListSubmissions(c *gin.Context) {
	userID, _ := currentUser(c)
	response.Success(c, gin.H{"submissions": s.store.Submissions(userID, c.Query("problem_id"))})
}

type chatRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		response.BadRequest(c, "message is required")
		return
	}
	response.Success(c, gin.H{
		"reply": "Try breaking the problem into smaller cases and check the constraints first.",
	})
}
