// Package api holds typed clients for the contest backend.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	httpclient "ojarena/internal/cli/http"
	"ojarena/internal/contest"
	"ojarena/internal/judge/verdict"
	"ojarena/pkg/errors"
	"ojarena/pkg/utils/logger"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Caller is the transport the clients use.
type Caller interface {
	Call(ctx context.Context, method, path string, in, out interface{}) error
}

var _ Caller = (*httpclient.Client)(nil)

// ContestClient talks to the contest endpoints.
type ContestClient struct {
	caller Caller
}

func NewContestClient(caller Caller) *ContestClient {
	return &ContestClient{caller: caller}
}

func (c *ContestClient) Get(ctx context.Context, contestID string) (*contest.Contest, error) {
	var out contest.Contest
	if err := c.caller.Call(ctx, http.MethodGet, "/api/v1/contests/"+url.PathEscape(contestID), nil, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		out.ID = contestID
	}
	return &out, nil
}

func (c *ContestClient) Join(ctx context.Context, contestID string) error {
	return c.caller.Call(ctx, http.MethodPost, "/api/v1/contests/"+url.PathEscape(contestID)+"/join", nil, nil)
}

// ContestList is the contest listing page.
type ContestList struct {
	Contests []contest.Contest `json:"contests"`
}

func (c *ContestClient) List(ctx context.Context) ([]contest.Contest, error) {
	var out ContestList
	if err := c.caller.Call(ctx, http.MethodGet, "/api/v1/contests", nil, &out); err != nil {
		return nil, err
	}
	return out.Contests, nil
}

// ProblemClient fetches problems, caching details for a short time so that
// switching back and forth between tabs does not refetch.
type ProblemClient struct {
	caller Caller
	cache  *LRUCache[*contest.Problem]
}

// NewProblemClient creates a ProblemClient. A zero ttl disables caching.
func NewProblemClient(caller Caller, ttl time.Duration) *ProblemClient {
	p := &ProblemClient{caller: caller}
	if ttl > 0 {
		p.cache = NewLRUCache[*contest.Problem](64, ttl)
	}
	return p
}

func (p *ProblemClient) Get(ctx context.Context, problemID string) (*contest.Problem, error) {
	if p.cache != nil {
		if cached, ok := p.cache.Get(problemID); ok {
			return cached, nil
		}
	}
	var out contest.Problem
	if err := p.caller.Call(ctx, http.MethodGet, "/api/v1/problems/"+url.PathEscape(problemID), nil, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		out.ID = problemID
	}
	if p.cache != nil {
		p.cache.Set(problemID, &out)
		logger.Debug(ctx, "problem cached", zap.String("problem_id", problemID), zap.Int("cache_size", p.cache.Len()))
	}
	return &out, nil
}

// Invalidate drops a cached problem.
func (p *ProblemClient) Invalidate(problemID string) {
	if p.cache != nil {
		p.cache.Delete(problemID)
	}
}

type judgeRequest struct {
	Code        string `json:"code"`
	Language    string `json:"language"`
	ContestID   string `json:"contestId,omitempty"`
	CustomInput string `json:"customInput,omitempty"`
}

type multiResponse struct {
	Submissions json.RawMessage `json:"submissions"`
}

type customResponse struct {
	Result json.RawMessage `json:"result"`
}

// JudgeClient sends code to the judge. Calls are throttled client side and
// never retried.
type JudgeClient struct {
	caller  Caller
	limiter *rate.Limiter
}

// NewJudgeClient creates a JudgeClient allowing one call per minInterval.
// A non-positive interval disables throttling.
func NewJudgeClient(caller Caller, minInterval time.Duration) *JudgeClient {
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	return &JudgeClient{caller: caller, limiter: rate.NewLimiter(limit, 1)}
}

func (j *JudgeClient) Run(ctx context.Context, problemID string, sub contest.Submission) ([]verdict.RawResult, error) {
	return j.multi(ctx, "/api/v1/submissions/run/"+url.PathEscape(problemID), sub)
}

func (j *JudgeClient) Submit(ctx context.Context, problemID string, sub contest.Submission) ([]verdict.RawResult, error) {
	return j.multi(ctx, "/api/v1/submissions/submit/"+url.PathEscape(problemID), sub)
}

func (j *JudgeClient) RunCustom(ctx context.Context, sub contest.Submission, input string) (verdict.RawResult, error) {
	if err := j.wait(ctx); err != nil {
		return verdict.RawResult{}, err
	}
	var data json.RawMessage
	req := judgeRequest{Code: sub.Code, Language: sub.Language, ContestID: sub.ContestID, CustomInput: input}
	if err := j.caller.Call(ctx, http.MethodPost, "/api/v1/submissions/run-custom", req, &data); err != nil {
		return verdict.RawResult{}, err
	}
	// An unexpected shape decodes to an empty result, which renders as the
	// templated fallback message.
	var out customResponse
	var raw verdict.RawResult
	if json.Unmarshal(data, &out) == nil && len(out.Result) > 0 {
		_ = json.Unmarshal(out.Result, &raw)
	}
	return raw, nil
}

func (j *JudgeClient) multi(ctx context.Context, path string, sub contest.Submission) ([]verdict.RawResult, error) {
	if err := j.wait(ctx); err != nil {
		return nil, err
	}
	var data json.RawMessage
	req := judgeRequest{Code: sub.Code, Language: sub.Language, ContestID: sub.ContestID}
	if err := j.caller.Call(ctx, http.MethodPost, path, req, &data); err != nil {
		return nil, err
	}
	var out multiResponse
	if json.Unmarshal(data, &out) != nil {
		out.Submissions = data
	}
	raws := verdict.ParseResults(out.Submissions)
	if raws == nil {
		logger.Warn(ctx, "judge response has no submissions array", zap.String("path", path))
	}
	return raws, nil
}

func (j *JudgeClient) wait(ctx context.Context) error {
	if err := j.limiter.Wait(ctx); err != nil {
		return errors.Wrapf(err, errors.SubmitTooFrequently, "judge call throttled")
	}
	return nil
}
