package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ojarena/pkg/errors"
	"ojarena/pkg/utils/contextkey"
	"ojarena/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-Id"

// ResponseInfo carries response details.
type ResponseInfo struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
	RequestID  string
}

// Envelope is the backend's response wrapper.
type Envelope struct {
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Data    json.RawMessage        `json:"data,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
	TraceID string                 `json:"trace_id,omitempty"`
}

// Client wraps HTTP requests for the CLI.
type Client struct {
	baseURL       string
	timeout       time.Duration
	tokenProvider func() string
	httpClient    *http.Client
}

func New(baseURL string, timeout time.Duration, tokenProvider func() string) *Client {
	return &Client{
		baseURL:       baseURL,
		timeout:       timeout,
		tokenProvider: tokenProvider,
		httpClient:    &http.Client{},
	}
}

func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		c.timeout = timeout
	}
}

// Do sends one request. A transport failure, where no response was
// received, is returned as a NetworkError.
func (c *Client) Do(ctx context.Context, method, path string, headers map[string]string, body []byte) (ResponseInfo, error) {
	var info ResponseInfo
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, fmt.Sprintf("%s%s", c.baseURL, path), reader)
	if err != nil {
		return info, errors.Wrapf(err, errors.InvalidParams, "build request failed")
	}
	req.Header.Set("Content-Type", "application/json")
	info.RequestID = uuid.NewString()
	req.Header.Set(requestIDHeader, info.RequestID)
	for k, v := range headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}
	if c.tokenProvider != nil {
		if token := c.tokenProvider(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	ctx = context.WithValue(ctx, contextkey.RequestID, info.RequestID)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	info.Duration = time.Since(start)
	if err != nil {
		logger.Warn(ctx, "http request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		if ctx.Err() == context.DeadlineExceeded {
			return info, errors.Wrapf(err, errors.Timeout, "request timed out")
		}
		return info, errors.NetworkFailure(err)
	}
	defer func() { _ = resp.Body.Close() }()

	info.StatusCode = resp.StatusCode
	info.Headers = resp.Header
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return info, errors.NetworkFailure(fmt.Errorf("read response body: %w", err))
	}
	info.Body = bodyBytes
	logger.Debug(ctx, "http request done",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", info.StatusCode),
		zap.Duration("duration", info.Duration),
	)
	return info, nil
}

// Call sends in as JSON and decodes the envelope's data into out. A
// non-success envelope code or a non-2xx status becomes an *errors.Error.
func (c *Client) Call(ctx context.Context, method, path string, in, out interface{}) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return errors.Wrapf(err, errors.InvalidParams, "encode request failed")
		}
	}
	info, err := c.Do(ctx, method, path, nil, body)
	if err != nil {
		return err
	}
	data, err := DecodeEnvelope(info)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, errors.MalformedResponse, "decode %s %s response", method, path)
	}
	return nil
}

// DecodeEnvelope validates a response and returns its data payload.
func DecodeEnvelope(info ResponseInfo) (json.RawMessage, error) {
	var env Envelope
	parseErr := json.Unmarshal(info.Body, &env)
	ok := info.StatusCode >= 200 && info.StatusCode < 300

	switch {
	case parseErr == nil && env.Code != 0 && env.Code != int(errors.Success):
		e := errors.New(errors.ErrorCode(env.Code))
		if env.Message != "" {
			e = e.WithMessage(env.Message)
		}
		for k, v := range env.Details {
			e = e.WithDetail(k, v)
		}
		return nil, e.WithDetail("http_status", info.StatusCode)
	case !ok:
		e := errors.New(errors.FromHTTPStatus(info.StatusCode))
		if parseErr == nil && env.Message != "" {
			e = e.WithMessage(env.Message)
		}
		return nil, e.WithDetail("http_status", info.StatusCode)
	case parseErr != nil:
		return nil, errors.Wrapf(parseErr, errors.MalformedResponse, "response is not a JSON envelope")
	}
	return env.Data, nil
}
