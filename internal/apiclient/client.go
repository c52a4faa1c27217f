// Package apiclient is the only path from the client to the remote service.
// It attaches the bearer credential, classifies every response and turns a
// rejected credential into a cleared store plus an unauthorized signal.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"taskchat/internal/apperror"
)

// Credentials 凭证来源
// Credentials is the subset of the credential store the client needs
type Credentials interface {
	Get() (string, bool)
	Clear() error
}

// Outcome 请求结果分类
// Outcome is the classification of one call
type Outcome int

const (
	Success Outcome = iota
	Unauthorized
	Failure
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Unauthorized:
		return "unauthorized"
	default:
		return "failure"
	}
}

// Op 描述一次请求
// Op describes one request
type Op struct {
	Method string
	Path   string
	// Body is encoded as JSON when set.
	Body any
	// Raw is sent as-is with ContentType when set. It wins over Body.
	Raw         io.Reader
	ContentType string
	// Anonymous ops never carry a bearer and never count as Unauthorized.
	Anonymous bool
}

// UnauthorizedFunc is called once per Unauthorized classification, after the
// credential has been cleared.
type UnauthorizedFunc func()

// Options 客户端选项
// Options configures a Client
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client 认证 API 客户端
// Client is the authenticated API client
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      Credentials
	logger     *slog.Logger

	mu          sync.Mutex
	nextID      int
	subscribers map[int]UnauthorizedFunc
}

// New 创建客户端
// New creates a client bound to one credential store
func New(creds Credentials, opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:     strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		httpClient:  httpClient,
		creds:       creds,
		logger:      logger,
		subscribers: map[int]UnauthorizedFunc{},
	}
}

// BaseURL returns the service root every path is resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HasCredential reports whether a bearer would be attached right now.
func (c *Client) HasCredential() bool {
	_, ok := c.creds.Get()
	return ok
}

// Subscribe 注册未授权信号监听
// Subscribe registers fn for the unauthorized signal and returns its remover
func (c *Client) Subscribe(fn UnauthorizedFunc) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subscribers[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subscribers, id)
			c.mu.Unlock()
		})
	}
}

// Do 发送请求并分类结果
// Do sends op and decodes a 2xx payload into out (nil discards it).
// The returned error carries an apperror.Kind; see Classify.
func (c *Client) Do(ctx context.Context, op Op, out any) error {
	req, bearer, err := c.newRequest(ctx, op)
	if err != nil {
		return err
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("api call failed",
			slog.String("method", req.Method),
			slog.String("path", op.Path),
			slog.Duration("elapsed", time.Since(started)),
			slog.Any("error", err))
		return apperror.NewTransport(fmt.Errorf("%s %s: %w", req.Method, op.Path, err))
	}
	defer resp.Body.Close()

	data, readErr := io.ReadAll(resp.Body)
	c.logger.Debug("api call",
		slog.String("method", req.Method),
		slog.String("path", op.Path),
		slog.Int("status", resp.StatusCode),
		slog.Bool("bearer", bearer),
		slog.Duration("elapsed", time.Since(started)))
	if readErr != nil {
		return apperror.NewTransport(fmt.Errorf("read %s %s response: %w", req.Method, op.Path, readErr))
	}

	if rejectedCredential(op, bearer, resp.StatusCode) {
		c.revoke()
		return apperror.NewAuthRejected(resp.StatusCode, "")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperror.NewServerRejected(
			resp.StatusCode,
			parseDetail(data),
			fmt.Errorf("%s %s: status=%d body=%s", req.Method, op.Path, resp.StatusCode, truncateBody(data)),
		)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperror.NewServerRejected(resp.StatusCode, "The server sent an unreadable response.",
			fmt.Errorf("parse %s %s response: %w", req.Method, op.Path, err))
	}
	return nil
}

// Classify 将错误映射为结果分类
// Classify maps the error returned by Do onto its Outcome
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return Success
	case apperror.Is(err, apperror.KindAuthRejected):
		return Unauthorized
	default:
		return Failure
	}
}

func (c *Client) newRequest(ctx context.Context, op Op) (*http.Request, bool, error) {
	method := op.Method
	if method == "" {
		method = http.MethodGet
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case op.Raw != nil:
		body = op.Raw
		contentType = op.ContentType
	case op.Body != nil:
		encoded, err := json.Marshal(op.Body)
		if err != nil {
			return nil, false, fmt.Errorf("marshal %s %s body: %w", method, op.Path, err)
		}
		body = bytes.NewReader(encoded)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+op.Path, body)
	if err != nil {
		return nil, false, fmt.Errorf("create %s %s request: %w", method, op.Path, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	bearer := false
	if !op.Anonymous {
		if token, ok := c.creds.Get(); ok {
			req.Header.Set("Authorization", "Bearer "+token)
			bearer = true
		}
	}
	return req, bearer, nil
}

// rejectedCredential is true for 401 on a protected op, and for 403 when a
// protected op went out without any bearer.
func rejectedCredential(op Op, bearer bool, status int) bool {
	if op.Anonymous {
		return false
	}
	switch status {
	case http.StatusUnauthorized:
		return true
	case http.StatusForbidden:
		return !bearer
	default:
		return false
	}
}

// revoke clears the credential before any listener runs.
func (c *Client) revoke() {
	if err := c.creds.Clear(); err != nil {
		c.logger.Error("clear rejected credential", slog.Any("error", err))
	}

	c.mu.Lock()
	listeners := make([]UnauthorizedFunc, 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	c.logger.Info("credential rejected by server", slog.Int("listeners", len(listeners)))
	for _, fn := range listeners {
		fn()
	}
}

// parseDetail pulls the FastAPI style {"detail": ...} message. Validation
// errors carry a list; the first entry's msg is used.
func parseDetail(data []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	if len(payload.Detail) > 0 {
		var text string
		if err := json.Unmarshal(payload.Detail, &text); err == nil {
			return strings.TrimSpace(text)
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(payload.Detail, &items); err == nil && len(items) > 0 {
			return strings.TrimSpace(items[0].Msg)
		}
	}
	return strings.TrimSpace(payload.Message)
}

func truncateBody(data []byte) string {
	const limit = 512
	text := strings.TrimSpace(string(data))
	if len(text) > limit {
		return text[:limit] + "..."
	}
	return text
}

