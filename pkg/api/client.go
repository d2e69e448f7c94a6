// Package api is a typed HTTP client for the index server.
//
// It covers the ten endpoint operations the admin dashboard and the search
// surface consume. The client is stateless apart from its configuration:
// the base URL is fixed at construction and every request is bounded by a
// timeout so a stalled connection cannot hold a caller indefinitely.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL matches the index server's development address.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultTimeout bounds a single request when Config.Timeout is zero.
	DefaultTimeout = 5 * time.Second

	// RequestIDHeader carries a per-request correlation ID.
	RequestIDHeader = "X-Request-ID"

	maxErrorBody = 64 << 10
)

// Config configures a Client.
type Config struct {
	// BaseURL is the server root, e.g. "http://localhost:8000".
	BaseURL string

	// Timeout bounds each request. Zero means DefaultTimeout; negative
	// disables the client-side bound.
	Timeout time.Duration

	// RateLimit caps outgoing requests per second. Zero is unlimited.
	RateLimit float64

	// HTTPClient overrides the transport (tests, proxies).
	HTTPClient *http.Client

	// UserAgent is sent on every request when set.
	UserAgent string

	Logger *zap.Logger
}

// Client talks to the index server.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	timeout   time.Duration
	limiter   *rate.Limiter
	userAgent string
	logger    *zap.Logger
}

// New validates cfg and returns a Client.
func New(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", raw)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("base url %q: host is required", raw)
	}

	c := &Client{
		baseURL:   base,
		http:      cfg.HTTPClient,
		timeout:   cfg.Timeout,
		userAgent: cfg.UserAgent,
		logger:    cfg.Logger,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.timeout == 0 {
		c.timeout = DefaultTimeout
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return c, nil
}

// BaseURL returns the configured server root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// AuthStatus reports whether the server has an admin password configured.
func (c *Client) AuthStatus(ctx context.Context) (*AuthStatus, error) {
	var w authStatusWire
	if err := c.do(ctx, "auth status", http.MethodGet, []string{"auth", "status"}, nil, nil, &w); err != nil {
		return nil, err
	}
	st, err := w.toAuthStatus()
	if err != nil {
		return nil, &DecodeError{Op: "auth status", Err: err}
	}
	return st, nil
}

// Setup provisions the admin password on an unconfigured server.
func (c *Client) Setup(ctx context.Context, password string) error {
	body := map[string]string{"password": password}
	return c.do(ctx, "auth setup", http.MethodPost, []string{"auth", "setup"}, nil, body, nil)
}

// Login verifies the admin password.
func (c *Client) Login(ctx context.Context, password string) error {
	body := map[string]string{"password": password}
	return c.do(ctx, "auth login", http.MethodPost, []string{"auth", "login"}, nil, body, nil)
}

// ListSources returns every source in server order.
func (c *Client) ListSources(ctx context.Context) ([]Source, error) {
	var ws []sourceWire
	if err := c.do(ctx, "list sources", http.MethodGet, []string{"sources"}, nil, nil, &ws); err != nil {
		return nil, err
	}
	out := make([]Source, 0, len(ws))
	for i, w := range ws {
		src, err := w.toSource()
		if err != nil {
			return nil, &DecodeError{Op: "list sources", Err: fmt.Errorf("source %d: %w", i, err)}
		}
		out = append(out, src)
	}
	return out, nil
}

// CreateSource submits a new source. The created record is not returned;
// callers list again to observe it.
func (c *Client) CreateSource(ctx context.Context, in SourceCreate) error {
	return c.do(ctx, "create source", http.MethodPost, []string{"sources"}, nil, in, nil)
}

// DeleteSource removes a source and, server side, every directory indexed
// from it.
func (c *Client) DeleteSource(ctx context.Context, id int64) error {
	return c.do(ctx, "delete source", http.MethodDelete, []string{"sources", strconv.FormatInt(id, 10)}, nil, nil, nil)
}

// IndexStatus fetches the current job snapshot.
func (c *Client) IndexStatus(ctx context.Context) (*JobSnapshot, error) {
	var w snapshotWire
	if err := c.do(ctx, "index status", http.MethodGet, []string{"index", "status"}, nil, nil, &w); err != nil {
		return nil, err
	}
	snap, err := w.toSnapshot()
	if err != nil {
		return nil, &DecodeError{Op: "index status", Err: err}
	}
	return snap, nil
}

// TriggerIndex asks the server to start the background indexer. It returns
// once the request is acknowledged, not when the job finishes.
func (c *Client) TriggerIndex(ctx context.Context) error {
	return c.do(ctx, "trigger index", http.MethodPost, []string{"index"}, nil, nil, nil)
}

// Stats fetches the aggregate index summary.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var w statsWire
	if err := c.do(ctx, "stats", http.MethodGet, []string{"stats"}, nil, nil, &w); err != nil {
		return nil, err
	}
	st, err := w.toStats()
	if err != nil {
		return nil, &DecodeError{Op: "stats", Err: err}
	}
	return st, nil
}

// Search queries the directory index. A blank query returns no results
// without contacting the server.
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	var ws []searchResultWire
	q := url.Values{"q": []string{query}}
	if err := c.do(ctx, "search", http.MethodGet, []string{"search"}, q, nil, &ws); err != nil {
		return nil, err
	}
	out := make([]SearchResult, 0, len(ws))
	for i, w := range ws {
		res, err := w.toResult()
		if err != nil {
			return nil, &DecodeError{Op: "search", Err: fmt.Errorf("result %d: %w", i, err)}
		}
		out = append(out, res)
	}
	return out, nil
}

func (c *Client) endpoint(segments []string, query url.Values) string {
	u := c.baseURL.JoinPath(segments...)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) do(ctx context.Context, op, method string, segments []string, query url.Values, in any, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &TransportError{Op: op, Err: err}
		}
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: %s: encode request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	target := c.endpoint(segments, query)
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("api: %s: build request: %w", op, err)
	}
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("Request failed",
			zap.String("op", op),
			zap.String("method", method),
			zap.String("url", target),
			zap.String("request_id", requestID),
			zap.Error(err))
		return &TransportError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("Request completed",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("url", target),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return newStatusError(op, resp.StatusCode, b)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return &TransportError{Op: op, Err: err}
		}
		return &DecodeError{Op: op, Err: err}
	}
	return nil
}
