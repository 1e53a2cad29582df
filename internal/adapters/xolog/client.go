// Package xolog is the HTTP client for the freight backend's admin report,
// sync and auth endpoints.
package xolog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const (
	loginPath   = "/api/v1/auth/login"
	reportsPath = "/api/v1/admin/reports/"
	syncPath    = "/api/v1/sync/sync-"
)

type Config struct {
	BaseURL  string
	Email    string
	Password string

	// Timeout bounds a single HTTP round trip. Default 30s.
	Timeout time.Duration
	// TokenTTL is used when the token carries no readable expiry. Default 1h.
	TokenTTL time.Duration
	// DetailConcurrency bounds parallel invoice-detail calls. Default 4.
	DetailConcurrency int

	HTTPClient *http.Client
	Logger     *slog.Logger
}

type Client struct {
	base     string
	email    string
	password string
	ttl      time.Duration
	fanout   int

	loginTimeout time.Duration

	http *http.Client
	log  *slog.Logger
	now  func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
	logins  singleflight.Group
}

// New validates cfg and returns a client. No request is made until the first
// report call.
func New(cfg Config) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("xolog: invalid base url %q", cfg.BaseURL)
	}
	c := &Client{
		base:     strings.TrimRight(u.String(), "/"),
		email:    cfg.Email,
		password: cfg.Password,
		ttl:      cfg.TokenTTL,
		fanout:   cfg.DetailConcurrency,
		http:     cfg.HTTPClient,
		log:      cfg.Logger,
		now:      time.Now,
	}
	if c.ttl <= 0 {
		c.ttl = time.Hour
	}
	if c.fanout <= 0 {
		c.fanout = 4
	}
	c.loginTimeout = cfg.Timeout
	if c.loginTimeout <= 0 {
		c.loginTimeout = 30 * time.Second
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.loginTimeout}
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	return c, nil
}

// call performs an authenticated request. A 401 drops the cached token and
// the request is tried once more with a fresh one.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	tok, err := c.bearer(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := c.send(ctx, method, path, query, body, tok)
	if err == nil || tok == "" || !errors.Is(err, ErrUnauthorized) {
		return raw, err
	}
	c.invalidate(tok)
	if tok, err = c.bearer(ctx); err != nil {
		return nil, err
	}
	return c.send(ctx, method, path, query, body, tok)
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body any, token string) ([]byte, error) {
	reqID := uuid.New().String()
	start := time.Now()

	target := c.base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var rd io.Reader
	if body != nil {
		bs, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		rd = bytes.NewReader(bs)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.log.Debug("xolog.http.request", "req_id", reqID, "method", method, "path", path, "query", query.Encode())

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("xolog.http.send_error", "req_id", reqID, "path", path, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.log.Warn("xolog.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	c.log.Info("xolog.http.response",
		"req_id", reqID,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return raw, &StatusError{Status: resp.StatusCode, Message: errorMessage(raw), RequestID: reqID}
	}
	return raw, nil
}

// errorMessage pulls a human readable reason out of an error body.
func errorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 || strings.HasPrefix(s, "<") {
		return ""
	}
	return s
}
