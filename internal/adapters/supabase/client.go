// Package supabase talks to a hosted Supabase project: GoTrue for password
// sign-in and sessions, PostgREST for table reads and writes.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/okian/locapi/internal/domain/model"
	"github.com/okian/locapi/pkg/logger"
)

const (
	clientInfo      = "locapi-go"
	maxResponseSize = 32 << 20
)

// Client is the auth and data client for one Supabase project. It is safe
// for concurrent use and meant to be built once per process.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	sessions   SessionStore
	storageKey string
	timeout    time.Duration
	returnRows bool
	now        func() time.Time
	logger     logger.Logger

	// refreshMu serializes token refreshes so one refresh token is spent once.
	refreshMu sync.Mutex
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithSessionStore sets where the current session is kept.
func WithSessionStore(s SessionStore) Option {
	return func(c *Client) {
		if s != nil {
			c.sessions = s
		}
	}
}

// WithTimeout caps every backend call. Zero disables the cap.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.timeout = d
		}
	}
}

// WithReturnRows makes writes return the affected rows instead of nothing.
func WithReturnRows(enabled bool) Option {
	return func(c *Client) {
		c.returnRows = enabled
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock overrides the time source used for session expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New constructs a Client for the project at baseURL authenticated with
// apiKey. Neither value is validated here; an empty URL fails on first use.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{},
		sessions:   NewMemoryStore(),
		now:        time.Now,
		logger:     logger.Nop(),
	}
	c.storageKey = StorageKey(c.baseURL)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StorageKey returns the session storage key used by Supabase clients for
// the project at baseURL: sb-<project-ref>-auth-token.
func StorageKey(baseURL string) string {
	ref := ""
	if u, err := url.Parse(baseURL); err == nil && u.Hostname() != "" {
		ref = strings.Split(u.Hostname(), ".")[0]
	}
	return "sb-" + ref + "-auth-token"
}

type request struct {
	method  string
	path    string
	query   url.Values
	body    any
	headers map[string]string
	bearer  string
	out     any
}

// do performs one backend call. Non-2xx replies become *model.UpstreamError.
func (c *Client) do(ctx context.Context, r request) error {
	if c.baseURL == "" {
		return fmt.Errorf("%w: supabaseUrl is required", ErrNotConfigured)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if r.body != nil {
		buf, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("%w: encode body: %w", ErrRequest, err)
		}
		body = bytes.NewReader(buf)
	}

	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequest, err)
	}

	bearer := r.bearer
	if bearer == "" {
		bearer = c.apiKey
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Client-Info", clientInfo)
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequest, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: read response: %w", ErrRequest, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return decodeError(resp.StatusCode, raw)
	}
	if r.out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(r.out); err != nil {
		return fmt.Errorf("%w: decode response: %w", ErrRequest, err)
	}
	return nil
}

// decodeError reads a GoTrue or PostgREST error body. The message is taken
// from the first of msg, message, error_description and error.
func decodeError(status int, raw []byte) *model.UpstreamError {
	ue := &model.UpstreamError{Status: status}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err == nil {
		ue.Message = firstString(fields, "msg", "message", "error_description", "error")
		ue.Code = firstString(fields, "error_code", "code")
		ue.Details = firstString(fields, "details")
		ue.Hint = firstString(fields, "hint")
	}
	if ue.Message == "" {
		ue.Message = strings.TrimSpace(string(raw))
	}
	if ue.Message == "" {
		ue.Message = http.StatusText(status)
	}
	return ue
}

func firstString(fields map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := fields[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%g", v)
		}
	}
	return ""
}
