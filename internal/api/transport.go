package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/fintx/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// Executor sends a [Request] and returns the raw response body.
type Executor interface {
	Execute(ctx context.Context, req Request) ([]byte, error)
}

// HTTPError is returned for any non-2xx response.
type HTTPError struct {
	Method string
	URL    string
	Status int
	Body   []byte
}

func (e *HTTPError) Error() string {
	msg := strings.TrimSpace(string(e.Body))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	if msg == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.Status)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Status, msg)
}

// Is matches [shared.ErrAPIRequest] for every status, [shared.ErrNotFound] for 404
// and [shared.ErrNotAuthenticated] for 401.
func (e *HTTPError) Is(target error) bool {
	switch target {
	case shared.ErrAPIRequest:
		return true
	case shared.ErrNotFound:
		return e.Status == http.StatusNotFound
	case shared.ErrNotAuthenticated:
		return e.Status == http.StatusUnauthorized
	}
	return false
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	return 0
}

// TransportOpts configures [NewTransport].
type TransportOpts struct {
	BaseURL     string
	HTTPClient  *http.Client
	TokenSource oauth2.TokenSource // nil or empty token omits the Authorization header
	RateLimit   float64            // requests per second, 0 disables limiting
	Logger      *log.Logger
}

// Transport is the default [Executor]: JSON over HTTP relative to a base URL.
type Transport struct {
	baseURL    string
	httpClient *http.Client
	tokens     oauth2.TokenSource
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewTransport creates a transport. It never retries.
func NewTransport(opts TransportOpts) *Transport {
	t := &Transport{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
		tokens:     opts.TokenSource,
		logger:     opts.Logger,
	}
	if t.baseURL == "" {
		t.baseURL = "http://localhost:8080/api"
	}
	if t.httpClient == nil {
		t.httpClient = http.DefaultClient
	}
	if t.logger == nil {
		t.logger = shared.NopLogger()
	}
	if opts.RateLimit > 0 {
		t.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	return t
}

// StaticToken returns a token source for a fixed bearer token, or nil when token is empty.
func StaticToken(token string) oauth2.TokenSource {
	if token == "" {
		return nil
	}
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
}

// BaseURL returns the configured base URL without a trailing slash.
func (t *Transport) BaseURL() string { return t.baseURL }

// Execute sends req and returns the response body.
func (t *Transport) Execute(ctx context.Context, req Request) ([]byte, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	fullURL := t.baseURL + req.Path

	httpReq, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	t.authorize(httpReq)

	t.logger.Debug("sending request", "method", method, "url", fullURL)

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		t.logger.Debug("request failed", "method", method, "url", fullURL, "status", resp.StatusCode)
		return nil, &HTTPError{Method: method, URL: fullURL, Status: resp.StatusCode, Body: data}
	}
	return data, nil
}

// authorize attaches the bearer token when one is available.
func (t *Transport) authorize(req *http.Request) {
	if t.tokens == nil {
		return
	}
	tok, err := t.tokens.Token()
	if err != nil {
		t.logger.Debug("no token available", "error", err)
		return
	}
	if tok == nil || tok.AccessToken == "" {
		return
	}
	tok.SetAuthHeader(req)
}
