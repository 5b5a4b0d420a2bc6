// Package apiclient is a typed JSON-over-HTTP client for the healthcare
// backend. Each method maps to one backend endpoint; the principal's token
// travels in the request context and is attached by the client's transport.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"healthcare-portal/internal/config"
)

var (
	// ErrNetworkFailure wraps transport-level failures: the backend never answered.
	ErrNetworkFailure = errors.New("network failure")
	// ErrRejected matches any non-2xx backend answer.
	ErrRejected = errors.New("rejected by backend")
	// ErrUnauthorized matches 401 answers.
	ErrUnauthorized = errors.New("unauthorized")
)

// APIError is a non-2xx backend answer.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned HTTP %d: %s", e.StatusCode, e.Message)
}

// Unwrap lets errors.Is match ErrRejected, and ErrUnauthorized for 401s.
func (e *APIError) Unwrap() []error {
	if e.StatusCode == http.StatusUnauthorized {
		return []error{ErrRejected, ErrUnauthorized}
	}
	return []error{ErrRejected}
}

// UnauthorizedFunc runs when the backend answers 401 to a request made with ctx.
type UnauthorizedFunc func(ctx context.Context)

// Client talks to the backend API.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	statusCase     string
	log            zerolog.Logger
	onUnauthorized UnauthorizedFunc
}

// Option configures a Client.
type Option func(*Client)

// WithTransport replaces the underlying round tripper; the credential
// transport still wraps it.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.httpClient.Transport.(*credentialTransport).base = rt
	}
}

// WithUnauthorizedHook registers fn to run on 401 answers.
func WithUnauthorizedHook(fn UnauthorizedFunc) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// WithStatusCase selects how appointment statuses are spelled on the wire
// ("upper" or "title").
func WithStatusCase(casing string) Option {
	return func(c *Client) { c.statusCase = casing }
}

// New creates a Client for the backend described by cfg.
func New(cfg config.APIConfig, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &credentialTransport{base: http.DefaultTransport, scheme: cfg.AuthScheme},
		},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		statusCase: "upper",
		log:        log.With().Str("component", "apiclient").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tokenKey struct{}

// WithToken returns a context whose requests carry token as their credential.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the credential stored by WithToken.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// credentialTransport attaches the caller's token and a request id to every
// outbound request.
type credentialTransport struct {
	base   http.RoundTripper
	scheme string
}

func (t *credentialTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if token := TokenFromContext(req.Context()); token != "" {
		if t.scheme != "" {
			req.Header.Set("Authorization", t.scheme+" "+token)
		} else {
			req.Header.Set("Authorization", token)
		}
	}
	if req.Header.Get("X-Request-ID") == "" {
		req.Header.Set("X-Request-ID", uuid.NewString())
	}
	return t.base.RoundTrip(req)
}

// do sends a request and decodes a JSON answer into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrNetworkFailure, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
		if resp.StatusCode == http.StatusUnauthorized {
			c.log.Warn().Str("method", method).Str("path", path).Msg("backend rejected credential")
			if c.onUnauthorized != nil {
				c.onUnauthorized(ctx)
			}
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read %s %s: %w", ErrNetworkFailure, method, path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = data
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// errorMessage extracts a human readable message from an error body. The
// backend answers either {"message": ...}, {"error": ...} or plain text.
func errorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(data, &envelope) == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Error != "" {
			return envelope.Error
		}
	}
	return strings.TrimSpace(string(data))
}
