// Package client talks to the translation service over HTTP.
//
// OpenStream posts a translation request and hands back the raw
// text/event-stream body; framing and decoding happen in package sse.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ltwin/communication-translator/iox"
	"github.com/ltwin/communication-translator/types"
)

// Service paths.
const (
	TranslatePath = "/api/translate"
	HealthPath    = "/api/health"
)

// DefaultTimeout bounds the wait for response headers. The body of a
// translation stream is not subject to it.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of a non-2xx body is read for error details.
const maxErrorBody = 64 << 10

// Config configures the client.
type Config struct {
	// BaseURL is the service root, e.g. http://localhost:8080 (required).
	BaseURL string
	// Timeout bounds connection setup and response headers (default 30s).
	Timeout time.Duration
	// Headers are added to every request.
	Headers map[string]string
	// HTTPClient overrides the underlying client. Its transport is used as is.
	HTTPClient *http.Client
}

// Client is a translation service client. Safe for concurrent use.
type Client struct {
	baseURL *url.URL
	headers map[string]string
	timeout time.Duration
	http    *http.Client
}

// New creates a client from the given config.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("client requires a base URL")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	hc := cfg.HTTPClient
	if hc == nil {
		// No client-wide Timeout: it would cut off long streams.
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.ResponseHeaderTimeout = cfg.Timeout
		hc = &http.Client{Transport: transport}
	}

	return &Client{
		baseURL: u,
		headers: cfg.Headers,
		timeout: cfg.Timeout,
		http:    hc,
	}, nil
}

// BaseURL returns the configured service root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// OpenStream posts req to the translate endpoint and returns the streaming
// body once a 2xx response arrives. The caller must close the body; closing
// it or cancelling ctx tears the stream down.
//
// Non-2xx responses return *StatusError.
func (c *Client) OpenStream(ctx context.Context, req types.TranslationRequest) (io.ReadCloser, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, TranslatePath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("translate request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer iox.DiscardClose(resp.Body)
		return nil, newStatusError(resp)
	}
	return resp.Body, nil
}

// HealthStatus is the service health report.
type HealthStatus struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Health queries the health endpoint.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet, HealthPath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("health request failed: %w", err)
	}
	defer iox.DiscardClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newStatusError(resp)
	}

	var status HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode health response: %w", err)
	}
	return &status, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	u := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "commtrans/"+types.Version)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// StatusError is returned for non-2xx responses. Detail and ErrorCode come
// from the service's structured error body when present.
type StatusError struct {
	Code      int
	Detail    string
	ErrorCode string
}

func (e *StatusError) Error() string {
	switch {
	case e.Detail != "" && e.ErrorCode != "":
		return fmt.Sprintf("unexpected status %d (%s): %s", e.Code, e.ErrorCode, e.Detail)
	case e.Detail != "":
		return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Detail)
	default:
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
}

// UserMessage returns the server-provided detail, which takes precedence
// over the generic transport message when non-empty.
func (e *StatusError) UserMessage() string {
	return e.Detail
}

// IsStatusError returns true if err wraps a *StatusError.
func IsStatusError(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr)
}

// errorBody is the service's error envelope. Detail is a string for
// application errors and a list of field errors for request validation.
type errorBody struct {
	Detail    json.RawMessage `json:"detail"`
	ErrorCode string          `json:"error_code"`
}

type fieldError struct {
	Msg string `json:"msg"`
}

func newStatusError(resp *http.Response) *StatusError {
	statusErr := &StatusError{Code: resp.StatusCode}

	raw, err := iox.ReadLimited(resp.Body, maxErrorBody)
	if err != nil || len(raw) == 0 {
		return statusErr
	}
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return statusErr
	}
	statusErr.ErrorCode = body.ErrorCode
	statusErr.Detail = parseDetail(body.Detail)
	return statusErr
}

func parseDetail(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var fields []fieldError
	if err := json.Unmarshal(raw, &fields); err == nil {
		msgs := make([]string, 0, len(fields))
		for _, f := range fields {
			if f.Msg != "" {
				msgs = append(msgs, f.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
