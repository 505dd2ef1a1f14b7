// Package api is the HTTP client for the blog REST API: authentication,
// posts, categories and tags.
//
// The client never asks the session store for the credential. It reads the
// token slot straight from durable storage on every request, so a login or
// logout by another process takes effect on the next call.
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
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zhubert/quill/logger"
	"github.com/zhubert/quill/storage"
)

const (
	defaultHTTPTimeout = 30 * time.Second

	// requestIDHeader carries a per-request UUID for log correlation.
	requestIDHeader = "X-Request-ID"

	// maxErrorBody bounds how much of a failed response is read.
	maxErrorBody = 64 << 10
)

// Error is a non-2xx response from the API.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API returned status %d", e.StatusCode)
}

// errorBody is the server's error payload.
type errorBody struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// MessageOf returns the server-supplied message carried by err, if any.
func MessageOf(err error) (string, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message, true
	}
	return "", false
}

// IsStatus reports whether err is an API error with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// Client talks to one blog API server.
type Client struct {
	storage    storage.Storage
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a client for the API at baseURL that reads its bearer
// credential from st. A non-positive timeout uses the default.
func NewClient(baseURL string, st storage.Storage, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return NewClientWithHTTPClient(baseURL, st, &http.Client{Timeout: timeout})
}

// NewClientWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewClientWithHTTPClient(baseURL string, st storage.Storage, client *http.Client) *Client {
	return &Client{
		storage:    st,
		httpClient: client,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// BaseURL returns the API root the client sends requests to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do sends one request. body, when non-nil, is encoded as JSON; out, when
// non-nil, receives the decoded response.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, ok, err := c.storage.Get(ctx, storage.KeyCredential)
	if err != nil {
		return fmt.Errorf("failed to read credential: %w", err)
	}
	if ok && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	requestID := uuid.NewString()
	req.Header.Set(requestIDHeader, requestID)
	log := logger.WithRequest(requestID).With("component", "api", "method", method, "path", path)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn("request failed", "error", err)
		return fmt.Errorf("failed to %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	log.Debug("response received", "status", resp.StatusCode, "authenticated", ok, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{StatusCode: resp.StatusCode}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var eb errorBody
		if json.Unmarshal(data, &eb) == nil {
			apiErr.Message = eb.Message
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
