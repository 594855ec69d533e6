// Client for the book-cataloging API
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/desertthunder/shelf/internal/shared"
)

// TokenSource yields the current session token. ok is false when no user is signed in.
type TokenSource interface {
	Token() (token string, ok bool)
}

// Client performs requests against the API origin with the session token attached.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a [Client] for baseURL, defaulting to [shared.DefaultBaseURL].
//
// The transport of client (or [http.DefaultTransport] when client is nil) is wrapped with an auth-injecting
// round tripper; the caller's client is copied, never mutated.
func NewClient(baseURL string, tokens TokenSource, client *http.Client) *Client {
	if baseURL == "" {
		baseURL = shared.DefaultBaseURL
	}

	wrapped := &http.Client{}
	if client != nil {
		*wrapped = *client
	}

	base := wrapped.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	wrapped.Transport = &authTransport{base: base, tokens: tokens}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: wrapped,
	}
}

// BaseURL returns the API origin requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// authTransport sets Authorization to the raw session token on every outgoing request.
type authTransport struct {
	base   http.RoundTripper
	tokens TokenSource
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Del("Authorization")

	if t.tokens != nil {
		if token, ok := t.tokens.Token(); ok && token != "" {
			req.Header.Set("Authorization", token)
		}
	}
	return t.base.RoundTrip(req)
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// OK reports whether the response has a 2xx status.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Err returns an [*APIError] for a non-2xx response, nil otherwise.
func (r *APIResponse) Err() error {
	if r.OK() {
		return nil
	}

	apiErr := &APIError{StatusCode: r.StatusCode, Body: r.Body}
	var payload struct {
		Error string `json:"error"`
	}
	if r.IsJSON && json.Unmarshal(r.Body, &payload) == nil {
		apiErr.Message = payload.Error
	}
	return apiErr
}

// APIError is a non-2xx API response.
type APIError struct {
	StatusCode int
	Message    string // "error" field of the response body, empty when absent
	Body       []byte
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API returned status %d", e.StatusCode)
}

func (e *APIError) Unwrap() error {
	return shared.ErrAPIRequest
}

// ErrorMessage returns the server-provided message carried by err, or fallback when there is none.
func ErrorMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// Do sends a request with an optional body and extra headers and returns the raw response.
//
// Any status code is returned as a response; only transport and read failures produce an error.
func (c *Client) Do(ctx context.Context, method, path string, data []byte, header http.Header) (*APIResponse, error) {
	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %w", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", shared.ErrAPIRequest, err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
	}

	var jsonData any
	if err := json.Unmarshal(respBody, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

// Get performs a GET request to the specified path and returns the raw response.
func (c *Client) Get(ctx context.Context, path string) (*APIResponse, error) {
	return c.Do(ctx, http.MethodGet, path, nil, nil)
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (c *Client) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	if data == nil {
		data = []byte{}
	}
	return c.Do(ctx, http.MethodPost, path, data, nil)
}

// Delete performs a DELETE request to the specified path and returns the raw response.
func (c *Client) Delete(ctx context.Context, path string) (*APIResponse, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// GetJSON fetches path and decodes a 2xx body into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	resp, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	return decode(resp, out)
}

// PostJSON encodes in as the request body, posts it to path and decodes a 2xx body into out.
//
// out may be nil when the response body is not needed.
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := c.Post(ctx, path, data)
	if err != nil {
		return err
	}
	return decode(resp, out)
}

// DeleteJSON deletes path and decodes a 2xx body into out, which may be nil.
func (c *Client) DeleteJSON(ctx context.Context, path string, out any) error {
	resp, err := c.Delete(ctx, path)
	if err != nil {
		return err
	}
	return decode(resp, out)
}

func decode(resp *APIResponse, out any) error {
	if err := resp.Err(); err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
