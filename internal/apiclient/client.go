// Package apiclient is a typed client for the kindergarten REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// maxBodySize caps how much of a response is read
const maxBodySize = 4 << 20

// Client calls the kindergarten API. It is safe for concurrent use.
// Methods that need authorization take the bearer token of the calling session.
type Client struct {
	baseURL *url.URL
	timeout time.Duration
	base    http.RoundTripper
}

// Option configures a Client
type Option func(*Client)

// WithTransport replaces the underlying round tripper
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.base = rt }
}

// New creates a client for the API at baseURL. timeout bounds every request.
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q", baseURL)
	}

	c := &Client{
		baseURL: u,
		timeout: timeout,
		base:    http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// httpClient returns a client that attaches token as a bearer credential.
// An empty token yields an anonymous client.
func (c *Client) httpClient(token string) *http.Client {
	if token == "" {
		return &http.Client{Timeout: c.timeout, Transport: c.base}
	}
	return &http.Client{
		Timeout: c.timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   c.base,
		},
	}
}

// do sends a request with an optional JSON body and returns the raw response body.
// Non-2xx responses become *APIError.
func (c *Client) do(ctx context.Context, token, method, path string, in any) ([]byte, error) {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s %s request: %w", method, path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s %s request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json, text/plain")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient(token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%s %s: failed to read response: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp.StatusCode, data)
	}
	return data, nil
}

// doJSON is do followed by decoding the response into out
func (c *Client) doJSON(ctx context.Context, token, method, path string, in, out any) error {
	data, err := c.do(ctx, token, method, path, in)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: failed to decode response: %w", method, path, err)
	}
	return nil
}
