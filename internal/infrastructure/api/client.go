// Package api is the HTTP client for the storefront REST backend: envelope
// decoding, the bearer/401 interceptor and thin endpoint wrappers.
package api

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

	"github.com/shoozy-shop/storefront/internal/shared/logger"
)

// Client talks to the REST backend rooted at baseURL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     logger.Interface
}

// Option is a function that configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(client *Client) {
		client.httpClient.Timeout = d
	}
}

// WithTransport routes every request through rt, typically an *AuthTransport.
func WithTransport(rt http.RoundTripper) Option {
	return func(client *Client) {
		client.httpClient.Transport = rt
	}
}

func WithLogger(l logger.Interface) Option {
	return func(client *Client) {
		client.logger = l
	}
}

// NewClient creates a REST client.
//
// Parameters:
//   - baseURL: the API root (e.g., "http://localhost:8080/api/v1")
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// envelope is the backend's standard response wrapper.
type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Do sends a request and decodes the data field of the response envelope
// into result. result may be nil.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, result any) error {
	respBody, err := c.send(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if result == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, result); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	return nil
}

// DoRaw is Do for endpoints that answer without the envelope.
func (c *Client) DoRaw(ctx context.Context, method, path string, query url.Values, body, result any) error {
	respBody, err := c.send(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if result == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rerr := newResponseError(resp.StatusCode, respBody)
		c.logger.Debugw("api request failed",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"code", rerr.Code,
		)
		return nil, rerr
	}

	return respBody, nil
}
