// client/go/lockkeeper-client/client.go
package lockkeeperclient

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
)

// ErrUnknownLock is returned when the server has no lock of the requested name.
var ErrUnknownLock = errors.New("unknown lock")

// Client talks to the lockkeeper HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option is a function that configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// New creates a client for the server at address ("host:port" or a full URL).
func New(address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errors.New("server address cannot be empty")
	}
	if !strings.HasPrefix(address, "http://") && !strings.HasPrefix(address, "https://") {
		address = "http://" + address
	}

	c := &Client{
		baseURL:    strings.TrimRight(address, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Result is the outcome of an acquire call.
type Result struct {
	Acquired bool   `json:"acquired"`
	Message  string `json:"message,omitempty"`
}

// Acquire tries once to take lock name on suffix.
func (c *Client) Acquire(ctx context.Context, name, suffix string) (Result, error) {
	return c.acquire(ctx, "/v1/locks/"+url.PathEscape(name)+"/acquire", map[string]interface{}{"suffix": suffix})
}

// AcquireWait retries a busy lock on the server for up to maxWait.
func (c *Client) AcquireWait(ctx context.Context, name, suffix string, maxWait time.Duration) (Result, error) {
	return c.acquire(ctx, "/v1/locks/"+url.PathEscape(name)+"/acquire", map[string]interface{}{
		"suffix":    suffix,
		"maxWaitMs": maxWait.Milliseconds(),
	})
}

// Release deletes lock name on suffix.
func (c *Client) Release(ctx context.Context, name, suffix string) error {
	_, err := c.do(ctx, http.MethodPost, "/v1/locks/"+url.PathEscape(name)+"/release", map[string]string{"suffix": suffix}, nil, http.StatusNoContent)
	return err
}

// Check reports whether lock name on suffix is held.
func (c *Client) Check(ctx context.Context, name, suffix string) (bool, error) {
	var resp struct {
		Held bool `json:"held"`
	}
	path := "/v1/locks/" + url.PathEscape(name) + "/" + url.PathEscape(suffix)
	if _, err := c.do(ctx, http.MethodGet, path, nil, &resp, http.StatusOK); err != nil {
		return false, err
	}
	return resp.Held, nil
}

// AcquireBatch takes every suffix of lock name or none of them.
func (c *Client) AcquireBatch(ctx context.Context, name string, suffixes []string) (Result, error) {
	return c.acquire(ctx, "/v1/batches/"+url.PathEscape(name)+"/acquire", map[string]interface{}{"suffixes": suffixes})
}

// ReleaseBatch deletes every suffix of lock name.
func (c *Client) ReleaseBatch(ctx context.Context, name string, suffixes []string) error {
	_, err := c.do(ctx, http.MethodPost, "/v1/batches/"+url.PathEscape(name)+"/release", map[string]interface{}{"suffixes": suffixes}, nil, http.StatusNoContent)
	return err
}

// Health returns nil when the server answers its health check.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/health", nil, nil, http.StatusOK)
	return err
}

func (c *Client) acquire(ctx context.Context, path string, body interface{}) (Result, error) {
	var res Result
	// 409 carries the contention message in the same body as 200.
	if _, err := c.do(ctx, http.MethodPost, path, body, &res, http.StatusOK, http.StatusConflict); err != nil {
		return Result{}, err
	}
	return res, nil
}

// do sends a JSON request and decodes the response into out when the status is one of ok.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, ok ...int) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	for _, code := range ok {
		if resp.StatusCode != code {
			continue
		}
		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return resp.StatusCode, fmt.Errorf("decode response: %w", err)
			}
		}
		return resp.StatusCode, nil
	}

	return resp.StatusCode, responseError(resp)
}

func responseError(resp *http.Response) error {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	msg := body.Error
	if msg == "" {
		msg = body.Message
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrUnknownLock, msg)
	}
	return fmt.Errorf("lockkeeper: %s: %s", resp.Status, msg)
}
