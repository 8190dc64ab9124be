package schoolapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/masomo-admin/core"
)

// Error is a failed API call: a non-2xx status or an envelope with success=false.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string { return e.Message }

// StatusCode returns the HTTP status of an API error, or 0 when err is not one.
func StatusCode(err error) int {
	if apiErr, ok := errors.Cause(err).(*Error); ok {
		return apiErr.StatusCode
	}
	return 0
}

// envelope is the uniform response body of the API.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message,omitempty"`
}

// Client calls the school API over REST.
type Client struct {
	baseURL string
	http    *rest.Client

	mu    sync.RWMutex
	token string
}

func NewClient(conf core.APIConfig) *Client {
	timeout := conf.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(conf.BaseURL, "/"),
		http:    &rest.Client{HTTPClient: &http.Client{Timeout: timeout}},
		token:   conf.Token,
	}
}

// NewClientWithHTTP uses hc to send requests, e.g. an httptest server's client.
func NewClientWithHTTP(baseURL string, hc *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &rest.Client{HTTPClient: hc},
	}
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// do sends the request and decodes the envelope's data into out (when not nil).
// fallback is the error message used when the server does not give one.
func (c *Client) do(ctx context.Context, method rest.Method, path string, query map[string]string, in, out interface{}, fallback string) error {
	req := rest.Request{
		Method:      method,
		BaseURL:     c.baseURL + path,
		Headers:     map[string]string{"Accept": "application/json"},
		QueryParams: compact(query),
	}
	if token := c.Token(); token != "" {
		req.Headers["Authorization"] = "Bearer " + token
	}
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encoding request body")
		}
		req.Body = body
		req.Headers["Content-Type"] = "application/json"
	}

	res, err := c.http.SendWithContext(ctx, req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}

	var env envelope
	if res.Body != "" {
		if err := json.Unmarshal([]byte(res.Body), &env); err != nil && res.StatusCode < http.StatusBadRequest {
			return errors.Wrapf(err, "decoding %s %s response", method, path)
		}
	}
	if res.StatusCode >= http.StatusBadRequest || !env.Success {
		msg := env.Message
		if msg == "" {
			msg = fallback
		}
		if msg == "" {
			msg = fmt.Sprintf("request failed with status %d", res.StatusCode)
		}
		return &Error{StatusCode: res.StatusCode, Message: msg}
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return errors.Wrapf(err, "decoding %s %s data", method, path)
		}
	}
	return nil
}

// compact drops empty query values.
func compact(query map[string]string) map[string]string {
	if len(query) == 0 {
		return nil
	}
	out := make(map[string]string, len(query))
	for k, v := range query {
		if v != "" {
			out[k] = v
		}
	}
	return out
}
