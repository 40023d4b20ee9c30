// Package httpjson is the shared JSON-over-HTTP plumbing used by the upstream API clients.
package httpjson

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const maxErrorBody = 4096

// StatusError is returned when the upstream answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(string(e.Body))
	if body == "" {
		return fmt.Sprintf("unexpected status %s", e.Status)
	}
	return fmt.Sprintf("unexpected status %s: %s", e.Status, body)
}

// Client sends JSON requests with a fixed set of headers.
type Client struct {
	rest *resty.Client
}

// NewClient wraps an HTTP client; nil gets a client with the given timeout.
func NewClient(client *http.Client, timeout time.Duration) *Client {
	var rest *resty.Client
	if client != nil {
		rest = resty.NewWithClient(client)
	} else {
		rest = resty.New().SetTimeout(timeout)
	}
	rest.SetHeader("Accept", "application/json")
	return &Client{rest: rest}
}

// WithHeader adds a header sent on every request.
func (c *Client) WithHeader(key, value string) *Client {
	c.rest.SetHeader(key, value)
	return c
}

// Get fetches url and decodes the JSON body into v.
func (c *Client) Get(ctx context.Context, url string, v any) error {
	return c.do(c.rest.R().SetContext(ctx), resty.MethodGet, url, v)
}

// Post sends payload as JSON and decodes the response into v (if non-nil).
func (c *Client) Post(ctx context.Context, url string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req := c.rest.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body)
	return c.do(req, resty.MethodPost, url, v)
}

// PostForm sends form fields url-encoded and decodes the response into v (if non-nil).
func (c *Client) PostForm(ctx context.Context, url string, fields map[string]string, v any) error {
	req := c.rest.R().
		SetContext(ctx).
		SetFormData(fields)
	return c.do(req, resty.MethodPost, url, v)
}

// Response bodies are decoded here rather than through SetResult so that
// upstreams without a JSON content type still decode.
func (c *Client) do(req *resty.Request, method, url string, v any) error {
	resp, err := req.Execute(method, url)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	if !resp.IsSuccess() {
		payload := resp.Body()
		if len(payload) > maxErrorBody {
			payload = payload[:maxErrorBody]
		}
		return &StatusError{StatusCode: resp.StatusCode(), Status: resp.Status(), Body: payload}
	}

	if v == nil {
		return nil
	}

	if err := json.Unmarshal(resp.Body(), v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
