// Package client talks to the pomodoro HTTP API.
package client

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

	"github.com/verte-zerg/pomo/internal/model"
)

const defaultTimeout = 10 * time.Second

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d): %s", e.Status, e.Message)
}

// Temporary reports whether the call may succeed if retried.
func (e *APIError) Temporary() bool {
	return e.Status >= http.StatusInternalServerError
}

// Client is a JSON client for the pomodoro endpoints.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the API rooted at baseURL.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start calls POST /pomodoros/start/{userId}.
func (c *Client) Start(ctx context.Context, userID string, req model.StartRequest) (model.Session, error) {
	var out model.Session
	err := c.do(ctx, http.MethodPost, "/pomodoros/start/"+url.PathEscape(userID), req, &out)
	return out, err
}

// Log calls POST /pomodoros/log/{userId}.
func (c *Client) Log(ctx context.Context, userID string, req model.LogRequest) (model.Session, error) {
	var out model.Session
	err := c.do(ctx, http.MethodPost, "/pomodoros/log/"+url.PathEscape(userID), req, &out)
	return out, err
}

// List calls GET /pomodoros?userId=.
func (c *Client) List(ctx context.Context, userID string) ([]model.Session, error) {
	path := "/pomodoros"
	if userID != "" {
		path += "?" + url.Values{"userId": {userID}}.Encode()
	}
	var out []model.Session
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats calls GET /pomodoros/stats/{userId}.
func (c *Client) Stats(ctx context.Context, userID string) (model.Stats, error) {
	var out model.Stats
	err := c.do(ctx, http.MethodGet, "/pomodoros/stats/"+url.PathEscape(userID), nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			// Best-effort body close.
			_ = cerr
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if err := json.Unmarshal(data, &payload); err != nil || payload.Error == "" {
			payload.Error = strings.TrimSpace(string(data))
		}
		return &APIError{Status: resp.StatusCode, Message: payload.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
