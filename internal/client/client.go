// Package client is an HTTP client for the greenhouse-controller API.
package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/sweeney/greenhouse-controller/internal/greenhouse"
	"github.com/sweeney/greenhouse-controller/internal/history"
	"github.com/sweeney/greenhouse-controller/internal/logic"
)

// DefaultTimeout bounds a single API call.
const DefaultTimeout = 10 * time.Second

// APIError is a non-2xx response from the daemon.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("api: %d: %s", e.StatusCode, e.Message)
}

// errorBody is the daemon's error envelope.
type errorBody struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

type controlBody struct {
	Command string `json:"command"`
}

type triggersBody struct {
	Triggers []logic.TriggerState `json:"triggers"`
}

// Client calls the daemon's JSON API.
type Client struct {
	http *resty.Client
}

// New creates a Client for the daemon at baseURL, e.g. "http://127.0.0.1:8080".
func New(baseURL string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Client{http: c}
}

func (c *Client) do(ctx context.Context, method, path string, body, result any, query map[string]string) error {
	var apiErr errorBody
	req := c.http.R().SetContext(ctx).SetError(&apiErr)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}
	if query != nil {
		req.SetQueryParams(query)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		return &APIError{StatusCode: resp.StatusCode(), Message: apiErr.Error}
	}
	return nil
}

// Latest returns the newest reading. ok is false when the daemon has none.
func (c *Client) Latest(ctx context.Context) (logic.Reading, bool, error) {
	var r logic.Reading
	if err := c.do(ctx, http.MethodGet, "/api/data", nil, &r, nil); err != nil {
		return logic.Reading{}, false, err
	}
	return r, !r.Timestamp.IsZero(), nil
}

// Command sends a wire token such as "W1" or "F:128".
func (c *Client) Command(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/api/control", controlBody{Command: token}, nil, nil)
}

// Triggers evaluates the triggers on the daemon and returns their states.
func (c *Client) Triggers(ctx context.Context) ([]logic.TriggerState, error) {
	var body triggersBody
	if err := c.do(ctx, http.MethodGet, "/api/triggers", nil, &body, nil); err != nil {
		return nil, err
	}
	return body.Triggers, nil
}

// Reset re-applies the reconciled actuator state.
func (c *Client) Reset(ctx context.Context) (greenhouse.ResetResult, error) {
	var res greenhouse.ResetResult
	err := c.do(ctx, http.MethodPost, "/api/reset", nil, &res, nil)
	return res, err
}

// History returns the minute-bucketed window [start, end].
func (c *Client) History(ctx context.Context, start, end time.Time) (history.Result, error) {
	var res history.Result
	err := c.do(ctx, http.MethodGet, "/api/history", nil, &res, map[string]string{
		"start": start.UTC().Format(time.RFC3339),
		"end":   end.UTC().Format(time.RFC3339),
	})
	return res, err
}
