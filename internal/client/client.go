// Package client is the task transport: it talks to the gateway's /api routes
// and normalizes date fields between wire text and time.Time.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/dohr-michael/taskdeck/internal/tasks"
)

// Client issues task operations against a gateway.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client (which has no timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a Client for the gateway at baseURL (e.g. "http://127.0.0.1:18420").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchAll returns every non-archived task. The cache is always bypassed.
func (c *Client) FetchAll(ctx context.Context) ([]tasks.Task, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/get_task", nil)
	if err != nil {
		return nil, &TransportError{Op: "fetch tasks", Err: err}
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	body, err := c.do(req, "fetch tasks")
	if err != nil {
		return nil, err
	}
	list, err := decodeTasks(body)
	if err != nil {
		return nil, &TransportError{Op: "fetch tasks", Status: http.StatusOK, Err: err}
	}
	slog.Debug("fetched tasks", "count", len(list))
	return list, nil
}

// Create posts a new task and returns it with backend-assigned fields.
func (c *Client) Create(ctx context.Context, t tasks.NewTask) (tasks.Task, error) {
	body, err := c.sendJSON(ctx, http.MethodPost, "/api/create_task", t, "create task")
	if err != nil {
		return tasks.Task{}, err
	}
	created, err := decodeTask(body)
	if err != nil {
		return tasks.Task{}, &TransportError{Op: "create task", Status: http.StatusOK, Err: err}
	}
	return created, nil
}

// Update sends a partial patch for task id.
func (c *Client) Update(ctx context.Context, id string, p tasks.Patch) (tasks.Task, error) {
	body, err := c.sendJSON(ctx, http.MethodPut, "/api/task/"+url.PathEscape(id), p, "update task")
	if err != nil {
		return tasks.Task{}, err
	}
	updated, err := decodeTask(body)
	if err != nil {
		return tasks.Task{}, &TransportError{Op: "update task", Status: http.StatusOK, Err: err}
	}
	return updated, nil
}

// Remove deletes task id. The success body is ignored.
func (c *Client) Remove(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/task/"+url.PathEscape(id), nil)
	if err != nil {
		return &TransportError{Op: "delete task", Err: err}
	}
	_, err = c.do(req, "delete task")
	return err
}

func (c *Client) sendJSON(ctx context.Context, method, path string, v any, op string) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("marshal body: %w", err)}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, op)
}

// do executes req and returns the body of a 2xx response.
func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{Op: op, Status: resp.StatusCode}
	}
	if err != nil {
		return nil, &TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	return body, nil
}
