// Package taskclient is a Go client for the taskhub HTTP API together with a
// realtime-aware task cache.
package taskclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("taskhub: %d %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// Client keeps the session cookie in its own jar, so one Client is one
// signed-in user.
type Client struct {
	baseURL *url.URL
	http    *http.Client

	mu   sync.RWMutex
	user *User
}

func New(baseURL string) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{baseURL: u, http: &http.Client{Jar: jar}}, nil
}

// User returns the account this client signed in as, if any.
func (c *Client) User() (User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.user == nil {
		return User{}, false
	}
	return *c.user, true
}

func (c *Client) Register(ctx context.Context, name, email, password string) (User, error) {
	var user User
	body := credentials{Name: name, Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", nil, body, &user); err != nil {
		return User{}, err
	}
	c.setUser(&user)
	return user, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	var user User
	body := credentials{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, body, &user); err != nil {
		return User{}, err
	}
	c.setUser(&user)
	return user, nil
}

func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil, nil); err != nil {
		return err
	}
	c.setUser(nil)
	return nil
}

func (c *Client) ListTasks(ctx context.Context) ([]Task, error) {
	var tasks []Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks", nil, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *Client) GetTask(ctx context.Context, id string) (Task, error) {
	var task Task
	err := c.do(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(id), nil, nil, &task)
	return task, err
}

// CreateTask creates a task. A non-empty idempotencyKey makes retries of the
// same request return the task created by the first attempt.
func (c *Client) CreateTask(ctx context.Context, in CreateTaskRequest, idempotencyKey string) (Task, error) {
	var header http.Header
	if idempotencyKey != "" {
		header = http.Header{"Idempotency-Key": []string{idempotencyKey}}
	}
	var task Task
	err := c.do(ctx, http.MethodPost, "/api/tasks", header, in, &task)
	return task, err
}

func (c *Client) UpdateTask(ctx context.Context, id string, in UpdateTaskRequest) (Task, error) {
	var task Task
	err := c.do(ctx, http.MethodPut, "/api/tasks/"+url.PathEscape(id), nil, in, &task)
	return task, err
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) Stats(ctx context.Context) (TaskStats, error) {
	var stats TaskStats
	err := c.do(ctx, http.MethodGet, "/api/tasks/stats", nil, nil, &stats)
	return stats, err
}

// websocketURL maps the API base onto the realtime endpoint.
func (c *Client) websocketURL() string {
	u := *c.baseURL
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String()
}

func (c *Client) setUser(u *User) {
	c.mu.Lock()
	c.user = u
	c.mu.Unlock()
}

func (c *Client) do(ctx context.Context, method, path string, header http.Header, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return err
	}
	for k, v := range header {
		req.Header[k] = v
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var msg struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&msg)
		if msg.Message == "" {
			msg.Message = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg.Message}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
