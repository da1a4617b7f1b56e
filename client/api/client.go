package api

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

var (
	ErrUnauthorized = errors.New("authentication failed, please sign in again")
	ErrForbidden    = errors.New("you do not have permission to perform this action")
)

// APIError - ответ сервера с кодом не 2xx
type APIError struct {
	Status  int
	Message string
	Details string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("api error %d: %s (%s)", e.Status, e.Message, e.Details)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Unwrap позволяет проверять 401/403 через errors.Is
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	}
	return nil
}

type TaskMessage struct {
	Message string      `json:"message"`
	Task    BackendTask `json:"task"`
}

type User struct {
	ID        string    `json:"_id"`
	ClerkID   string    `json:"clerkId"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) ListQuests(ctx context.Context) ([]BackendTask, error) {
	var tasks []BackendTask
	if err := c.do(ctx, http.MethodGet, "/quests", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *Client) GetQuest(ctx context.Context, id string) (BackendTask, error) {
	var task BackendTask
	err := c.do(ctx, http.MethodGet, "/quests/"+url.PathEscape(id), nil, &task)
	return task, err
}

func (c *Client) CreateQuest(ctx context.Context, p Payload) (TaskMessage, error) {
	var out TaskMessage
	err := c.do(ctx, http.MethodPost, "/quests", p, &out)
	return out, err
}

func (c *Client) UpdateQuest(ctx context.Context, id string, p Payload) (TaskMessage, error) {
	var out TaskMessage
	err := c.do(ctx, http.MethodPatch, "/quests/"+url.PathEscape(id), p, &out)
	return out, err
}

func (c *Client) ToggleComplete(ctx context.Context, id string) (TaskMessage, error) {
	var out TaskMessage
	err := c.do(ctx, http.MethodPatch, "/quests/"+url.PathEscape(id)+"/complete", nil, &out)
	return out, err
}

func (c *Client) DeleteQuest(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/quests/"+url.PathEscape(id), nil, nil)
}

// Summary запрашивает сводку дня; пустой date - сегодня по часам сервера
func (c *Client) Summary(ctx context.Context, date string) (string, error) {
	path := "/quests/wakie-wakie"
	if date != "" {
		path += "?date=" + url.QueryEscape(date)
	}
	var out struct {
		Summary string `json:"summary"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return "", err
	}
	return out.Summary, nil
}

func (c *Client) Me(ctx context.Context) (User, error) {
	var u User
	err := c.do(ctx, http.MethodGet, "/users/me", nil, &u)
	return u, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var e struct {
			Error   string `json:"error"`
			Message string `json:"message"`
			Details string `json:"details"`
		}
		if json.Unmarshal(respBody, &e) == nil {
			switch {
			case e.Message != "":
				apiErr.Message = e.Message
			case e.Error != "":
				apiErr.Message = e.Error
			}
			apiErr.Details = e.Details
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
