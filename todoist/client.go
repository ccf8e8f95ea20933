// Package todoist provides a read-only client for the Todoist REST API v1.
//
// Information Hiding:
// - Endpoint paths and query encoding hidden
// - Bearer authentication hidden; the token never appears in errors
// - Error body truncation hidden
package todoist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the Todoist REST API v1 root.
const DefaultBaseURL = "https://api.todoist.com/api/v1"

const (
	maxErrorBody         = 512
	collaboratorPageSize = 200
)

// Client talks to the Todoist API with a personal access token.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient = &http.Client{Timeout: d}
	}
}

// NewClient creates a client for the given token.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    DefaultBaseURL,
		token:      token,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FilterTasks returns tasks matching a filter query.
func (c *Client) FilterTasks(ctx context.Context, q FilterQuery) (TaskPage, error) {
	params := url.Values{}
	params.Set("query", q.Query)
	setPaging(params, q.Limit, q.Cursor)

	var page TaskPage
	if err := c.get(ctx, "/tasks/filter", params, &page); err != nil {
		return TaskPage{}, err
	}
	return page, nil
}

// ListTasks returns active tasks, optionally restricted to a project,
// section, parent task or label.
func (c *Client) ListTasks(ctx context.Context, q ListQuery) (TaskPage, error) {
	params := url.Values{}
	if q.ProjectID != "" {
		params.Set("project_id", q.ProjectID)
	}
	if q.SectionID != "" {
		params.Set("section_id", q.SectionID)
	}
	if q.ParentID != "" {
		params.Set("parent_id", q.ParentID)
	}
	if q.Label != "" {
		params.Set("label", q.Label)
	}
	setPaging(params, q.Limit, q.Cursor)

	var page TaskPage
	if err := c.get(ctx, "/tasks", params, &page); err != nil {
		return TaskPage{}, err
	}
	return page, nil
}

// CurrentUser returns the account the token belongs to.
func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	var user User
	if err := c.get(ctx, "/user", nil, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// ProjectCollaborators returns every user sharing the project.
func (c *Client) ProjectCollaborators(ctx context.Context, projectID string) ([]Collaborator, error) {
	path := "/projects/" + url.PathEscape(projectID) + "/collaborators"

	var all []Collaborator
	cursor := ""
	for {
		params := url.Values{}
		setPaging(params, collaboratorPageSize, cursor)

		var page collaboratorPage
		if err := c.get(ctx, path, params, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Results...)
		if page.NextCursor == "" {
			return all, nil
		}
		cursor = page.NextCursor
	}
}

func setPaging(params url.Values, limit int, cursor string) {
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		params.Set("cursor", cursor)
	}
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("todoist %s: failed to create request: %w", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("todoist %s: request timed out: %w", path, ctx.Err())
		}
		return fmt.Errorf("todoist %s: request failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			Endpoint:   path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("todoist %s: failed to decode response: %w", path, err)
	}
	return nil
}
