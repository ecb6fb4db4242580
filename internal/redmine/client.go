// Package redmine implements tracking.Client against the Redmine REST API.
package redmine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ganot/dailylog/internal/tracking"
)

const (
	apiKeyHeader = "X-Redmine-API-Key"
	dateLayout   = "2006-01-02"
	pageSize     = 100
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("redmine %s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Is reports a 404 as tracking.ErrNotFound.
func (e *StatusError) Is(target error) bool {
	return target == tracking.ErrNotFound && e.Code == http.StatusNotFound
}

// Client talks to one Redmine instance.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client. A zero timeout leaves the http.Client unbounded.
func New(baseURL string, timeout time.Duration) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: timeout})
}

// NewWithHTTPClient creates a Client using hc for transport.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

var _ tracking.Client = (*Client)(nil)

func (c *Client) CurrentUser(ctx context.Context, apiKey string) (*tracking.User, error) {
	var out struct {
		User tracking.User `json:"user"`
	}
	if err := c.do(ctx, apiKey, http.MethodGet, "/users/current.json", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) Project(ctx context.Context, apiKey string, id int) (*tracking.Project, error) {
	var out struct {
		Project tracking.Project `json:"project"`
	}
	path := "/projects/" + strconv.Itoa(id) + ".json"
	if err := c.do(ctx, apiKey, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Project, nil
}

// Projects walks every page of the project listing.
func (c *Client) Projects(ctx context.Context, apiKey string) ([]tracking.Project, error) {
	var all []tracking.Project
	for offset := 0; ; {
		var page struct {
			Projects   []tracking.Project `json:"projects"`
			TotalCount int                `json:"total_count"`
		}
		q := url.Values{}
		q.Set("limit", strconv.Itoa(pageSize))
		q.Set("offset", strconv.Itoa(offset))
		if err := c.do(ctx, apiKey, http.MethodGet, "/projects.json", q, nil, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Projects...)
		offset += len(page.Projects)
		if len(page.Projects) == 0 || offset >= page.TotalCount {
			return all, nil
		}
	}
}

func (c *Client) CreateIssue(ctx context.Context, apiKey string, draft tracking.IssueDraft) (*tracking.Issue, error) {
	body := map[string]any{
		"issue": map[string]any{
			"project_id":     draft.ProjectID,
			"subject":        draft.Subject,
			"assigned_to_id": draft.AssignedToID,
			"start_date":     draft.StartDate.Format(dateLayout),
			"due_date":       draft.DueDate.Format(dateLayout),
		},
	}
	var out struct {
		Issue tracking.Issue `json:"issue"`
	}
	if err := c.do(ctx, apiKey, http.MethodPost, "/issues.json", nil, body, &out); err != nil {
		return nil, err
	}
	return &out.Issue, nil
}

func (c *Client) TimeEntryActivities(ctx context.Context, apiKey string) ([]tracking.Activity, error) {
	var out struct {
		Activities []struct {
			tracking.Activity
			Active *bool `json:"active"`
		} `json:"time_entry_activities"`
	}
	if err := c.do(ctx, apiKey, http.MethodGet, "/enumerations/time_entry_activities.json", nil, nil, &out); err != nil {
		return nil, err
	}
	activities := make([]tracking.Activity, 0, len(out.Activities))
	for _, a := range out.Activities {
		if a.Active != nil && !*a.Active {
			continue
		}
		activities = append(activities, a.Activity)
	}
	return activities, nil
}

func (c *Client) CreateTimeEntry(ctx context.Context, apiKey string, draft tracking.TimeEntryDraft) (*tracking.TimeEntry, error) {
	body := map[string]any{
		"time_entry": map[string]any{
			"issue_id":    draft.IssueID,
			"spent_on":    draft.SpentOn.Format(dateLayout),
			"hours":       draft.Hours,
			"activity_id": draft.ActivityID,
			"comments":    draft.Comments,
		},
	}
	var out struct {
		TimeEntry tracking.TimeEntry `json:"time_entry"`
	}
	if err := c.do(ctx, apiKey, http.MethodPost, "/time_entries.json", nil, body, &out); err != nil {
		return nil, err
	}
	return &out.TimeEntry, nil
}

func (c *Client) do(ctx context.Context, apiKey, method, path string, query url.Values, in, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding %s body: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("building %s request: %w", path, err)
	}
	req.Header.Set(apiKeyHeader, apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("redmine %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
