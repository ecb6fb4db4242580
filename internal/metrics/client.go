package metrics

import (
	"context"

	"github.com/ganot/dailylog/internal/tracking"
)

// InstrumentedClient counts calls and failures of a tracking.Client.
type InstrumentedClient struct {
	next    tracking.Client
	metrics *Metrics
}

// Instrument wraps next. A nil Metrics returns next unchanged.
func (m *Metrics) Instrument(next tracking.Client) tracking.Client {
	if m == nil {
		return next
	}
	return &InstrumentedClient{next: next, metrics: m}
}

func (c *InstrumentedClient) observe(op string, err error) {
	c.metrics.gatewayCalls.WithLabelValues(op).Inc()
	if err != nil {
		c.metrics.gatewayFailures.WithLabelValues(op).Inc()
	}
}

func (c *InstrumentedClient) CurrentUser(ctx context.Context, apiKey string) (*tracking.User, error) {
	u, err := c.next.CurrentUser(ctx, apiKey)
	c.observe("current_user", err)
	return u, err
}

func (c *InstrumentedClient) Project(ctx context.Context, apiKey string, id int) (*tracking.Project, error) {
	p, err := c.next.Project(ctx, apiKey, id)
	c.observe("get_project", err)
	return p, err
}

func (c *InstrumentedClient) Projects(ctx context.Context, apiKey string) ([]tracking.Project, error) {
	list, err := c.next.Projects(ctx, apiKey)
	c.observe("list_projects", err)
	return list, err
}

func (c *InstrumentedClient) CreateIssue(ctx context.Context, apiKey string, draft tracking.IssueDraft) (*tracking.Issue, error) {
	issue, err := c.next.CreateIssue(ctx, apiKey, draft)
	c.observe("create_issue", err)
	return issue, err
}

func (c *InstrumentedClient) TimeEntryActivities(ctx context.Context, apiKey string) ([]tracking.Activity, error) {
	list, err := c.next.TimeEntryActivities(ctx, apiKey)
	c.observe("list_activities", err)
	return list, err
}

func (c *InstrumentedClient) CreateTimeEntry(ctx context.Context, apiKey string, draft tracking.TimeEntryDraft) (*tracking.TimeEntry, error) {
	te, err := c.next.CreateTimeEntry(ctx, apiKey, draft)
	c.observe("create_time_entry", err)
	return te, err
}
