package mocks

import (
	"context"

	"github.com/ganot/dailylog/internal/tracking"
	"github.com/stretchr/testify/mock"
)

// Client is a mock for tracking.Client.
type Client struct {
	mock.Mock
}

func (m *Client) CurrentUser(ctx context.Context, apiKey string) (*tracking.User, error) {
	args := m.Called(ctx, apiKey)
	if u, ok := args.Get(0).(*tracking.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) Project(ctx context.Context, apiKey string, id int) (*tracking.Project, error) {
	args := m.Called(ctx, apiKey, id)
	if p, ok := args.Get(0).(*tracking.Project); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) Projects(ctx context.Context, apiKey string) ([]tracking.Project, error) {
	args := m.Called(ctx, apiKey)
	if list, ok := args.Get(0).([]tracking.Project); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) CreateIssue(ctx context.Context, apiKey string, draft tracking.IssueDraft) (*tracking.Issue, error) {
	args := m.Called(ctx, apiKey, draft)
	if issue, ok := args.Get(0).(*tracking.Issue); ok {
		return issue, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) TimeEntryActivities(ctx context.Context, apiKey string) ([]tracking.Activity, error) {
	args := m.Called(ctx, apiKey)
	if list, ok := args.Get(0).([]tracking.Activity); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) CreateTimeEntry(ctx context.Context, apiKey string, draft tracking.TimeEntryDraft) (*tracking.TimeEntry, error) {
	args := m.Called(ctx, apiKey, draft)
	if te, ok := args.Get(0).(*tracking.TimeEntry); ok {
		return te, args.Error(1)
	}
	return nil, args.Error(1)
}
