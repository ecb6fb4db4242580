package tracking

import "context"

// Client is the ticketing-service API. Every call authenticates with the
// given API key.
type Client interface {
	CurrentUser(ctx context.Context, apiKey string) (*User, error)
	Project(ctx context.Context, apiKey string, id int) (*Project, error)
	Projects(ctx context.Context, apiKey string) ([]Project, error)
	CreateIssue(ctx context.Context, apiKey string, draft IssueDraft) (*Issue, error)
	TimeEntryActivities(ctx context.Context, apiKey string) ([]Activity, error)
	CreateTimeEntry(ctx context.Context, apiKey string, draft TimeEntryDraft) (*TimeEntry, error)
}
