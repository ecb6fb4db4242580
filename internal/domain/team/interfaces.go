package team

import (
	"context"

	"github.com/ganot/dailylog/internal/domain/account"
	"github.com/ganot/dailylog/internal/domain/activity"
	"github.com/ganot/dailylog/internal/tracking"
)

// Repository provides persistence for team bindings.
type Repository interface {
	GetByGroup(ctx context.Context, groupID int64) (*Team, error)
	// Replace removes any binding for the team's group and inserts team,
	// atomically. It returns the removed binding, or nil.
	Replace(ctx context.Context, team *Team) (*Team, error)
	Delete(ctx context.Context, id string) error
	ListByCreator(ctx context.Context, creatorID int64) ([]Team, error)
}

// Accounts resolves a requester and their credential.
type Accounts interface {
	ResolveByChatID(ctx context.Context, chatID int64) (*account.Account, error)
	CredentialFor(ctx context.Context, acct *account.Account) (string, bool)
}

// Projects looks up projects in the ticketing service.
type Projects interface {
	Project(ctx context.Context, credential string, id int) (*tracking.Project, error)
	Projects(ctx context.Context, credential string) ([]tracking.Project, error)
}

// ActivityRecorder appends audit entries.
type ActivityRecorder interface {
	LogActivity(ctx context.Context, entry *activity.ActivityEntry) error
}
