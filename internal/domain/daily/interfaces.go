package daily

import (
	"context"
	"time"

	"github.com/ganot/dailylog/internal/domain/activity"
	"github.com/ganot/dailylog/internal/domain/team"
)

// Store persists dailies. Every mutation is an atomic check-and-set.
// Implementations return repository.ErrNotFound and repository.ErrConflict.
type Store interface {
	// Open inserts d unless the group already has an open daily
	// (repository.ErrConflict).
	Open(ctx context.Context, d *Daily) error
	// Close sets the end time of an open daily. A missing or already
	// closed daily yields repository.ErrNotFound.
	Close(ctx context.Context, id string, endedAt time.Time) (*Daily, error)
	Active(ctx context.Context, groupID int64) (*Daily, error)
	// LatestUnregisteredClosed returns the most recently closed daily of
	// the group when it is not yet registered.
	LatestUnregisteredClosed(ctx context.Context, groupID int64) (*Daily, error)
	// MarkRegistered flips the registered flag once; a second call yields
	// repository.ErrConflict.
	MarkRegistered(ctx context.Context, id string) (*Daily, error)
	SetParticipants(ctx context.Context, id string, participants []int64) error
	Get(ctx context.Context, id string) (*Daily, error)
	ListByGroup(ctx context.Context, groupID int64, limit int) ([]Daily, error)
}

// TeamLookup resolves a group's binding.
type TeamLookup interface {
	ForGroup(ctx context.Context, groupID int64) (*team.Team, error)
}

// ActivityRecorder appends audit entries.
type ActivityRecorder interface {
	LogActivity(ctx context.Context, entry *activity.ActivityEntry) error
}
