package daily

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ganot/dailylog/internal/clock"
	"github.com/ganot/dailylog/internal/domain/activity"
	"github.com/ganot/dailylog/internal/domain/team"
	"github.com/ganot/dailylog/internal/grouplock"
	"github.com/ganot/dailylog/internal/repository"
	"github.com/google/uuid"
)

// NoticeKind classifies the result of a lifecycle signal.
type NoticeKind string

const (
	NoticeStarted NoticeKind = "started"
	NoticeEnded   NoticeKind = "ended"
	NoticeIgnored NoticeKind = "ignored"
)

// IgnoreReason explains why a signal changed nothing.
type IgnoreReason string

const (
	ReasonUnbound     IgnoreReason = "unbound"
	ReasonAlreadyOpen IgnoreReason = "already_open"
	ReasonNotOpen     IgnoreReason = "not_open"
)

// Notice is what the transport renders after a lifecycle signal.
type Notice struct {
	Kind     NoticeKind
	Reason   IgnoreReason
	Daily    *Daily
	Team     *team.Team
	Duration time.Duration
}

// Lifecycle opens and closes dailies in response to start and end signals.
// Calls for the same group are serialized through the shared group locker.
type Lifecycle struct {
	store    Store
	teams    TeamLookup
	locks    *grouplock.Locker
	clock    clock.Clock
	activity ActivityRecorder
	logger   *slog.Logger
}

// NewLifecycle creates a Lifecycle. activity may be nil.
func NewLifecycle(store Store, teams TeamLookup, locks *grouplock.Locker, clk clock.Clock, activity ActivityRecorder, logger *slog.Logger) *Lifecycle {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if clk == nil {
		clk = clock.Real()
	}
	if locks == nil {
		locks = grouplock.New()
	}
	return &Lifecycle{store: store, teams: teams, locks: locks, clock: clk, activity: activity, logger: logger}
}

// SessionStarted opens a daily unless the group is unbound or already has
// an open one. Duplicate start signals are no-ops.
func (l *Lifecycle) SessionStarted(ctx context.Context, groupID int64, at time.Time) (*Notice, error) {
	unlock := l.locks.Lock(groupID)
	defer unlock()

	t, err := l.teams.ForGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, team.ErrTeamNotFound) {
			l.logger.Info("start signal ignored", "group_id", groupID, "reason", ReasonUnbound)
			return &Notice{Kind: NoticeIgnored, Reason: ReasonUnbound}, nil
		}
		return nil, fmt.Errorf("resolving team: %w", err)
	}

	active, err := l.store.Active(ctx, groupID)
	switch {
	case err == nil:
		l.logger.Info("start signal ignored", "group_id", groupID, "reason", ReasonAlreadyOpen, "daily_id", active.ID)
		return &Notice{Kind: NoticeIgnored, Reason: ReasonAlreadyOpen, Daily: active, Team: t}, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("getting active daily: %w", err)
	}

	d := &Daily{
		ID:           uuid.New().String(),
		TeamID:       t.ID,
		GroupID:      groupID,
		StartedAt:    at,
		Participants: []int64{},
	}
	if err := l.store.Open(ctx, d); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			l.logger.Info("start signal ignored", "group_id", groupID, "reason", ReasonAlreadyOpen)
			return &Notice{Kind: NoticeIgnored, Reason: ReasonAlreadyOpen, Team: t}, nil
		}
		return nil, fmt.Errorf("opening daily: %w", err)
	}

	l.logger.Info("daily opened", "group_id", groupID, "daily_id", d.ID, "team", t.Name)
	l.record(ctx, d, activity.TypeDailyStarted, fmt.Sprintf("Daily started for %s", t.Name))
	return &Notice{Kind: NoticeStarted, Daily: d, Team: t}, nil
}

// SessionEnded closes the group's open daily. Registration is never
// triggered here; the notice asks the group to register explicitly.
func (l *Lifecycle) SessionEnded(ctx context.Context, groupID int64, at time.Time) (*Notice, error) {
	unlock := l.locks.Lock(groupID)
	defer unlock()

	active, err := l.store.Active(ctx, groupID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			l.logger.Info("end signal ignored", "group_id", groupID, "reason", ReasonNotOpen)
			return &Notice{Kind: NoticeIgnored, Reason: ReasonNotOpen}, nil
		}
		return nil, fmt.Errorf("getting active daily: %w", err)
	}

	if at.Before(active.StartedAt) {
		at = active.StartedAt
	}
	closed, err := l.store.Close(ctx, active.ID, at)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			l.logger.Info("end signal ignored", "group_id", groupID, "reason", ReasonNotOpen, "daily_id", active.ID)
			return &Notice{Kind: NoticeIgnored, Reason: ReasonNotOpen}, nil
		}
		return nil, fmt.Errorf("closing daily: %w", err)
	}

	duration := closed.Duration()
	l.logger.Info("daily closed", "group_id", groupID, "daily_id", closed.ID, "duration", duration)
	l.record(ctx, closed, activity.TypeDailyClosed, fmt.Sprintf("Daily closed after %s", FormatDuration(duration)))

	notice := &Notice{Kind: NoticeEnded, Daily: closed, Duration: duration}
	if t, err := l.teams.ForGroup(ctx, groupID); err == nil {
		notice.Team = t
	}
	return notice, nil
}

// Open is an explicit start request stamped with the current time.
func (l *Lifecycle) Open(ctx context.Context, groupID int64) (*Notice, error) {
	return l.SessionStarted(ctx, groupID, l.clock.Now())
}

// Close is an explicit end request stamped with the current time.
func (l *Lifecycle) Close(ctx context.Context, groupID int64) (*Notice, error) {
	return l.SessionEnded(ctx, groupID, l.clock.Now())
}

// Get returns one daily.
func (l *Lifecycle) Get(ctx context.Context, id string) (*Daily, error) {
	d, err := l.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDailyNotFound
		}
		return nil, fmt.Errorf("getting daily: %w", err)
	}
	return d, nil
}

// History lists a group's dailies, newest first.
func (l *Lifecycle) History(ctx context.Context, groupID int64, limit int) ([]Daily, error) {
	if limit <= 0 {
		limit = 20
	}
	dailies, err := l.store.ListByGroup(ctx, groupID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing dailies: %w", err)
	}
	return dailies, nil
}

func (l *Lifecycle) record(ctx context.Context, d *Daily, kind activity.ActivityType, summary string) {
	if l.activity == nil {
		return
	}
	id := d.ID
	if err := l.activity.LogActivity(ctx, &activity.ActivityEntry{
		GroupID:      d.GroupID,
		DailyID:      &id,
		ActivityType: kind,
		Summary:      summary,
	}); err != nil {
		l.logger.Warn("activity log failed", "group_id", d.GroupID, "type", kind, "error", err)
	}
}
