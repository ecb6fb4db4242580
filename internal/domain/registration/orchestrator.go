package registration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ganot/dailylog/internal/clock"
	"github.com/ganot/dailylog/internal/domain/account"
	"github.com/ganot/dailylog/internal/domain/activity"
	"github.com/ganot/dailylog/internal/domain/daily"
	"github.com/ganot/dailylog/internal/domain/team"
	"github.com/ganot/dailylog/internal/grouplock"
	"github.com/ganot/dailylog/internal/repository"
	"github.com/ganot/dailylog/internal/tracking"
	"golang.org/x/sync/errgroup"
)

// DefaultWindow is how long after close a daily may still be registered.
const DefaultWindow = 30 * time.Minute

// Accounts resolves chat identities.
type Accounts interface {
	ResolveByChatID(ctx context.Context, chatID int64) (*account.Account, error)
	ResolveByHandle(ctx context.Context, handle string) (*account.Account, error)
	CredentialFor(ctx context.Context, acct *account.Account) (string, bool)
}

// Teams resolves a group's binding.
type Teams interface {
	ForGroup(ctx context.Context, groupID int64) (*team.Team, error)
}

// Store is the part of the daily store registration mutates.
type Store interface {
	LatestUnregisteredClosed(ctx context.Context, groupID int64) (*daily.Daily, error)
	MarkRegistered(ctx context.Context, id string) (*daily.Daily, error)
	SetParticipants(ctx context.Context, id string, participants []int64) error
}

// Gateway creates tracking records and logs time against them.
type Gateway interface {
	CreateSessionRecord(ctx context.Context, credential string, req tracking.RecordRequest) (int, error)
	LogTime(ctx context.Context, entry tracking.TimeLog) bool
	RecordURL(id int) string
}

// ActivityRecorder appends audit entries.
type ActivityRecorder interface {
	LogActivity(ctx context.Context, entry *activity.ActivityEntry) error
}

// Deps are the collaborators of an Orchestrator. Activity is optional.
type Deps struct {
	Teams    Teams
	Accounts Accounts
	Store    Store
	Gateway  Gateway
	Locks    *grouplock.Locker
	Clock    clock.Clock
	Activity ActivityRecorder
}

// Options tunes registration policy.
type Options struct {
	Window      time.Duration
	Location    *time.Location
	Comment     string
	Concurrency int
}

// Request asks to register the group's last closed daily for the mentioned
// handles.
type Request struct {
	RequesterID int64
	GroupID     int64
	Handles     []string
}

// Orchestrator registers closed dailies: one tracking record per daily and
// one time entry per reachable participant.
type Orchestrator struct {
	deps   Deps
	opts   Options
	logger *slog.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(deps Deps, opts Options, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.Locks == nil {
		deps.Locks = grouplock.New()
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Comment == "" {
		opts.Comment = "Daily"
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	return &Orchestrator{deps: deps, opts: opts, logger: logger}
}

// Register runs the registration sequence. Business outcomes are reported
// in the Report; only infrastructure failures return an error.
func (o *Orchestrator) Register(ctx context.Context, req Request) (*Report, error) {
	unlock := o.deps.Locks.Lock(req.GroupID)
	defer unlock()

	log := o.logger.With("group_id", req.GroupID, "requester_id", req.RequesterID)

	t, err := o.deps.Teams.ForGroup(ctx, req.GroupID)
	if err != nil {
		if errors.Is(err, team.ErrTeamNotFound) {
			return &Report{Outcome: OutcomeNotBound}, nil
		}
		return nil, fmt.Errorf("resolving team: %w", err)
	}

	requester, err := o.deps.Accounts.ResolveByChatID(ctx, req.RequesterID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return &Report{Outcome: OutcomeNoCredential, Team: t}, nil
		}
		return nil, fmt.Errorf("resolving requester: %w", err)
	}
	credential, ok := o.deps.Accounts.CredentialFor(ctx, requester)
	if !ok {
		return &Report{Outcome: OutcomeNoCredential, Team: t}, nil
	}

	d, err := o.deps.Store.LatestUnregisteredClosed(ctx, req.GroupID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &Report{Outcome: OutcomeNothingToRegister, Team: t}, nil
		}
		return nil, fmt.Errorf("getting latest closed daily: %w", err)
	}
	report := &Report{Team: t, DailyID: d.ID, EndedAt: d.EndedAt, Window: o.opts.Window}
	if d.EndedAt == nil {
		report.Outcome = OutcomeStillOpen
		return report, nil
	}

	report.Elapsed = o.deps.Clock.Now().Sub(*d.EndedAt)
	if report.Elapsed > o.opts.Window {
		log.Info("registration window expired", "daily_id", d.ID, "elapsed", report.Elapsed)
		report.Outcome = OutcomeWindowExpired
		return report, nil
	}

	date := d.StartedAt.In(o.opts.Location)
	recordID, err := o.deps.Gateway.CreateSessionRecord(ctx, credential, tracking.RecordRequest{
		ProjectID: t.ProjectID,
		Label:     tracking.Label(t.Name, date),
		Date:      date,
	})
	if err != nil {
		report.Outcome = OutcomeRecordFailed
		report.cause = err
		return report, nil
	}
	// The record exists now; the rest must finish even if the caller goes
	// away, or a retry would create a second record.
	ctx = context.WithoutCancel(ctx)

	report.RecordID = recordID
	report.RecordURL = o.deps.Gateway.RecordURL(recordID)
	report.Duration = d.Duration()
	report.Hours = report.Duration.Hours()

	report.Participants = o.logParticipants(ctx, log, recordID, report.Hours, date, req.Handles)

	if _, err := o.deps.Store.MarkRegistered(ctx, d.ID); err != nil {
		log.Error("record created but daily not marked registered", "daily_id", d.ID, "record_id", recordID, "error", err)
		return nil, fmt.Errorf("marking daily %s registered: %w", d.ID, err)
	}
	report.Outcome = OutcomeRegistered

	var participants []int64
	for _, p := range report.Participants {
		if p.ChatID != 0 {
			participants = append(participants, p.ChatID)
		}
	}
	if len(participants) > 0 {
		if err := o.deps.Store.SetParticipants(ctx, d.ID, participants); err != nil {
			log.Warn("recording participants failed", "daily_id", d.ID, "error", err)
		}
	}

	log.Info("daily registered", "daily_id", d.ID, "record_id", recordID,
		"logged", len(report.Logged()), "not_found", len(report.NotFound()),
		"no_credential", len(report.NoCredential()), "failed", len(report.Failed()))
	o.record(ctx, req, d.ID, fmt.Sprintf("Daily registered as #%d (%s)", recordID, daily.FormatDuration(report.Duration)))
	return report, nil
}

// logParticipants resolves each handle in order, then logs time for the
// reachable ones concurrently. Results are written by index so the report
// keeps input order.
func (o *Orchestrator) logParticipants(ctx context.Context, log *slog.Logger, recordID int, hours float64, date time.Time, raw []string) []ParticipantResult {
	handles := NormalizeHandles(raw)
	results := make([]ParticipantResult, len(handles))
	credentials := make([]string, len(handles))

	for i, handle := range handles {
		results[i].Handle = handle
		acct, err := o.deps.Accounts.ResolveByHandle(ctx, handle)
		if err != nil {
			if !errors.Is(err, account.ErrAccountNotFound) {
				log.Warn("participant lookup failed", "handle", handle, "error", err)
			}
			results[i].Bucket = BucketNotFound
			continue
		}
		results[i].ChatID = acct.ChatID
		credential, ok := o.deps.Accounts.CredentialFor(ctx, acct)
		if !ok {
			results[i].Bucket = BucketNoCredential
			continue
		}
		credentials[i] = credential
	}

	var g errgroup.Group
	g.SetLimit(o.opts.Concurrency)
	for i := range results {
		if credentials[i] == "" {
			continue
		}
		g.Go(func() error {
			logged := o.deps.Gateway.LogTime(ctx, tracking.TimeLog{
				RecordID:   recordID,
				Credential: credentials[i],
				Hours:      hours,
				Comment:    o.opts.Comment,
				SpentOn:    date,
			})
			if logged {
				results[i].Bucket = BucketLogged
			} else {
				log.Warn("participant time logging failed", "handle", results[i].Handle, "record_id", recordID)
				results[i].Bucket = BucketFailed
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// NormalizeHandles strips the mention marker and drops empty and repeated
// handles, keeping first occurrences.
func NormalizeHandles(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, h := range raw {
		h = strings.TrimPrefix(strings.TrimSpace(h), "@")
		if h == "" {
			continue
		}
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}

func (o *Orchestrator) record(ctx context.Context, req Request, dailyID, summary string) {
	if o.deps.Activity == nil {
		return
	}
	actor := req.RequesterID
	if err := o.deps.Activity.LogActivity(ctx, &activity.ActivityEntry{
		GroupID:      req.GroupID,
		ActorID:      &actor,
		DailyID:      &dailyID,
		ActivityType: activity.TypeDailyRegistered,
		Summary:      summary,
	}); err != nil {
		o.logger.Warn("activity log failed", "group_id", req.GroupID, "error", err)
	}
}
