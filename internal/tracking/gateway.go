package tracking

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

const labelDateLayout = "02-01-2006"

// Label builds the deterministic subject of a daily record:
// "[Daily][Team] DD-MM-YYYY".
func Label(teamName string, date time.Time) string {
	return fmt.Sprintf("[Daily][%s] %s", teamName, date.Format(labelDateLayout))
}

// Options tunes the gateway policy.
type Options struct {
	// BaseURL is the ticketing service root, used to build record links.
	BaseURL string
	// ActivityHint is matched case-insensitively against activity names.
	ActivityHint string
}

// Gateway applies the record-creation and time-logging policy on top of a
// Client.
type Gateway struct {
	client Client
	opts   Options
	logger *slog.Logger
}

// NewGateway creates a Gateway.
func NewGateway(client Client, opts Options, logger *slog.Logger) *Gateway {
	if opts.ActivityHint == "" {
		opts.ActivityHint = "meeting"
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Gateway{client: client, opts: opts, logger: logger}
}

// CreateSessionRecord creates the issue representing a daily, assigned to
// the credential's owner, and returns its id. Authentication failure,
// unknown project and transport failure all surface as *GatewayError.
func (g *Gateway) CreateSessionRecord(ctx context.Context, credential string, req RecordRequest) (int, error) {
	user, err := g.client.CurrentUser(ctx, credential)
	if err != nil {
		return 0, g.fail("current_user", err, "project_id", req.ProjectID)
	}

	issue, err := g.client.CreateIssue(ctx, credential, IssueDraft{
		ProjectID:    req.ProjectID,
		Subject:      req.Label,
		AssignedToID: user.ID,
		StartDate:    req.Date,
		DueDate:      req.Date,
	})
	if err != nil {
		return 0, g.fail("create_issue", err, "project_id", req.ProjectID, "subject", req.Label)
	}
	if issue == nil || issue.ID == 0 {
		return 0, g.fail("create_issue", errors.New("response carried no issue id"), "project_id", req.ProjectID)
	}

	g.logger.Info("daily record created", "issue_id", issue.ID, "project_id", req.ProjectID, "subject", req.Label)
	return issue.ID, nil
}

// LogTime logs hours against a record with the participant's credential.
// It never returns an error: any failure, including a missing activity,
// yields false.
func (g *Gateway) LogTime(ctx context.Context, entry TimeLog) bool {
	if entry.Hours <= 0 {
		g.logger.Warn("refusing to log non-positive hours", "issue_id", entry.RecordID, "hours", entry.Hours)
		return false
	}

	activities, err := g.client.TimeEntryActivities(ctx, entry.Credential)
	if err != nil {
		_ = g.fail("list_activities", err, "issue_id", entry.RecordID)
		return false
	}
	activity, ok := SelectActivity(activities, g.opts.ActivityHint)
	if !ok {
		g.logger.Warn("no time entry activity available", "issue_id", entry.RecordID)
		return false
	}

	created, err := g.client.CreateTimeEntry(ctx, entry.Credential, TimeEntryDraft{
		IssueID:    entry.RecordID,
		SpentOn:    entry.SpentOn,
		Hours:      entry.Hours,
		ActivityID: activity.ID,
		Comments:   entry.Comment,
	})
	if err != nil {
		_ = g.fail("create_time_entry", err, "issue_id", entry.RecordID, "activity", activity.Name)
		return false
	}

	g.logger.Debug("time logged", "issue_id", entry.RecordID, "time_entry_id", created.ID, "hours", entry.Hours, "activity", activity.Name)
	return true
}

// Project looks up one project with the given credential.
func (g *Gateway) Project(ctx context.Context, credential string, id int) (*Project, error) {
	proj, err := g.client.Project(ctx, credential, id)
	if err != nil {
		return nil, g.fail("get_project", err, "project_id", id)
	}
	return proj, nil
}

// Projects lists projects visible to the credential.
func (g *Gateway) Projects(ctx context.Context, credential string) ([]Project, error) {
	projects, err := g.client.Projects(ctx, credential)
	if err != nil {
		return nil, g.fail("list_projects", err)
	}
	return projects, nil
}

// RecordURL returns the browsable link of a record.
func (g *Gateway) RecordURL(id int) string {
	return fmt.Sprintf("%s/issues/%d", g.opts.BaseURL, id)
}

// SelectActivity prefers the first activity whose name contains hint
// (case-insensitive), else the first activity.
func SelectActivity(activities []Activity, hint string) (Activity, bool) {
	if len(activities) == 0 {
		return Activity{}, false
	}
	hint = strings.ToLower(hint)
	for _, a := range activities {
		if hint != "" && strings.Contains(strings.ToLower(a.Name), hint) {
			return a, true
		}
	}
	return activities[0], true
}

func (g *Gateway) fail(op string, err error, attrs ...any) error {
	args := append([]any{"op", op, "error", err}, attrs...)
	g.logger.Error("ticketing call failed", args...)
	return &GatewayError{Op: op, Err: err}
}
