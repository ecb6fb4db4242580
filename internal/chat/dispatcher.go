package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ganot/dailylog/internal/domain/account"
	"github.com/ganot/dailylog/internal/domain/activity"
	"github.com/ganot/dailylog/internal/domain/daily"
	"github.com/ganot/dailylog/internal/domain/registration"
	"github.com/ganot/dailylog/internal/domain/team"
	"github.com/ganot/dailylog/internal/metrics"
	"github.com/ganot/dailylog/internal/tracking"
)

// Accounts stores requester credentials.
type Accounts interface {
	SaveCredential(ctx context.Context, req account.SaveCredentialRequest) (*account.Account, bool, error)
}

// Teams manages group bindings.
type Teams interface {
	Bind(ctx context.Context, req team.BindRequest) (*team.BindResult, error)
	Unbind(ctx context.Context, groupID, requesterID int64) (*team.Team, error)
	ListByCreator(ctx context.Context, creatorID int64) ([]team.Team, error)
	Projects(ctx context.Context, requesterID int64) ([]tracking.Project, error)
}

// Lifecycle opens and closes dailies.
type Lifecycle interface {
	SessionStarted(ctx context.Context, groupID int64, at time.Time) (*daily.Notice, error)
	SessionEnded(ctx context.Context, groupID int64, at time.Time) (*daily.Notice, error)
	Open(ctx context.Context, groupID int64) (*daily.Notice, error)
	Close(ctx context.Context, groupID int64) (*daily.Notice, error)
}

// Registrar registers closed dailies.
type Registrar interface {
	Register(ctx context.Context, req registration.Request) (*registration.Report, error)
}

// ActivityRecorder appends audit entries.
type ActivityRecorder interface {
	LogActivity(ctx context.Context, entry *activity.ActivityEntry) error
}

// Deps are the services a Dispatcher drives. Activity and Metrics are
// optional.
type Deps struct {
	Accounts  Accounts
	Teams     Teams
	Lifecycle Lifecycle
	Registrar Registrar
	Activity  ActivityRecorder
	Metrics   *metrics.Metrics
}

// Dispatcher routes commands and signals.
type Dispatcher struct {
	deps   Deps
	logger *slog.Logger
}

// ErrUnknownCommand is returned for commands the dispatcher does not know.
var ErrUnknownCommand = errors.New("unknown command")

// NewDispatcher creates a Dispatcher.
func NewDispatcher(deps Deps, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Dispatcher{deps: deps, logger: logger}
}

// HandleCommand runs one command. Business failures come back as reply text;
// the error is reserved for infrastructure failures and unknown commands.
func (d *Dispatcher) HandleCommand(ctx context.Context, cmd Command) (*Reply, error) {
	name := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(cmd.Name)), "/")
	if i := strings.IndexByte(name, '@'); i >= 0 {
		// "/daily@somebot" in groups
		name = name[:i]
	}
	d.logger.Debug("command received", "command", name, "requester_id", cmd.RequesterID, "group_id", cmd.GroupID, "private", cmd.Private)

	switch name {
	case "start", "help":
		return say(helpText), nil
	case "token":
		return d.token(ctx, cmd)
	case "projects":
		return d.projects(ctx, cmd)
	case "teams":
		return d.teams(ctx, cmd)
	case "team":
		return d.bind(ctx, cmd)
	case "team_delete":
		return d.unbind(ctx, cmd)
	case "daily":
		return d.register(ctx, cmd)
	case "daily_start":
		if cmd.Private {
			return say(groupOnly), nil
		}
		return d.lifecycle(ctx, "start", func() (*daily.Notice, error) { return d.deps.Lifecycle.Open(ctx, cmd.GroupID) }, true)
	case "daily_end":
		if cmd.Private {
			return say(groupOnly), nil
		}
		return d.lifecycle(ctx, "end", func() (*daily.Notice, error) { return d.deps.Lifecycle.Close(ctx, cmd.GroupID) }, true)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Name)
}

// HandleSignal reacts to a video chat starting or ending. Ignored signals
// produce a silent reply.
func (d *Dispatcher) HandleSignal(ctx context.Context, sig Signal) (*Reply, error) {
	switch sig.Kind {
	case SignalStart:
		return d.lifecycle(ctx, "start", func() (*daily.Notice, error) {
			return d.deps.Lifecycle.SessionStarted(ctx, sig.GroupID, sig.At)
		}, false)
	case SignalEnd:
		return d.lifecycle(ctx, "end", func() (*daily.Notice, error) {
			return d.deps.Lifecycle.SessionEnded(ctx, sig.GroupID, sig.At)
		}, false)
	}
	return nil, fmt.Errorf("unknown signal kind %q", sig.Kind)
}

const (
	privateOnly = "This command only works in a private chat with me."
	groupOnly   = "This command only works in a group."
)

func (d *Dispatcher) token(ctx context.Context, cmd Command) (*Reply, error) {
	if !cmd.Private {
		return say("Never share your API key in a group. Send /token API_KEY to me in a private chat."), nil
	}
	if len(cmd.Args) != 1 {
		return say("Usage: /token API_KEY"), nil
	}

	_, created, err := d.deps.Accounts.SaveCredential(ctx, account.SaveCredentialRequest{
		ChatID:     cmd.RequesterID,
		Handle:     cmd.RequesterHandle,
		Credential: cmd.Args[0],
	})
	if err != nil {
		if errors.Is(err, account.ErrInvalidInput) {
			return say("Usage: /token API_KEY"), nil
		}
		return nil, err
	}

	d.record(ctx, cmd.RequesterID, cmd.RequesterID, activity.TypeCredentialSaved, "API key stored")
	if created {
		return say("API key stored. You can now bind groups and register dailies."), nil
	}
	return say("API key updated."), nil
}

func (d *Dispatcher) projects(ctx context.Context, cmd Command) (*Reply, error) {
	if !cmd.Private {
		return say(privateOnly), nil
	}
	projects, err := d.deps.Teams.Projects(ctx, cmd.RequesterID)
	if err != nil {
		if msg, ok := renderTeamError(err); ok {
			return say(msg), nil
		}
		return nil, err
	}
	return say(renderProjects(projects)), nil
}

func (d *Dispatcher) teams(ctx context.Context, cmd Command) (*Reply, error) {
	if !cmd.Private {
		return say(privateOnly), nil
	}
	teams, err := d.deps.Teams.ListByCreator(ctx, cmd.RequesterID)
	if err != nil {
		return nil, err
	}
	return say(renderTeams(teams)), nil
}

func (d *Dispatcher) bind(ctx context.Context, cmd Command) (*Reply, error) {
	if cmd.Private {
		return say(groupOnly), nil
	}
	if !cmd.Admin {
		return say("Only group admins can bind this group."), nil
	}
	if len(cmd.Args) < 2 {
		return say("Usage: /team PROJECT_ID NAME"), nil
	}
	projectID, err := strconv.Atoi(cmd.Args[0])
	if err != nil || projectID <= 0 {
		return say("PROJECT_ID must be a positive number. Use /projects to list them."), nil
	}

	res, err := d.deps.Teams.Bind(ctx, team.BindRequest{
		GroupID:     cmd.GroupID,
		RequesterID: cmd.RequesterID,
		ProjectID:   projectID,
		Name:        strings.Join(cmd.Args[1:], " "),
	})
	if err != nil {
		if msg, ok := renderTeamError(err); ok {
			return say(msg), nil
		}
		return nil, err
	}
	return say(renderBind(res)), nil
}

func (d *Dispatcher) unbind(ctx context.Context, cmd Command) (*Reply, error) {
	if cmd.Private {
		return say(groupOnly), nil
	}
	removed, err := d.deps.Teams.Unbind(ctx, cmd.GroupID, cmd.RequesterID)
	if err != nil {
		if msg, ok := renderTeamError(err); ok {
			return say(msg), nil
		}
		return nil, err
	}
	return say(fmt.Sprintf("Team %q removed. This group is no longer bound.", removed.Name)), nil
}

func (d *Dispatcher) register(ctx context.Context, cmd Command) (*Reply, error) {
	if cmd.Private {
		return say(groupOnly), nil
	}
	handles := Mentions(cmd.Args)
	if len(handles) == 0 {
		return say("Usage: /daily @user1 @user2. Mention everyone who attended."), nil
	}

	report, err := d.deps.Registrar.Register(ctx, registration.Request{
		RequesterID: cmd.RequesterID,
		GroupID:     cmd.GroupID,
		Handles:     handles,
	})
	if err != nil {
		return nil, err
	}
	d.deps.Metrics.ObserveReport(report)
	return say(renderReport(report)), nil
}

func (d *Dispatcher) lifecycle(ctx context.Context, kind string, run func() (*daily.Notice, error), explicit bool) (*Reply, error) {
	notice, err := run()
	if err != nil {
		return nil, err
	}
	d.deps.Metrics.ObserveNotice(kind, notice)
	return renderNotice(notice, explicit), nil
}

// Mentions keeps the "@handle" tokens of a command and strips the marker.
// Other tokens are ignored.
func Mentions(args []string) []string {
	var out []string
	for _, arg := range args {
		for _, tok := range strings.Fields(arg) {
			if !strings.HasPrefix(tok, "@") {
				continue
			}
			h := strings.TrimRight(strings.TrimPrefix(tok, "@"), ",;")
			if h != "" {
				out = append(out, h)
			}
		}
	}
	return out
}

func (d *Dispatcher) record(ctx context.Context, groupID, actorID int64, kind activity.ActivityType, summary string) {
	if d.deps.Activity == nil {
		return
	}
	actor := actorID
	if err := d.deps.Activity.LogActivity(ctx, &activity.ActivityEntry{
		GroupID:      groupID,
		ActorID:      &actor,
		ActivityType: kind,
		Summary:      summary,
	}); err != nil {
		d.logger.Warn("activity log failed", "type", kind, "error", err)
	}
}
