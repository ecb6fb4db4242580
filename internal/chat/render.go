package chat

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ganot/dailylog/internal/domain/daily"
	"github.com/ganot/dailylog/internal/domain/registration"
	"github.com/ganot/dailylog/internal/domain/team"
	"github.com/ganot/dailylog/internal/tracking"
)

const helpText = `Daily meeting tracker

Private chat:
  /token API_KEY       store your ticketing API key (encrypted)
  /projects            list the projects your key can see
  /teams               list the teams you created

Groups:
  /team PROJECT_ID NAME   bind this group to a project (admins)
  /team_delete            remove the binding (creator only)
  /daily @user1 @user2    register the last meeting and log time
  /daily_start            start tracking a meeting now
  /daily_end              stop tracking the current meeting

Video chats in bound groups are tracked automatically.`

func renderReport(r *registration.Report) string {
	switch r.Outcome {
	case registration.OutcomeNotBound:
		return "This group is not bound to a project. An admin can bind it with /team PROJECT_ID NAME."
	case registration.OutcomeNoCredential:
		return "You have no usable API key. Send /token API_KEY to me in a private chat first."
	case registration.OutcomeNothingToRegister:
		return "There is no finished meeting waiting to be registered."
	case registration.OutcomeStillOpen:
		return "The meeting is still in progress. Register it once it has ended."
	case registration.OutcomeWindowExpired:
		return fmt.Sprintf("Too late to register: the meeting ended %s ago (limit %s).",
			formatElapsed(r.Elapsed), formatElapsed(r.Window))
	case registration.OutcomeRecordFailed:
		return "Could not create the meeting record in the ticketing service. Check your API key and the project, then try again."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Daily registered: #%d\n%s\n", r.RecordID, r.RecordURL)
	fmt.Fprintf(&b, "Duration: %s\n", daily.FormatDuration(r.Duration))
	writeBucket(&b, "Time logged", r.Logged())
	writeBucket(&b, "Unknown users", r.NotFound())
	writeBucket(&b, "No API key", r.NoCredential())
	writeBucket(&b, "Logging failed", r.Failed())
	return strings.TrimRight(b.String(), "\n")
}

func writeBucket(b *strings.Builder, title string, handles []string) {
	if len(handles) == 0 {
		return
	}
	mentions := make([]string, len(handles))
	for i, h := range handles {
		mentions[i] = "@" + h
	}
	fmt.Fprintf(b, "%s: %s\n", title, strings.Join(mentions, ", "))
}

func renderNotice(n *daily.Notice, explicit bool) *Reply {
	switch n.Kind {
	case daily.NoticeStarted:
		name := ""
		if n.Team != nil {
			name = " for " + n.Team.Name
		}
		return say(fmt.Sprintf("Meeting tracking started%s at %s.", name, n.Daily.StartedAt.Format("15:04")))
	case daily.NoticeEnded:
		return say(fmt.Sprintf("Meeting ended after %s. Register it with /daily @user1 @user2 within the next minutes.",
			daily.FormatDuration(n.Duration)))
	}

	if !explicit {
		return &Reply{Silent: true}
	}
	switch n.Reason {
	case daily.ReasonUnbound:
		return say("This group is not bound to a project. An admin can bind it with /team PROJECT_ID NAME.")
	case daily.ReasonAlreadyOpen:
		return say("A meeting is already being tracked in this group.")
	default:
		return say("No meeting is being tracked in this group.")
	}
}

func renderBind(res *team.BindResult) string {
	msg := fmt.Sprintf("Group bound to project %s (#%d) as team %q.", res.Team.ProjectCode, res.Team.ProjectID, res.Team.Name)
	if res.Previous != nil {
		msg += fmt.Sprintf(" Replaced previous binding to %s.", res.Previous.ProjectCode)
	}
	return msg
}

func renderTeams(teams []team.Team) string {
	if len(teams) == 0 {
		return "You have not created any teams."
	}
	var b strings.Builder
	b.WriteString("Your teams:\n")
	for _, t := range teams {
		fmt.Fprintf(&b, "- %s: project %s (#%d), group %d\n", t.Name, t.ProjectCode, t.ProjectID, t.GroupID)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderProjects(projects []tracking.Project) string {
	if len(projects) == 0 {
		return "No projects are visible with your API key."
	}
	var b strings.Builder
	b.WriteString("Your projects:\n")
	for _, p := range projects {
		fmt.Fprintf(&b, "- #%d %s (%s)\n", p.ID, p.Name, p.Identifier)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderTeamError(err error) (string, bool) {
	switch {
	case errors.Is(err, team.ErrNoCredential):
		return "You have no usable API key. Send /token API_KEY to me in a private chat first.", true
	case errors.Is(err, team.ErrProjectNotFound):
		return "That project does not exist or your API key cannot see it. Use /projects to list project ids.", true
	case errors.Is(err, team.ErrTeamNotFound):
		return "This group is not bound to a project.", true
	case errors.Is(err, team.ErrNotCreator):
		return "Only the person who bound this group can remove the binding.", true
	case errors.Is(err, team.ErrInvalidInput):
		return "Usage: /team PROJECT_ID NAME", true
	}
	var gwErr *tracking.GatewayError
	if errors.As(err, &gwErr) {
		return "The ticketing service rejected the request. Check your API key.", true
	}
	return "", false
}

func formatElapsed(d time.Duration) string {
	d = d.Truncate(time.Second)
	minutes := int(d / time.Minute)
	seconds := int((d % time.Minute) / time.Second)
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
