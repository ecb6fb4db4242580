package mcp

import (
	"time"

	"github.com/ganot/dailylog/internal/domain/activity"
	"github.com/ganot/dailylog/internal/domain/daily"
	"github.com/ganot/dailylog/internal/domain/registration"
	"github.com/ganot/dailylog/internal/domain/team"
)

type RegisterDailyParams struct {
	GroupID     int64    `json:"group_id"`
	RequesterID int64    `json:"requester_id"`
	Handles     []string `json:"handles"`
}

type GroupParams struct {
	GroupID int64 `json:"group_id"`
}

type BindTeamParams struct {
	GroupID     int64  `json:"group_id"`
	RequesterID int64  `json:"requester_id"`
	ProjectID   int    `json:"project_id"`
	Name        string `json:"name"`
}

type ListDailiesParams struct {
	GroupID int64 `json:"group_id"`
	Limit   int   `json:"limit,omitempty"`
}

type RecentActivityParams struct {
	GroupID int64                 `json:"group_id,omitempty"`
	DailyID string                `json:"daily_id,omitempty"`
	Type    activity.ActivityType `json:"type,omitempty"`
	Limit   int                   `json:"limit,omitempty"`
	Offset  int                   `json:"offset,omitempty"`
}

type TeamResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ProjectID   int    `json:"project_id"`
	ProjectCode string `json:"project_code"`
	CreatedBy   int64  `json:"created_by"`
}

type RegisterDailyResponse struct {
	Outcome      registration.Outcome `json:"outcome"`
	Team         *TeamResponse        `json:"team,omitempty"`
	DailyID      string               `json:"daily_id,omitempty"`
	RecordID     int                  `json:"record_id,omitempty"`
	RecordURL    string               `json:"record_url,omitempty"`
	Duration     string               `json:"duration,omitempty"`
	Hours        float64              `json:"hours,omitempty"`
	NotFound     []string             `json:"not_found"`
	NoCredential []string             `json:"no_credential"`
	Logged       []string             `json:"logged"`
	Failed       []string             `json:"failed"`
	Error        *APIError            `json:"error,omitempty"`
}

type NoticeResponse struct {
	Kind     daily.NoticeKind   `json:"kind"`
	Reason   daily.IgnoreReason `json:"reason,omitempty"`
	Team     *TeamResponse      `json:"team,omitempty"`
	Daily    *DailyResponse     `json:"daily,omitempty"`
	Duration string             `json:"duration,omitempty"`
}

type DailyResponse struct {
	ID           string      `json:"id"`
	State        daily.State `json:"state"`
	StartedAt    time.Time   `json:"started_at"`
	EndedAt      *time.Time  `json:"ended_at,omitempty"`
	Duration     string      `json:"duration,omitempty"`
	Participants []int64     `json:"participants"`
}

type BindTeamResponse struct {
	Team     TeamResponse  `json:"team"`
	Replaced *TeamResponse `json:"replaced,omitempty"`
}

type ListDailiesResponse struct {
	Dailies []DailyResponse `json:"dailies"`
}

type RecentActivityResponse struct {
	Entries []activity.ActivityEntry `json:"entries"`
}

func toTeamResponse(t *team.Team) *TeamResponse {
	if t == nil {
		return nil
	}
	return &TeamResponse{
		ID:          t.ID,
		Name:        t.Name,
		ProjectID:   t.ProjectID,
		ProjectCode: t.ProjectCode,
		CreatedBy:   t.CreatedBy,
	}
}

func toDailyResponse(d *daily.Daily) *DailyResponse {
	if d == nil {
		return nil
	}
	resp := &DailyResponse{
		ID:           d.ID,
		State:        d.State(),
		StartedAt:    d.StartedAt,
		EndedAt:      d.EndedAt,
		Participants: d.Participants,
	}
	if resp.Participants == nil {
		resp.Participants = []int64{}
	}
	if d.EndedAt != nil {
		resp.Duration = daily.FormatDuration(d.Duration())
	}
	return resp
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
