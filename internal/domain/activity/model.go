package activity

import "time"

// ActivityType represents the type of lifecycle event
type ActivityType string

const (
	TypeDailyStarted    ActivityType = "daily_started"
	TypeDailyClosed     ActivityType = "daily_closed"
	TypeDailyRegistered ActivityType = "daily_registered"
	TypeTeamBound       ActivityType = "team_bound"
	TypeTeamUnbound     ActivityType = "team_unbound"
	TypeCredentialSaved ActivityType = "credential_saved"
)

// ActivityEntry represents an event in the activity log
type ActivityEntry struct {
	ID           int64        `json:"id"`
	GroupID      int64        `json:"group_id,omitempty"`
	ActorID      *int64       `json:"actor_id,omitempty"`
	DailyID      *string      `json:"daily_id,omitempty"`
	ActivityType ActivityType `json:"type"`
	Summary      string       `json:"summary"`
	Details      string       `json:"details,omitempty"` // JSON string
	CreatedAt    time.Time    `json:"created_at"`
}
