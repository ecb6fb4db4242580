package daily

import (
	"fmt"
	"time"
)

// State is the lifecycle state of a daily.
type State string

const (
	StateOpen       State = "OPEN"
	StateClosed     State = "CLOSED"
	StateRegistered State = "REGISTERED"
)

// Daily is one meeting occurrence for a group.
type Daily struct {
	ID           string     `json:"id"`
	TeamID       string     `json:"team_id"`
	GroupID      int64      `json:"group_id"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	Registered   bool       `json:"registered"`
	Participants []int64    `json:"participants"`
}

// State derives the lifecycle state from the stored fields.
func (d *Daily) State() State {
	switch {
	case d.EndedAt == nil:
		return StateOpen
	case d.Registered:
		return StateRegistered
	default:
		return StateClosed
	}
}

// Duration is end minus start, or zero while open.
func (d *Daily) Duration() time.Duration {
	if d.EndedAt == nil {
		return 0
	}
	if d.EndedAt.Before(d.StartedAt) {
		return 0
	}
	return d.EndedAt.Sub(d.StartedAt)
}

// FormatDuration renders a duration with minute precision: "1h 5m" or "47m".
// Seconds are truncated.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
