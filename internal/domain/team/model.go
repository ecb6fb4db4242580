package team

import "time"

// Team binds one chat group to one ticketing project.
type Team struct {
	ID          string    `json:"id"`
	GroupID     int64     `json:"group_id"`
	ProjectID   int       `json:"project_id"`
	ProjectCode string    `json:"project_code"`
	Name        string    `json:"name"`
	CreatedBy   int64     `json:"created_by"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// BindRequest is a request to bind a group to a project.
type BindRequest struct {
	GroupID     int64
	RequesterID int64
	ProjectID   int
	Name        string
}

// BindResult reports the new binding and the one it replaced, if any.
type BindResult struct {
	Team     *Team
	Previous *Team
}
