package tracking

import "time"

// Project is a ticketing-service project visible to a credential.
type Project struct {
	ID         int    `json:"id"`
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
}

// User is the identity behind a credential.
type User struct {
	ID    int    `json:"id"`
	Login string `json:"login"`
}

// IssueDraft describes an issue to create.
type IssueDraft struct {
	ProjectID    int
	Subject      string
	AssignedToID int
	StartDate    time.Time
	DueDate      time.Time
}

// Issue is a created issue.
type Issue struct {
	ID      int    `json:"id"`
	Subject string `json:"subject"`
}

// Activity is a time-entry activity (Meeting, Development, ...).
type Activity struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// TimeEntryDraft describes hours to log against an issue.
type TimeEntryDraft struct {
	IssueID    int
	SpentOn    time.Time
	Hours      float64
	ActivityID int
	Comments   string
}

// TimeEntry is a created time entry.
type TimeEntry struct {
	ID    int     `json:"id"`
	Hours float64 `json:"hours"`
}

// RecordRequest asks for one tracking record representing a daily.
type RecordRequest struct {
	ProjectID int
	Label     string
	Date      time.Time
}

// TimeLog asks for one participant's hours against a record. Credential is
// the participant's own key, never the requester's.
type TimeLog struct {
	RecordID   int
	Credential string
	Hours      float64
	Comment    string
	SpentOn    time.Time
}
