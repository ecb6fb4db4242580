package registration

import (
	"time"

	"github.com/ganot/dailylog/internal/domain/team"
)

// Outcome is the terminal result of a registration request.
type Outcome string

const (
	OutcomeRegistered        Outcome = "registered"
	OutcomeNotBound          Outcome = "not_bound"
	OutcomeNoCredential      Outcome = "no_credential"
	OutcomeNothingToRegister Outcome = "nothing_to_register"
	OutcomeStillOpen         Outcome = "still_open"
	OutcomeWindowExpired     Outcome = "window_expired"
	OutcomeRecordFailed      Outcome = "record_failed"
)

// Bucket classifies one mentioned participant.
type Bucket string

const (
	BucketNotFound     Bucket = "not_found"
	BucketNoCredential Bucket = "no_credential"
	BucketLogged       Bucket = "logged"
	BucketFailed       Bucket = "failed"
)

// Buckets lists every bucket in report order.
var Buckets = []Bucket{BucketLogged, BucketNotFound, BucketNoCredential, BucketFailed}

// ParticipantResult is the outcome for one mentioned handle.
type ParticipantResult struct {
	Handle string `json:"handle"`
	Bucket Bucket `json:"bucket"`
	// ChatID is zero when the handle resolved to no account.
	ChatID int64 `json:"chat_id,omitempty"`
}

// Report is the structured result of a registration request. Participants
// keeps the order of the normalized input handles.
type Report struct {
	Outcome      Outcome             `json:"outcome"`
	Team         *team.Team          `json:"team,omitempty"`
	DailyID      string              `json:"daily_id,omitempty"`
	RecordID     int                 `json:"record_id,omitempty"`
	RecordURL    string              `json:"record_url,omitempty"`
	Duration     time.Duration       `json:"duration,omitempty"`
	Hours        float64             `json:"hours,omitempty"`
	Elapsed      time.Duration       `json:"elapsed,omitempty"`
	Window       time.Duration       `json:"window,omitempty"`
	EndedAt      *time.Time          `json:"ended_at,omitempty"`
	Participants []ParticipantResult `json:"participants,omitempty"`

	cause error
}

// Handles returns the handles that landed in bucket b, in input order.
func (r *Report) Handles(b Bucket) []string {
	var out []string
	for _, p := range r.Participants {
		if p.Bucket == b {
			out = append(out, p.Handle)
		}
	}
	return out
}

func (r *Report) NotFound() []string     { return r.Handles(BucketNotFound) }
func (r *Report) NoCredential() []string { return r.Handles(BucketNoCredential) }
func (r *Report) Logged() []string       { return r.Handles(BucketLogged) }
func (r *Report) Failed() []string       { return r.Handles(BucketFailed) }

// Err maps a non-registered outcome to its error. It is nil on success.
func (r *Report) Err() error {
	switch r.Outcome {
	case OutcomeRegistered:
		return nil
	case OutcomeNotBound:
		return ErrNotBound
	case OutcomeNoCredential:
		return ErrNoCredential
	case OutcomeNothingToRegister:
		return ErrNothingToRegister
	case OutcomeStillOpen:
		return ErrStillOpen
	case OutcomeWindowExpired:
		return &StaleWindowError{Elapsed: r.Elapsed, Window: r.Window}
	default:
		return r.cause
	}
}
