package mcp

import (
	"errors"
	"fmt"

	"github.com/ganot/dailylog/internal/domain/daily"
	"github.com/ganot/dailylog/internal/domain/registration"
	"github.com/ganot/dailylog/internal/domain/team"
	"github.com/ganot/dailylog/internal/tracking"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

var errInvalidParams = errors.New("invalid params")

// MapError maps domain errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}

	var stale *registration.StaleWindowError
	if errors.As(err, &stale) {
		return &APIError{
			Code:    "WINDOW_EXPIRED",
			Message: "registration window expired",
			Details: map[string]any{
				"elapsed_seconds": int(stale.Elapsed.Seconds()),
				"window_seconds":  int(stale.Window.Seconds()),
			},
			RecoveryHint: "Register within the window after the daily ends",
		}
	}
	var gw *tracking.GatewayError
	if errors.As(err, &gw) {
		return &APIError{Code: "TICKETING_FAILED", Message: gw.Error(), RecoveryHint: "Check the Redmine server and retry"}
	}

	switch {
	case errors.Is(err, errInvalidParams):
		return &APIError{Code: "INVALID_PARAMS", Message: err.Error(), RecoveryHint: "Check the tool input schema"}
	case errors.Is(err, registration.ErrNotBound), errors.Is(err, team.ErrTeamNotFound):
		return &APIError{Code: "NOT_BOUND", Message: "group is not bound to a team", RecoveryHint: "Call bind_team first"}
	case errors.Is(err, registration.ErrNoCredential), errors.Is(err, team.ErrNoCredential):
		return &APIError{Code: "NO_CREDENTIAL", Message: "requester has no usable API key", RecoveryHint: "Send /token API_KEY to the bot privately"}
	case errors.Is(err, registration.ErrNothingToRegister):
		return &APIError{Code: "NOTHING_TO_REGISTER", Message: "no closed daily awaiting registration", RecoveryHint: "Start and end a daily first"}
	case errors.Is(err, registration.ErrStillOpen):
		return &APIError{Code: "STILL_OPEN", Message: "daily is still in progress", RecoveryHint: "Call end_daily first"}
	case errors.Is(err, team.ErrNotCreator):
		return &APIError{Code: "NOT_CREATOR", Message: "only the team creator can do this"}
	case errors.Is(err, team.ErrProjectNotFound):
		return &APIError{Code: "PROJECT_NOT_FOUND", Message: "project not found", RecoveryHint: "Check the project id"}
	case errors.Is(err, team.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error()}
	case errors.Is(err, daily.ErrDailyNotFound):
		return &APIError{Code: "DAILY_NOT_FOUND", Message: "daily not found"}
	default:
		return nil
	}
}

func mapError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
