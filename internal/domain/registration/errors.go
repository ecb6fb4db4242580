package registration

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotBound indicates the group has no team binding.
	ErrNotBound = errors.New("group is not bound to a team")
	// ErrNoCredential indicates the requester has no usable credential.
	ErrNoCredential = errors.New("requester has no credential")
	// ErrNothingToRegister indicates no closed, unregistered daily exists.
	ErrNothingToRegister = errors.New("nothing to register")
	// ErrStillOpen indicates the candidate daily has not ended.
	ErrStillOpen = errors.New("daily is still open")
)

// StaleWindowError reports a registration attempted after the window closed.
type StaleWindowError struct {
	Elapsed time.Duration
	Window  time.Duration
}

func (e *StaleWindowError) Error() string {
	return fmt.Sprintf("registration window expired: %s since close (limit %s)",
		e.Elapsed.Truncate(time.Second), e.Window)
}
