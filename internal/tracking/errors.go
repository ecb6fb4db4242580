package tracking

import (
	"errors"
	"fmt"
)

// ErrNotFound is matched by client errors for resources the ticketing
// service does not have.
var ErrNotFound = errors.New("not found")

// GatewayError reports a failed ticketing-service operation. Callers only
// distinguish success from failure; Err keeps the cause for logs.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
