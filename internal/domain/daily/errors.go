package daily

import "errors"

var (
	// ErrDailyNotFound indicates the referenced daily does not exist.
	ErrDailyNotFound = errors.New("daily not found")
)
