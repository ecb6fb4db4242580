package account

import "errors"

var (
	// ErrAccountNotFound indicates no active account matches.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidInput indicates invalid account input.
	ErrInvalidInput = errors.New("invalid account input")
)
