package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write would break a single-instance
	// invariant (second open daily for a group, daily already registered)
	ErrConflict = errors.New("conflict: single-instance invariant violated")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
)
