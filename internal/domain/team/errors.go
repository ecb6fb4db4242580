package team

import "errors"

var (
	// ErrTeamNotFound indicates the group has no binding.
	ErrTeamNotFound = errors.New("team not found")
	// ErrNotCreator indicates only the binding's creator may remove it.
	ErrNotCreator = errors.New("only the team creator can do this")
	// ErrNoCredential indicates the requester has no usable credential.
	ErrNoCredential = errors.New("requester has no credential")
	// ErrProjectNotFound indicates the project is unknown or inaccessible.
	ErrProjectNotFound = errors.New("project not found")
	// ErrInvalidInput indicates invalid binding input.
	ErrInvalidInput = errors.New("invalid team input")
)
