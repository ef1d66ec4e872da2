// Package sentinel defines the infrastructure facts that stores and height
// sources report. Services translate them into domain errors; handlers never
// see them directly.
package sentinel

import "errors"

var (
	// ErrNotFound: no record under the requested key.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists: a create hit a key that is already taken.
	ErrAlreadyExists = errors.New("already exists")
	// ErrConflict: an optimistic update lost its race too many times.
	ErrConflict = errors.New("conflict")
	// ErrInvalidState: the write would move state backwards.
	ErrInvalidState = errors.New("invalid state")
	// ErrUnavailable: a backing system cannot answer right now.
	ErrUnavailable = errors.New("unavailable")
)
