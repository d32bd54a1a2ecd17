package errors

import "errors"

var (
	// ErrNotFound is returned by repos when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument marks caller mistakes (bad ids, unknown competency, empty text).
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConflict is returned when a write loses a uniqueness race.
	ErrConflict = errors.New("conflict")
)
