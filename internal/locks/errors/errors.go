package errors

import "errors"

var (
	// ErrConflict means another unexpired lock holds part of the range.
	ErrConflict = errors.New("slot is locked")

	ErrNoKeys = errors.New("lock has no keys")
)
