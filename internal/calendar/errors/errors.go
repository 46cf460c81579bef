package errors

import "errors"

var (
	ErrNotFound = errors.New("working hours not found")

	ErrServiceNotFound = errors.New("service not found")

	ErrInvalidID = errors.New("invalid service ID format")
)
