package domain

import "errors"

var (
	// ErrNotFound indicates that a requested client was not found.
	ErrNotFound = errors.New("client not found")
	// ErrValidation indicates a malformed request (missing identifier,
	// non-positive quantity).
	ErrValidation = errors.New("validation failed")
	// ErrDuplicateEntry indicates a phone uniqueness violation.
	ErrDuplicateEntry = errors.New("duplicate entry")
)
