package service

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a client-input validation failure.
type ErrorKind string

const (
	ErrMissingField    ErrorKind = "missing_field"
	ErrFieldTooLong    ErrorKind = "field_too_long"
	ErrFieldOutOfRange ErrorKind = "field_out_of_range"
	ErrInvalidFormat   ErrorKind = "invalid_format"
)

// ValidationError is a rejected submission. It is never fatal to the process
// and always names the field and check that failed.
type ValidationError struct {
	Kind    ErrorKind
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ErrNotFound is returned when a moderation or delete target does not exist.
var ErrNotFound = errors.New("comment not found")

// StoreError wraps a failure of the underlying document store. It is logged
// and surfaced as a generic failure, never silently swallowed.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// AsValidationError unwraps err into a *ValidationError if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
