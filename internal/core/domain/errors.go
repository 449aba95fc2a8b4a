package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is the normal negative result for point queries.
var ErrNotFound = errors.New("not found")

// RejectReason classifies why a submission or registration was refused.
type RejectReason string

const (
	RejectOutOfRange    RejectReason = "OutOfRange"
	RejectInvalidEntity RejectReason = "InvalidEntity"
	RejectClockSkew     RejectReason = "ClockSkew"
	RejectInvalidShape  RejectReason = "InvalidShape"
)

// ValidationError is returned to the caller immediately and never retried.
type ValidationError struct {
	Reason  RejectReason
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

// NewValidationError builds a ValidationError with a formatted message.
func NewValidationError(reason RejectReason, format string, args ...any) *ValidationError {
	return &ValidationError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// AsValidation unwraps a ValidationError from err, if present.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// TransientStorageError marks a storage failure that the caller may retry
// (connection exhaustion, timeout). The ingestion pipeline retries these
// with bounded backoff before surfacing the submission as failed.
type TransientStorageError struct {
	Op  string
	Err error
}

func (e *TransientStorageError) Error() string {
	return fmt.Sprintf("transient storage error in %s: %v", e.Op, e.Err)
}

func (e *TransientStorageError) Unwrap() error { return e.Err }

// IsTransient reports whether err is (or wraps) a TransientStorageError.
func IsTransient(err error) bool {
	var te *TransientStorageError
	return errors.As(err, &te)
}
