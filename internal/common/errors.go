// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Database errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// External sheet errors.
	ErrRateLimit     = errors.New("rate limit exceeded")
	ErrSheetPaused   = errors.New("sheet sync is paused")
	ErrSheetArchived = errors.New("sheet is archived")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ValidationError reports malformed input: a bad registry field or a sheet
// row that fails structural validation. Reported per item, never aborting a
// batch.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError for a named field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// GateError reports a rejected confirmation attempt. No state is mutated; the
// caller relays the unmet condition to the user.
type GateError struct {
	Reason        string
	DaysRemaining int
}

func (e *GateError) Error() string {
	if e.DaysRemaining > 0 {
		return fmt.Sprintf("%s (%d day(s) remaining)", e.Reason, e.DaysRemaining)
	}
	return e.Reason
}

// ExternalServiceError wraps a failure talking to the spreadsheet service.
// Outbound failures for one pipeline never block the rest of a run.
type ExternalServiceError struct {
	Op  string
	Err error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("external service: %s: %v", e.Op, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

// RetryableError wraps an error with retry-specific metadata.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) {
		return true
	}
	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}
	var extErr *ExternalServiceError
	return errors.As(err, &extErr)
}
