package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for remote and data-access faults.
var (
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
	ErrSearchUnavailable    = errors.New("similarity store unavailable")
	ErrNotFound             = errors.New("not found")
)

// Sentinel errors for validation failures.
var (
	ErrIssueTooShort   = errors.New("issue description too short")
	ErrIssueInjection  = errors.New("issue contains suspicious content")
	ErrIssueProfanity  = errors.New("issue contains profanity")
	ErrQueryRequired   = errors.New("query text required")
	ErrBoundsViolation = errors.New("value out of bounds")
)

// ValidationError reports which request field failed and why. Reason
// is one of the validation sentinels, so errors.Is sees through it.
type ValidationError struct {
	Field  string
	Value  string
	Reason error
}

// NewValidationError builds a ValidationError for one request field.
func NewValidationError(field, value string, reason error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Field, clip(e.Value), e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Reason }

// clip keeps error strings short when the offending value is a whole
// issue description.
func clip(s string) string {
	const max = 48
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
