package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for request validation and decision outcomes.
var (
	ErrEmptyQuestion     = errors.New("question is empty")
	ErrThresholdRange    = errors.New("similarity threshold out of range")
	ErrMissingEntryID    = errors.New("corpus entry id is empty")
	ErrNoQuestionVariant = errors.New("corpus entry has no question text")
	ErrNoEnglishAnswer   = errors.New("corpus entry has no english answer")
)

// ValidationError wraps a sentinel with field context. It maps to a 400 at
// the HTTP boundary.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}

// ProviderError reports a failed external provider call. The message names
// the provider and operation but never carries query text, so it is safe to
// log and to surface in a 500 body.
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError creates a ProviderError.
func NewProviderError(provider, op string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Op: op, Err: err}
}
