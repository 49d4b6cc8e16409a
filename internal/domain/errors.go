package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCaseNotFound is returned when a case id does not exist in the store.
	ErrCaseNotFound = errors.New("case not found")

	// ErrAlreadyFinalized is returned when finalization is attempted on a case
	// that already completed. The stored document is never re-rendered.
	ErrAlreadyFinalized = errors.New("case already finalized")

	// ErrRenderFailed wraps document renderer failures. Finalization is
	// all-or-nothing: the case stays draft and the caller may retry.
	ErrRenderFailed = errors.New("document rendering failed")
)

// ValidationError reports a rejected input field. No state changes when one is
// returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
