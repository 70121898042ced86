// Package apperr defines the error taxonomy shared by services, the cache
// coordinator and the HTTP handlers. Sentinel errors classify outcomes;
// handlers map them to status codes with Status, and the retry policy
// consults IsTransient.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUnauthenticated means no valid identity is present.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden is an opaque policy-check failure on a write the caller
	// has no access to.
	ErrForbidden = errors.New("access denied")

	// ErrNotFoundOrForbidden covers both a missing row and a row the caller
	// may not see. The two are deliberately indistinguishable so that the
	// existence of invisible rows is never leaked.
	ErrNotFoundOrForbidden = errors.New("not found or access denied")

	// ErrDuplicateName is a case-insensitive name uniqueness violation,
	// caught before any write is attempted.
	ErrDuplicateName = errors.New("name already exists")
)

// ValidationError reports a missing or invalid required field, caught before
// any write is attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Invalid builds a ValidationError
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// HasDependentsError blocks a delete because children still exist
type HasDependentsError struct {
	Count int
}

func (e *HasDependentsError) Error() string {
	return fmt.Sprintf("cannot delete: %d associated checklist items", e.Count)
}

// StepError reports a partial failure in a multi-step sequence: earlier steps
// succeeded, the named step did not, and the overall operation was not
// completed. It must never be collapsed into total success or total failure.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// TransientError marks a timeout, connection failure or 5xx-class response
// that is eligible for bounded retry.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as retryable. A nil err returns nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// ConfigError reports missing required environment secrets. Raised at startup
// or first use, never silently defaulted.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return "missing required configuration: " + strings.Join(e.Missing, ", ")
}

// IsTransient reports whether err should be retried
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// Status maps an error to the HTTP status code handlers respond with
func Status(err error) int {
	var (
		ve *ValidationError
		de *HasDependentsError
		se *StepError
		te *TransientError
		ce *ConfigError
	)
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFoundOrForbidden):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateName), errors.As(err, &de):
		return http.StatusConflict
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &se):
		// earlier steps committed; the caller must see this distinctly
		return http.StatusConflict
	case errors.As(err, &te):
		return http.StatusBadGateway
	case errors.As(err, &ce):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
