package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. unknown chapter type, malformed date).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrGeocoding is returned when a chapter location cannot be resolved.
var ErrGeocoding = errors.New("geocoding failed")

// ErrUnauthenticated is returned when the acting session is missing or expired.
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrConflict is returned when an operation collides with another one in
// flight, e.g. a second save while the first has not resolved.
var ErrConflict = errors.New("conflict")

// FailureKind classifies a failed timeline commit.
type FailureKind string

const (
	// FailureValidation: a referenced chapter no longer exists server-side.
	FailureValidation FailureKind = "validation_failure"
	// FailureGeocoding: a new chapter's location could not be resolved.
	FailureGeocoding FailureKind = "geocoding_failure"
	// FailureTransaction: the atomic write failed for an infrastructure reason.
	FailureTransaction FailureKind = "transaction_failure"
	// FailureAuthentication: the acting session is no longer valid.
	FailureAuthentication FailureKind = "authentication_failure"
	// FailureStale: the write landed but the editor could not follow it.
	// Saving again would repeat the inserts; the client must reload.
	FailureStale FailureKind = "stale_session"
)

// CommitError is the typed failure returned when a timeline commit does not land.
// Nothing was written when a CommitError is returned.
// Error carries the technical detail; UserMessage carries the text shown to users.
type CommitError struct {
	Kind FailureKind
	Err  error
}

// ClassifyCommitError maps a raw collaborator error onto the commit failure
// taxonomy. Returns nil for a nil err.
func ClassifyCommitError(err error) *CommitError {
	if err == nil {
		return nil
	}
	var ce *CommitError
	if errors.As(err, &ce) {
		return ce
	}
	kind := FailureTransaction
	switch {
	case errors.Is(err, ErrUnauthenticated):
		kind = FailureAuthentication
	case errors.Is(err, ErrGeocoding):
		kind = FailureGeocoding
	case errors.Is(err, ErrNotFound):
		kind = FailureValidation
	}
	return &CommitError{Kind: kind, Err: err}
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// UserMessage returns the human-readable explanation for the failure.
func (e *CommitError) UserMessage() string {
	switch e.Kind {
	case FailureValidation:
		return "Some chapters could not be found; the trip may have changed elsewhere. Please refresh."
	case FailureGeocoding:
		var le *LocationError
		if errors.As(e.Err, &le) {
			return fmt.Sprintf("We could not find the location %q. Please check the location names and try again.", le.Location)
		}
		return "We could not find one of the locations. Please check the location names and try again."
	case FailureAuthentication:
		return "Your session has expired. Please refresh."
	case FailureStale:
		return "Your changes were saved, but this view is out of date. Please reload the trip before editing again."
	default:
		return "No changes were saved. Please try again."
	}
}

// LocationError reports the location that failed to resolve.
type LocationError struct {
	Location string
	Err      error
}

func (e *LocationError) Error() string {
	return fmt.Sprintf("location %q: %v", e.Location, e.Err)
}

func (e *LocationError) Unwrap() error { return e.Err }
