// Package errs defines the typed error taxonomy used across the
// type-checking server: dispatch-level failures, pipeline failures, and
// the query error shapes returned as response data rather than as Go
// errors.
package errs

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest is returned when a request variant that must never
// reach the dispatcher (ClientConnectionRequest) is processed anyway.
var ErrInvalidRequest = errors.New("invalid request")

// ErrFatal marks a failure that the surrounding server must treat as
// unrecoverable: scheduler death or shared-memory corruption.
var ErrFatal = errors.New("fatal server error")

// DispatchError wraps a failure encountered while routing a request in
// the dispatcher, tagged with the request kind that failed.
type DispatchError struct {
	Kind string
	Err  error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s: %v", e.Kind, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// NewInvalidRequest builds the DispatchError raised for a
// ClientConnectionRequest reaching the dispatcher.
func NewInvalidRequest(kind string) *DispatchError {
	return &DispatchError{Kind: kind, Err: ErrInvalidRequest}
}

// PipelineError wraps a scheduler or shared-memory failure raised during
// the incremental type-check pipeline. These are fatal: they propagate to
// the dispatcher rather than being absorbed as parse/analyzer errors.
type PipelineError struct {
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("type-check pipeline stage %q: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return errors.Join(ErrFatal, e.Err) }

// QueryErrorKind distinguishes the two user-visible query failure shapes
// from spec.md §7: an untracked type name versus a not-found lookup.
type QueryErrorKind int

const (
	// QueryErrorUntracked means a type name in the query failed to
	// validate against the type-order.
	QueryErrorUntracked QueryErrorKind = iota
	// QueryErrorNotFound means the query resolved its type(s) but the
	// requested class/signature/location does not exist.
	QueryErrorNotFound
)

// QueryError is carried as response data (TypeQueryResponse's Error
// payload), never as a Go error surfaced to a caller expecting success.
type QueryError struct {
	Kind    QueryErrorKind
	Message string
}

func (e *QueryError) Error() string { return e.Message }

// Untracked builds the standard "Type \"X\" was not found in the type
// order." message required by spec.md §4.3/§7.
func Untracked(typeName string) *QueryError {
	return &QueryError{
		Kind:    QueryErrorUntracked,
		Message: fmt.Sprintf("Type %q was not found in the type order.", typeName),
	}
}

// NotFound builds a query-specific "No … found for X" message.
func NotFound(what, subject string) *QueryError {
	return &QueryError{
		Kind:    QueryErrorNotFound,
		Message: fmt.Sprintf("No %s found for %s", what, subject),
	}
}
