// Package engineerr defines the structured error kinds used across the
// engine. Following the teacher's fmt.Errorf("...: %w", err) wrapping
// idiom, every error returned by the core carries one of these kinds so
// callers can discriminate without parsing message text.
package engineerr

import (
	"fmt"
	"strings"
)

// Kind discriminates error categories. Structured non-exception outcomes
// (ChunkNotFound, BlockNotFound, ...) are modeled as plain result fields
// by their callers, not as Kind values, matching the spec's distinction
// between surfaced errors and returned-as-data results.
type Kind string

const (
	ModelMismatch        Kind = "model_mismatch"
	VectorLenMismatch    Kind = "vector_len_mismatch"
	ZeroLength           Kind = "zero_length"
	UnsafeIdentifier     Kind = "unsafe_identifier"
	InputTooLong         Kind = "input_too_long"
	InvalidMetadata      Kind = "invalid_metadata"
	Cancelled            Kind = "cancelled"
	TransientStorageBusy Kind = "transient_storage_busy"
	Fatal                Kind = "fatal"
)

// Error is the engine's structured error type.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	Wrapped error
}

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// New constructs an *Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an *Error carrying an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Wrapped: cause}
}

// WithDetails attaches a machine-readable details payload and returns the
// same error for chaining.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if ok := asError(err, &e); ok {
		return e.Kind == kind
	}
	return false
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// IsBusy reports whether err is a transient "database is locked/busy"
// condition as reported by the sqlite3 driver, used by the recall
// engine's best-effort retrieval boost to decide whether to swallow it.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, sub := range []string{"database is locked", "busy"} {
		if strings.Contains(msg, sub) {
			return true
		}
	}
	return false
}
