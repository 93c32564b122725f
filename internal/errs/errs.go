// Package errs defines the application error taxonomy.
// Handlers map kinds to HTTP status codes; everything below the handler
// layer works in terms of kinds, never status codes.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers.
type Kind string

const (
	// KindValidation means the input is bad and the caller can fix it.
	KindValidation Kind = "validation"
	// KindAuthorization means the request is valid but rights are insufficient.
	KindAuthorization Kind = "authorization"
	// KindNotFound means the resource is absent or not visible to the caller.
	// Deliberately also used where distinguishing "absent" from "forbidden"
	// would leak information (e.g. share lookups across tenants).
	KindNotFound Kind = "not_found"
	// KindConflict means an invalid state transition was attempted.
	KindConflict Kind = "conflict"
	// KindUpstream means a durable store or external collaborator failed.
	KindUpstream Kind = "upstream"
	// KindConfiguration means required process configuration is missing.
	// Fatal at startup, never raised per-request.
	KindConfiguration Kind = "configuration"
)

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error with a caller-facing message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap classifies an underlying error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validationf builds a KindValidation error.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds a KindNotFound error.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Conflict builds a KindConflict error.
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// Authorization builds a KindAuthorization error.
func Authorization(message string) *Error {
	return &Error{Kind: KindAuthorization, Message: message}
}

// Upstream wraps a failure from the store or an external collaborator.
func Upstream(message string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: message, Err: err}
}

// Configuration builds a KindConfiguration error.
func Configuration(message string) *Error {
	return &Error{Kind: KindConfiguration, Message: message}
}

// KindOf returns the kind of err, or KindUpstream for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUpstream
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
