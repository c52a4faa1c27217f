// Package apperror classifies every failure the client can surface into a
// small taxonomy. Screens only ever show SafeMessage(err); the wrapped
// Internal error is for the log file.
package apperror

import (
	"errors"
	"fmt"
)

// Kind is a machine-readable failure class.
type Kind string

const (
	// KindAuthRejected means the server refused the bearer credential.
	// The credential is always cleared and the user is sent to login.
	KindAuthRejected Kind = "auth_rejected"

	// KindTransport means no usable response arrived (network, timeout).
	// The credential is left untouched; the user may retry.
	KindTransport Kind = "transport"

	// KindValidation means the input was rejected before any request.
	KindValidation Kind = "validation"

	// KindServerRejected covers every other non-2xx answer and malformed
	// payloads.
	KindServerRejected Kind = "server_rejected"
)

// Error is the base error type for every client-side failure.
type Error struct {
	// Kind is the failure class.
	Kind Kind

	// Status is the HTTP status code, zero when no response was received.
	Status int

	// Message is a human-readable description safe to show inline.
	Message string

	// Internal holds the underlying error for logging.
	Internal error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Kind, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Internal
}

// NewAuthRejected creates an AuthRejected error for the given status.
func NewAuthRejected(status int, message string) *Error {
	if message == "" {
		message = "Your session has expired. Please log in again."
	}
	return &Error{Kind: KindAuthRejected, Status: status, Message: message}
}

// NewTransport wraps a network-level failure.
func NewTransport(err error) *Error {
	return &Error{
		Kind:     KindTransport,
		Message:  "Could not reach the server. Check your connection and try again.",
		Internal: err,
	}
}

// NewValidation creates a Validation error. No request has been sent.
func NewValidation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// NewServerRejected creates a ServerRejected error. detail is the server's
// own explanation when it sent one.
func NewServerRejected(status int, detail string, internal error) *Error {
	message := detail
	if message == "" {
		message = fmt.Sprintf("The server rejected the request (status %d).", status)
	}
	return &Error{Kind: KindServerRejected, Status: status, Message: message, Internal: internal}
}

// KindOf returns the Kind carried by err, or "" when err is nil or not an
// *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// SafeMessage returns the message to show the user. Errors that are not
// *Error get a generic message so internals never leak into the UI.
func SafeMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "An unexpected error occurred. Please try again."
}
