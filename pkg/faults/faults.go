package faults

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for propagation policy and HTTP mapping.
type Kind string

const (
	// KindInvalidInput - malformed or out-of-range fields, rejected before any write
	KindInvalidInput Kind = "INVALID_INPUT"
	// KindNotFound - unknown id
	KindNotFound Kind = "NOT_FOUND"
	// KindInvalidStatus - transition attempted from a state that forbids it
	KindInvalidStatus Kind = "INVALID_STATUS"
	// KindDependencyUnavailable - a downstream service call failed or timed out
	KindDependencyUnavailable Kind = "DEPENDENCY_UNAVAILABLE"
	// KindConflict - idempotency check detected a duplicate issuance attempt
	KindConflict Kind = "CONFLICT"
)

// Error carries a kind, a message and optional per-field details.
type Error struct {
	Kind    Kind
	Message string
	Details []string
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

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an underlying error with a kind and message.
func Wrap(err error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithDetails attaches per-field detail messages.
func (e *Error) WithDetails(details ...string) *Error {
	e.Details = append(e.Details, details...)
	return e
}

// KindOf extracts the kind of an error; empty string for unclassified errors.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps an error kind to an HTTP status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidInput, KindInvalidStatus:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindDependencyUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Envelope is the error payload rendered by all HTTP handlers.
type Envelope struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// ToEnvelope converts an error into the response payload.
func ToEnvelope(err error) Envelope {
	var fe *Error
	if errors.As(err, &fe) {
		return Envelope{Code: string(fe.Kind), Message: fe.Message, Details: fe.Details}
	}
	return Envelope{Code: "INTERNAL_ERROR", Message: err.Error()}
}
