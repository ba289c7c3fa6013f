// Package errors defines the stable error taxonomy for the portfolio tool.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Code represents stable error codes for all failure modes
type Code string

const (
	// ValidationFailed indicates a required field is missing or invalid
	ValidationFailed Code = "VALIDATION_FAILED"
	// DuplicateName indicates a uniqueness violation on a name at creation
	DuplicateName Code = "DUPLICATE_NAME"
	// NotFound indicates the requested record doesn't exist
	NotFound Code = "NOT_FOUND"
	// ReferenceNotFound indicates a display name didn't resolve to a record id
	ReferenceNotFound Code = "REFERENCE_NOT_FOUND"
	// StorageFailure indicates an unexpected failure from the underlying store
	StorageFailure Code = "STORAGE_FAILURE"
	// Unauthorized indicates the caller's identity is not on the allow-list
	Unauthorized Code = "UNAUTHORIZED"
)

// Error carries a stable code alongside a human-readable message.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	cause   error
}

// New creates an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// CodeOf returns the code carried by err, or StorageFailure for
// errors outside the taxonomy.
func CodeOf(err error) Code {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return StorageFailure
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var e *Error
	return stderrors.As(err, &e) && e.Code == code
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool { return Is(err, ValidationFailed) }

// IsDuplicateName reports whether err is a duplicate-name rejection.
func IsDuplicateName(err error) bool { return Is(err, DuplicateName) }

// IsNotFound reports whether err is a missing-record error.
func IsNotFound(err error) bool { return Is(err, NotFound) }

// IsReferenceNotFound reports whether err is an unresolved name reference.
func IsReferenceNotFound(err error) bool { return Is(err, ReferenceNotFound) }

// IsUnauthorized reports whether err is an authorization rejection.
func IsUnauthorized(err error) bool { return Is(err, Unauthorized) }
