// Package directory implements the organizational-resource directory:
// organizations, people, teams, licenses with per-seat assignment, assets,
// and documents, backed by jsonldb tables.
package directory

import (
	"errors"
	"fmt"
)

// ErrorCode classifies failures so callers can render specific messages.
type ErrorCode string

const (
	// ErrorCodeValidationFailed is returned when input data fails validation.
	ErrorCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	// ErrorCodeMissingField is returned when a required field is missing or empty.
	ErrorCodeMissingField ErrorCode = "MISSING_FIELD"
	// ErrorCodeNotFound is returned when the target of an update or delete does not exist.
	ErrorCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrorCodeConflict is returned when a mutation would violate a relationship
	// invariant, such as a manager cycle.
	ErrorCodeConflict ErrorCode = "CONFLICT"
	// ErrorCodeNoSeatAvailable is returned by seat assignment when every seat
	// of the license is taken.
	ErrorCodeNoSeatAvailable ErrorCode = "NO_SEAT_AVAILABLE"
)

// Error is a failure with a code and, for field-level problems, the offending
// field name.
type Error struct {
	code    ErrorCode
	field   string
	message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.message
}

// Code returns the error classification.
func (e *Error) Code() ErrorCode {
	return e.code
}

// Field returns the offending field name, or "" when not field-specific.
func (e *Error) Field() string {
	return e.field
}

// MissingField creates a validation error for a required field that is missing
// or empty.
func MissingField(field string) *Error {
	return &Error{
		code:    ErrorCodeMissingField,
		field:   field,
		message: fmt.Sprintf("missing required field: %s", field),
	}
}

// Invalid creates a validation error for a field with an unacceptable value.
func Invalid(field, message string) *Error {
	return &Error{
		code:    ErrorCodeValidationFailed,
		field:   field,
		message: message,
	}
}

// NotFound creates a not-found error for the named resource.
func NotFound(resource string) *Error {
	return &Error{
		code:    ErrorCodeNotFound,
		message: fmt.Sprintf("%s not found", resource),
	}
}

// Conflict creates a relationship-invariant error.
func Conflict(message string) *Error {
	return &Error{
		code:    ErrorCodeConflict,
		message: message,
	}
}

// NoSeatAvailable creates a capacity error for a fully assigned license.
func NoSeatAvailable() *Error {
	return &Error{
		code:    ErrorCodeNoSeatAvailable,
		message: "no seat available",
	}
}

// IsNotFound reports whether err is a not-found directory error.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.code == ErrorCodeNotFound
}

// IsValidation reports whether err is a validation directory error
// (missing field or invalid value).
func IsValidation(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.code == ErrorCodeValidationFailed || e.code == ErrorCodeMissingField
}

// IsNoSeatAvailable reports whether err is a seat capacity error.
func IsNoSeatAvailable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.code == ErrorCodeNoSeatAvailable
}

// Shared row-validation sentinels.
var (
	errIDRequired    = errors.New("id is required")
	errOrgIDRequired = errors.New("organization id is required")
	errNameRequired  = errors.New("name is required")
)
