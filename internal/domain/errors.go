package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Application error codes
const (
	EINVALID   = "invalid"    // Invalid input or validation failure
	ENOTFOUND  = "not_found"  // Resource not found locally (e.g. unknown selection)
	ECONFLICT  = "conflict"   // Operation not allowed in the current state
	ERATELIMIT = "rate_limit" // Too many mutations from one client
	ENETWORK   = "network"    // No response reached the client
	EUPSTREAM  = "upstream"   // Remote API answered with a non-2xx status
	EINTERNAL  = "internal"   // Unexpected failure (decoding, programming error)
)

// Error represents an application error with structured information.
type Error struct {
	Code    string // Machine-readable error code
	Op      string // Operation that failed (e.g., "customers.create")
	Message string // Human-readable message
	Status  int    // Upstream HTTP status, set for EUPSTREAM
	Err     error  // Underlying error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf creates a new Error with the given code, operation, and formatted message.
func Errorf(code, op, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// ErrorCode returns the code of the root error, or EINTERNAL if none.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return EINVALID
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage returns the human-readable message of the error.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return "Please fill in all required fields."
	}
	var e *Error
	if errors.As(err, &e) {
		switch e.Code {
		case EINTERNAL:
			return "An internal error occurred. Please try again later."
		case ENETWORK:
			return "The training service could not be reached."
		}
		return e.Message
	}
	return "An internal error occurred. Please try again later."
}

// ErrorOp returns the operation of the root error, or "".
func ErrorOp(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Op
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}

// ErrorStatus returns the upstream HTTP status carried by err, or 0.
func ErrorStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// IsNetwork reports whether err means no response reached the client.
func IsNetwork(err error) bool {
	return ErrorCode(err) == ENETWORK
}

// IsServer reports whether err is a non-2xx answer from the remote API.
func IsServer(err error) bool {
	return ErrorCode(err) == EUPSTREAM
}

// NotFound creates a not found error.
func NotFound(op, resource, id string) *Error {
	return &Error{
		Code:    ENOTFOUND,
		Op:      op,
		Message: fmt.Sprintf("%s %q not found", resource, id),
	}
}

// Invalid creates an input error that is not tied to a single field.
func Invalid(op, message string) *Error {
	return &Error{
		Code:    EINVALID,
		Op:      op,
		Message: message,
	}
}

// Conflict creates a conflict error.
func Conflict(op, message string) *Error {
	return &Error{
		Code:    ECONFLICT,
		Op:      op,
		Message: message,
	}
}

// Network wraps a transport failure.
func Network(err error, op string) *Error {
	return &Error{
		Code:    ENETWORK,
		Op:      op,
		Message: "request failed",
		Err:     err,
	}
}

// Upstream creates an error for a non-2xx response.
func Upstream(op string, status int, body string) *Error {
	msg := http.StatusText(status)
	if msg == "" {
		msg = "unexpected status"
	}
	e := &Error{
		Code:    EUPSTREAM,
		Op:      op,
		Message: msg,
		Status:  status,
	}
	if body != "" {
		e.Err = errors.New(body)
	}
	return e
}

// Internal creates an internal error, wrapping the underlying error.
func Internal(err error, op, message string) *Error {
	return &Error{
		Code:    EINTERNAL,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// RateLimit creates a rate limit error.
func RateLimit(op string) *Error {
	return &Error{
		Code:    ERATELIMIT,
		Op:      op,
		Message: "Too many requests. Please try again later.",
	}
}

// ValidationError represents field-level validation errors.
type ValidationError struct {
	Op     string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: validation failed", e.Op)
}

// NewValidationError creates a new validation error with the first field error.
func NewValidationError(op, field, message string) *ValidationError {
	return &ValidationError{
		Op: op,
		Fields: map[string]string{
			field: message,
		},
	}
}

// AddFieldError adds a field error to an existing validation error.
// If err is not a ValidationError, returns a new one.
func AddFieldError(err error, field, message string) *ValidationError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		ve.Fields[field] = message
		return ve
	}
	return NewValidationError("", field, message)
}

// FieldErrors returns the per-field messages of a validation error, or nil.
func FieldErrors(err error) map[string]string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields
	}
	return nil
}
