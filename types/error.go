package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the plugin.
type ErrorCode string

// Acquisition error codes
const (
	ErrFetchFailed  ErrorCode = "FETCH_FAILED"
	ErrDecodeFailed ErrorCode = "DECODE_FAILED"
)

// Generation error codes
const (
	ErrNoCredentials    ErrorCode = "NO_CREDENTIALS"
	ErrRequestFailed    ErrorCode = "REQUEST_FAILED"
	ErrNoImageData      ErrorCode = "NO_IMAGE_DATA"
	ErrExhaustedRetries ErrorCode = "EXHAUSTED_RETRIES"
)

// Dispatch error codes
const (
	ErrRateLimited   ErrorCode = "RATE_LIMITED"
	ErrInternalError ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WrapError wraps err under code. A nil err yields nil.
func WrapError(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return NewError(code, message).WithCause(err)
}

// AsError finds the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsErrorCode reports whether err's chain contains an *Error with code.
func IsErrorCode(err error, code ErrorCode) bool {
	e, ok := AsError(err)
	return ok && e.Code == code
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := AsError(err); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}
