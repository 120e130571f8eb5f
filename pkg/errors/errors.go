package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork        ErrorType = "network"
	ErrorTypeServerError    ErrorType = "server_error"
	ErrorTypeRateLimit      ErrorType = "rate_limit"
	ErrorTypeAuth           ErrorType = "auth"
	ErrorTypeMalformedInput ErrorType = "malformed_input"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeAPI            ErrorType = "api"
	ErrorTypeParsing        ErrorType = "parsing"
	ErrorTypeUnknown        ErrorType = "unknown"
)

// Provider error codes with a meaning of their own.
const (
	CodeRateLimitExceeded = 88
	CodeNoUserMatches     = 17
	CodePageNotFound      = 34
	CodeUserNotFound      = 50
	CodeUserSuspended     = 63
)

// Error represents an API error with type information.
// Code is the HTTP status (0 for connection failures), APICode the first
// provider error code found in the response body.
type Error struct {
	Type     ErrorType
	Message  string
	Code     int
	APICode  int
	Resource string
	// ResetAt is set on rate limit errors when the provider reported it.
	ResetAt time.Time
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error (code %d", e.Type, e.Code)
	if e.APICode != 0 {
		msg += fmt.Sprintf(", api code %d", e.APICode)
	}
	msg += "): " + e.Message
	if e.Resource != "" {
		msg += " [" + e.Resource + "]"
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable checks if an error type should be retried by the request loop.
// Rate limits are not in this set: they are resolved by waiting on quota.
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// TypeOf returns the ErrorType carried by err, or ErrorTypeUnknown.
func TypeOf(err error) ErrorType {
	var apiErr *Error
	if stderrors.As(err, &apiErr) {
		return apiErr.Type
	}
	return ErrorTypeUnknown
}

// IsType reports whether err wraps an *Error of the given type.
func IsType(err error, errorType ErrorType) bool {
	var apiErr *Error
	return stderrors.As(err, &apiErr) && apiErr.Type == errorType
}

// NewNetwork wraps a connection-level failure.
func NewNetwork(resource string, err error) *Error {
	return &Error{
		Type:     ErrorTypeNetwork,
		Message:  fmt.Sprintf("network error: %v", err),
		Resource: resource,
		Err:      err,
	}
}

// NewRateLimit reports provider-signalled quota exhaustion.
func NewRateLimit(resource string, status int, resetAt time.Time) *Error {
	return &Error{
		Type:     ErrorTypeRateLimit,
		Message:  "rate limit exceeded",
		Code:     status,
		APICode:  CodeRateLimitExceeded,
		Resource: resource,
		ResetAt:  resetAt,
	}
}

// NewAuthorization reports a missing or rejected credential.
func NewAuthorization(message string) *Error {
	return &Error{
		Type:    ErrorTypeAuth,
		Message: message,
	}
}

// NewMalformedInput reports an identifier or argument of an unsupported shape.
func NewMalformedInput(format string, args ...interface{}) *Error {
	return &Error{
		Type:    ErrorTypeMalformedInput,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewAPI reports an application-level error payload.
func NewAPI(resource string, status, apiCode int, message string) *Error {
	return &Error{
		Type:     ErrorTypeAPI,
		Message:  message,
		Code:     status,
		APICode:  apiCode,
		Resource: resource,
	}
}
