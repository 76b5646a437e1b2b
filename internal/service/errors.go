package service

import (
	"context"
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrorValidation    ErrorCode = "VALIDATION"
	ErrorUpstream      ErrorCode = "UPSTREAM"
	ErrorTimeout       ErrorCode = "TIMEOUT"
	ErrorConfiguration ErrorCode = "CONFIGURATION"
)

// Error is returned by every ExpenseTracker operation. Message is safe to show
// to the chat user.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("service: %s (%s)", e.Code, e.Message)
	}
	return fmt.Sprintf("service: %s (%s): %v", e.Code, e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Retryable reports whether repeating the same call may succeed.
func (e *Error) Retryable() bool {
	return e != nil && (e.Code == ErrorUpstream || e.Code == ErrorTimeout)
}

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func validationError(message string) *Error {
	return newError(ErrorValidation, message, nil)
}

// upstreamError classifies a repository failure.
func upstreamError(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(ErrorTimeout, "the finance service did not respond in time", err)
	}
	return newError(ErrorUpstream, err.Error(), err)
}

// ConfigurationError marks reference data that could not be loaded. Retrying
// the same request does not help until the finance service is reachable.
func ConfigurationError(err error) *Error {
	return newError(ErrorConfiguration, "accounts and categories could not be loaded from the finance service", err)
}

// AsError extracts a *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
