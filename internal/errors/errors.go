package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode is the machine-readable kind returned to callers.
type ErrorCode string

const (
	ErrMissingCredential     ErrorCode = "MISSING_CREDENTIAL"     // 401
	ErrInvalidRequest        ErrorCode = "INVALID_REQUEST"        // 400
	ErrMissingParameter      ErrorCode = "MISSING_PARAMETER"      // 422
	ErrModelCallFailed       ErrorCode = "MODEL_CALL_FAILED"      // 502
	ErrBackendCallFailed     ErrorCode = "BACKEND_CALL_FAILED"    // 502
	ErrCapabilityUnavailable ErrorCode = "CAPABILITY_UNAVAILABLE" // 503
	ErrInternal              ErrorCode = "INTERNAL"               // 500
)

// Error is a request-level failure with an HTTP status and optional details.
type Error struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// NewMissingCredential is returned before any outbound call is made.
func NewMissingCredential() *Error {
	return &Error{
		Code:    ErrMissingCredential,
		Status:  401,
		Message: "not logged in",
	}
}

func NewInvalidRequest(msg string) *Error {
	return &Error{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewMissingParameter reports required fields the resolved intent lacks.
func NewMissingParameter(action string, missing []string) *Error {
	return &Error{
		Code:    ErrMissingParameter,
		Status:  422,
		Message: fmt.Sprintf("%s requires parameters: %v", action, missing),
		Details: map[string]any{"action": action, "missing_parameters": missing},
	}
}

// NewModelCallFailed hides the provider error behind a generic message.
func NewModelCallFailed(err error) *Error {
	details := map[string]any{}
	if err != nil {
		details["cause"] = err.Error()
	}
	return &Error{
		Code:    ErrModelCallFailed,
		Status:  502,
		Message: "orchestrator failed",
		Details: details,
		cause:   err,
	}
}

func NewCapabilityUnavailable(backend string) *Error {
	return &Error{
		Code:    ErrCapabilityUnavailable,
		Status:  503,
		Message: fmt.Sprintf("%s backend is not available", backend),
		Details: map[string]any{"backend": backend},
	}
}

// NewBackendCallFailed carries the backend's own message when it sent one.
func NewBackendCallFailed(backend, msg string, err error) *Error {
	if msg == "" && err != nil {
		msg = err.Error()
	}
	if msg == "" {
		msg = "backend call failed"
	}
	return &Error{
		Code:    ErrBackendCallFailed,
		Status:  502,
		Message: msg,
		Details: map[string]any{"backend": backend},
		cause:   err,
	}
}

func NewInternal(err error) *Error {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &Error{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// As unwraps err to an *Error.
func As(err error) (*Error, bool) {
	var target *Error
	if stderrors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// Is reports whether err is an *Error with the given code.
func Is(err error, code ErrorCode) bool {
	if e, ok := As(err); ok {
		return e.Code == code
	}
	return false
}
