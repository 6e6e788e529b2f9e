package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	err := &Error{Code: ErrInvalidRequest, Status: 400, Message: "query is required"}

	expected := "INVALID_REQUEST: query is required"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestConstructorsStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    *Error
		code   ErrorCode
		status int
	}{
		{name: "missing credential", err: NewMissingCredential(), code: ErrMissingCredential, status: 401},
		{name: "invalid request", err: NewInvalidRequest("bad"), code: ErrInvalidRequest, status: 400},
		{name: "missing parameter", err: NewMissingParameter("createRepo", []string{"name"}), code: ErrMissingParameter, status: 422},
		{name: "model call", err: NewModelCallFailed(fmt.Errorf("timeout")), code: ErrModelCallFailed, status: 502},
		{name: "capability", err: NewCapabilityUnavailable("container-runtime"), code: ErrCapabilityUnavailable, status: 503},
		{name: "backend call", err: NewBackendCallFailed("source-control", "boom", nil), code: ErrBackendCallFailed, status: 502},
		{name: "internal", err: NewInternal(nil), code: ErrInternal, status: 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.code)
			}
			if tt.err.Status != tt.status {
				t.Errorf("Status = %d, want %d", tt.err.Status, tt.status)
			}
		})
	}
}

func TestNewCapabilityUnavailableNamesBackend(t *testing.T) {
	err := NewCapabilityUnavailable("container-runtime")

	if err.Details["backend"] != "container-runtime" {
		t.Errorf("Details[backend] = %v, want container-runtime", err.Details["backend"])
	}
	if err.Message != "container-runtime backend is not available" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewModelCallFailedKeepsCause(t *testing.T) {
	cause := fmt.Errorf("deadline exceeded")
	err := NewModelCallFailed(cause)

	if err.Message != "orchestrator failed" {
		t.Errorf("Message = %q, want generic message", err.Message)
	}
	if !stderrors.Is(err, cause) {
		t.Errorf("expected errors.Is to find the cause")
	}
}

func TestNewBackendCallFailedMessageFallback(t *testing.T) {
	if got := NewBackendCallFailed("source-control", "", fmt.Errorf("connection refused")).Message; got != "connection refused" {
		t.Errorf("Message = %q, want transport error", got)
	}
	if got := NewBackendCallFailed("source-control", "", nil).Message; got != "backend call failed" {
		t.Errorf("Message = %q, want default", got)
	}
}

func TestIsAndAs(t *testing.T) {
	wrapped := fmt.Errorf("route: %w", NewCapabilityUnavailable("source-control"))

	if !Is(wrapped, ErrCapabilityUnavailable) {
		t.Errorf("Is() = false for wrapped error")
	}
	if Is(wrapped, ErrInternal) {
		t.Errorf("Is() matched wrong code")
	}
	if Is(fmt.Errorf("plain"), ErrInternal) {
		t.Errorf("Is() matched a plain error")
	}

	e, ok := As(wrapped)
	if !ok || e.Status != 503 {
		t.Errorf("As() = %v, %v", e, ok)
	}
}
