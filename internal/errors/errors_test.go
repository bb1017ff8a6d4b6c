// Package errors provides unit tests for the error taxonomy.
package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

// TestNew tests creating an error with code and message.
func TestNew(t *testing.T) {
	err := New(ErrNotFound, "record missing")

	if err.Code != ErrNotFound {
		t.Errorf("Expected code %s, got %s", ErrNotFound, err.Code)
	}
	if !strings.Contains(err.Error(), "NOT_FOUND") {
		t.Errorf("Expected code in message, got %q", err.Error())
	}
	if !strings.Contains(err.Error(), "record missing") {
		t.Errorf("Expected message in output, got %q", err.Error())
	}
}

// TestNewf tests formatted error construction.
func TestNewf(t *testing.T) {
	err := Newf(ErrValidationFailed, "invalid record for %s", "menuItems")

	if !strings.Contains(err.Message, "menuItems") {
		t.Errorf("Expected table name in message, got %q", err.Message)
	}
}

// TestWrapAndUnwrap tests error wrapping.
func TestWrapAndUnwrap(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(ErrStorageUnavailable, "write failed", cause)

	if !strings.Contains(err.Error(), "disk full") {
		t.Errorf("Expected cause in message, got %q", err.Error())
	}
	if !stderrors.Is(err, cause) {
		t.Error("Expected errors.Is to find the wrapped cause")
	}
}

// TestIs tests code matching.
func TestIs(t *testing.T) {
	err := New(ErrNotFound, "missing")

	if !Is(err, ErrNotFound) {
		t.Error("Expected Is to match the code")
	}
	if Is(err, ErrValidationFailed) {
		t.Error("Expected Is to reject a different code")
	}
	if Is(stderrors.New("plain"), ErrNotFound) {
		t.Error("Expected Is to reject a non-AppError")
	}
}

// TestCodeOf tests code extraction.
func TestCodeOf(t *testing.T) {
	if CodeOf(New(ErrQueueFull, "full")) != ErrQueueFull {
		t.Error("Expected QUEUE_FULL code")
	}
	if CodeOf(stderrors.New("plain")) != ErrInternal {
		t.Error("Expected INTERNAL_ERROR for non-AppError")
	}
}
