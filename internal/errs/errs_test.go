// ABOUTME: Tests for the typed service errors.
// ABOUTME: Checks messages, errors.As matching, and unwrapping of upstream failures.
package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestConstructorsFormatMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation", NewValidationError("bad date %q", "x"), `bad date "x"`},
		{"not found", NewNotFoundError("no %s", "history"), "no history"},
		{"conflict", NewConflictError("busy"), "busy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.want {
				t.Errorf("Error() = %q, want %q", tt.err.Error(), tt.want)
			}
		})
	}
}

func TestErrorsAsThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("reset: %w", NewConflictError("a reset is already in progress"))

	var conflict *ConflictError
	if !errors.As(wrapped, &conflict) {
		t.Fatal("expected ConflictError through wrapping")
	}
	var validation *ValidationError
	if errors.As(wrapped, &validation) {
		t.Error("conflict should not match ValidationError")
	}
}

func TestExternalServiceErrorUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewExternalServiceError("home_assistant", true, cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to reach the cause")
	}
	if err.Error() != "connection refused" || err.Service != "home_assistant" || !err.Transient {
		t.Errorf("unexpected error %+v", err)
	}
}
