package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestAppErrorMessage(t *testing.T) {
	err := InvalidInput("test.Op", nil, "bad request")

	if err.Code != http.StatusBadRequest {
		t.Errorf("expected code %d, got %d", http.StatusBadRequest, err.Code)
	}
	if err.Error() != "bad request" {
		t.Errorf("expected 'bad request', got %q", err.Error())
	}
}

func TestAppErrorWithCause(t *testing.T) {
	cause := fmt.Errorf("underlying failure")
	err := Internal("test.Op", cause, "something broke")

	expected := "something broke: underlying failure"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
	if err.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "not found error",
			err:      NotFound("op", nil, "missing"),
			expected: true,
		},
		{
			name:     "invalid input error",
			err:      InvalidInput("op", nil, "bad"),
			expected: false,
		},
		{
			name:     "plain error",
			err:      fmt.Errorf("plain"),
			expected: false,
		},
		{
			name:     "wrapped not found",
			err:      fmt.Errorf("wrapped: %w", NotFound("op", nil, "missing")),
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.expected {
				t.Errorf("IsNotFound() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestIsInvalidInput(t *testing.T) {
	if !IsInvalidInput(InvalidInput("op", nil, "bad")) {
		t.Error("expected true for invalid input error")
	}
	if IsInvalidInput(Unauthorized("op", nil, "nope")) {
		t.Error("expected false for unauthorized error")
	}
}
