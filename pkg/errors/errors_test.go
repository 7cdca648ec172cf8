package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", NewInvalidInputError("bad"), http.StatusBadRequest},
		{"not found", NewNotFoundError("missing"), http.StatusNotFound},
		{"unauthorized", NewUnauthorizedError("no user"), http.StatusUnauthorized},
		{"forbidden", NewForbiddenError("not yours"), http.StatusForbidden},
		{"conflict", NewAlreadyExistsError("dup"), http.StatusConflict},
		{"unavailable", NewServiceUnavailableError("model down", fmt.Errorf("eof")), http.StatusServiceUnavailable},
		{"wrapped", fmt.Errorf("handler: %w", NewNotFoundError("journal")), http.StatusNotFound},
		{"plain", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPredicates(t *testing.T) {
	if !IsUnauthorized(fmt.Errorf("wrap: %w", NewUnauthorizedError("x"))) {
		t.Error("expected wrapped unauthorized to match")
	}
	if IsNotFound(nil) {
		t.Error("nil must not match")
	}
	if !IsForbidden(NewForbiddenError("x")) {
		t.Error("expected forbidden to match")
	}
	if IsInvalidInput(NewInternalError("x")) {
		t.Error("internal must not match invalid input")
	}
}

func TestAppErrorMessage(t *testing.T) {
	err := NewInternalErrorWithCause("failed to insert", fmt.Errorf("disk full"))
	if got := err.Error(); got != "[INTERNAL_ERROR] failed to insert: disk full" {
		t.Errorf("unexpected message %q", got)
	}
}
