package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindHelpers(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		validation bool
		notFound   bool
		cycle      bool
		status     int
	}{
		{"validation", NewValidationError("bad", nil), true, false, false, http.StatusBadRequest},
		{"not found", NewNotFound("ticket", nil), false, true, false, http.StatusNotFound},
		{"cycle", NewNotificationCycle(17), false, false, true, http.StatusConflict},
		{"wrapped validation", fmt.Errorf("submit: %w", NewValidationError("bad", nil)), true, false, false, http.StatusBadRequest},
		{"plain", errors.New("boom"), false, false, false, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsValidation(tc.err); got != tc.validation {
				t.Errorf("IsValidation = %v, want %v", got, tc.validation)
			}
			if got := IsNotFound(tc.err); got != tc.notFound {
				t.Errorf("IsNotFound = %v, want %v", got, tc.notFound)
			}
			if got := IsNotificationCycle(tc.err); got != tc.cycle {
				t.Errorf("IsNotificationCycle = %v, want %v", got, tc.cycle)
			}
			if got := ToDomainError(tc.err).HTTPStatus; got != tc.status {
				t.Errorf("HTTPStatus = %d, want %d", got, tc.status)
			}
		})
	}
}

func TestToDomainErrorNil(t *testing.T) {
	if ToDomainError(nil) != nil {
		t.Fatal("expected nil for nil error")
	}
}

func TestInternalErrorUnwraps(t *testing.T) {
	cause := errors.New("pool closed")
	err := NewInternalError(cause)
	if !errors.Is(err, cause) {
		t.Fatal("internal error should unwrap to its cause")
	}
	if err.Error() != "internal server error: pool closed" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
