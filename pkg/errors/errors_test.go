package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", ErrInvalidInput, http.StatusBadRequest},
		{"wrapped doc id", fmt.Errorf("record: %w", ErrInvalidDocID), http.StatusBadRequest},
		{"malformed", ErrMalformedFile, http.StatusBadRequest},
		{"missing field", ErrMissingField, http.StatusBadRequest},
		{"config missing", ErrConfigMissing, http.StatusNotFound},
		{"requests missing", ErrRequestsMissing, http.StatusNotFound},
		{"unauthorized", fmt.Errorf("%w: bad key", ErrUnauthorized), http.StatusUnauthorized},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests},
		{"unavailable", ErrUnavailable, http.StatusServiceUnavailable},
		{"timeout", ErrTimeout, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
		{"app error wins", New(ErrInvalidInput, http.StatusConflict, "taken"), http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusCode(tt.err); got != tt.want {
				t.Errorf("HTTPStatusCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestAppError(t *testing.T) {
	err := Newf(ErrMissingField, http.StatusBadRequest, "field %q is required", "files")
	if !errors.Is(err, ErrMissingField) {
		t.Error("AppError does not unwrap to its sentinel")
	}
	if got, want := err.Error(), `required field missing: field "files" is required`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
