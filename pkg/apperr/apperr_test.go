package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		err  error
		want Code
	}{
		{Unauthenticated("bad token"), CodeUnauthenticated},
		{Forbidden("nope"), CodeForbidden},
		{NotFound("missing"), CodeNotFound},
		{Conflict("dup"), CodeConflict},
		{InvalidInput("bad"), CodeInvalidInput},
		{Unavailable("down", nil), CodeUnavailable},
		{errors.New("plain"), CodeUnavailable},
		{fmt.Errorf("wrapped: %w", NotFound("missing")), CodeNotFound},
	}

	for _, tt := range tests {
		if got := CodeOf(tt.err); got != tt.want {
			t.Errorf("CodeOf(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestErrorsIsMatchesOnCode(t *testing.T) {
	err := fmt.Errorf("context: %w", Forbidden("user is not a member"))
	if !errors.Is(err, Forbidden("")) {
		t.Error("expected errors.Is to match forbidden errors by code")
	}
	if errors.Is(err, NotFound("")) {
		t.Error("forbidden error should not match not-found")
	}
}

func TestUnavailableKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Unavailable("store unreachable", cause)
	if !errors.Is(err, cause) {
		t.Error("expected the cause to stay in the chain")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Unauthenticated(""), http.StatusUnauthorized},
		{Forbidden(""), http.StatusForbidden},
		{NotFound(""), http.StatusNotFound},
		{Conflict(""), http.StatusConflict},
		{InvalidInput(""), http.StatusBadRequest},
		{Unavailable("", nil), http.StatusServiceUnavailable},
		{errors.New("plain"), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
