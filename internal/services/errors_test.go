package services_test

import (
	"errors"
	"strings"
	"testing"

	"barista/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	cause := errors.New("boom")
	err := services.Wrap(services.ErrInterpretation, "recommending", "parse response", "no payload", cause)
	if !errors.Is(err, services.ErrInterpretation) {
		t.Fatalf("expected interpretation marker, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be wrapped, got %v", err)
	}
	if !strings.Contains(err.Error(), "recommending: parse response") {
		t.Fatalf("expected stage detail in message, got %q", err.Error())
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"interpretation", services.Wrap(services.ErrInterpretation, "s", "o", "m", nil), true},
		{"timeout", services.Wrap(services.ErrTimeout, "s", "o", "m", nil), true},
		{"transient", services.ErrTransient, true},
		{"compilation", services.Wrap(services.ErrCompilation, "s", "o", "m", nil), false},
		{"schema", services.ErrSchemaViolation, false},
		{"machine", services.ErrMachine, false},
		{"plain", errors.New("plain"), false},
	}
	for _, tc := range cases {
		if got := services.Retryable(tc.err); got != tc.want {
			t.Errorf("%s: Retryable = %v, want %v", tc.name, got, tc.want)
		}
	}
}
