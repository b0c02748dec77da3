package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestGetType(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"not found", NotFoundf("player %s", "p1"), ErrorTypeNotFound},
		{"invalid state", InvalidStatef("drone destroyed"), ErrorTypeInvalidState},
		{"insufficient", InsufficientResourcef("need %d turns", 5), ErrorTypeInsufficientResource},
		{"unreachable", Unreachablef("no valid path"), ErrorTypeUnreachable},
		{"forbidden", Forbiddenf("warp capability required"), ErrorTypeForbidden},
		{"unavailable", WrapUnavailable("commit", errors.New("deadlock")), ErrorTypeUnavailable},
		{"wrapped by fmt", fmt.Errorf("outer: %w", Unreachablef("x")), ErrorTypeUnreachable},
		{"plain error", errors.New("boom"), ErrorTypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetType(tt.err); got != tt.want {
				t.Errorf("GetType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAppErrorMessage(t *testing.T) {
	err := WrapInternal("load sector", errors.New("connection reset"))
	if got := err.Error(); got != "load sector: connection reset" {
		t.Fatalf("Error() = %q", got)
	}
	if Is(nil, ErrorTypeInternal) {
		t.Fatal("Is(nil) should be false")
	}
}
