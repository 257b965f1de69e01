package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"mangamatch/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrMalformedResponse, "anilist", "search", "decode page", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrMalformedResponse) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"anilist", "search", "decode page"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestHalts(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limited", services.Wrap(services.ErrRateLimited, "gateway", "execute", "429", nil), true},
		{"context cancelled", fmt.Errorf("search: %w", context.Canceled), true},
		{"cancel marker", services.ErrCancelled, true},
		{"malformed", services.ErrMalformedResponse, false},
		{"transient", services.ErrTransient, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := services.Halts(tt.err); got != tt.want {
				t.Fatalf("Halts(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
