package services_test

import (
	"errors"
	"strings"
	"testing"

	"songline/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrTransient, "youtube", "videos.list", "request failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"youtube", "videos.list", "request failed"} {
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

func TestKindMapping(t *testing.T) {
	cases := map[string]error{
		"ok":          nil,
		"validation":  services.Wrap(services.ErrValidation, "metadata", "parse", "bad link", nil),
		"policy":      services.Wrap(services.ErrPolicy, "eligibility", "check", "blocked", nil),
		"not_found":   services.Wrap(services.ErrNotFound, "metadata", "resolve", "missing", nil),
		"persistence": services.Wrap(services.ErrPersistence, "queue", "resync", "disk", errors.New("io")),
		"transient":   errors.New("plain"),
	}
	for want, err := range cases {
		if got := services.Kind(err); got != want {
			t.Fatalf("Kind(%v) = %q, want %q", err, got, want)
		}
	}
}
