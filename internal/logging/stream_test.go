package logging

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestStreamHandlerCapturesLoggerAndCallSiteAttrs(t *testing.T) {
	hub := NewStreamHub(100)
	logger := slog.New(newStreamHandler(slog.NewTextHandler(io.Discard, nil), hub)).
		With(slog.String(FieldComponent, "lifecycle")).
		With(slog.String(FieldRequestID, "r1"))

	logger.Info("request accepted", slog.Int("position", 2), slog.String(FieldRequestID, "r2"))

	events, next := hub.Tail(10)
	if len(events) != 1 || next != 1 {
		t.Fatalf("expected 1 event, got %d (next %d)", len(events), next)
	}
	evt := events[0]
	if evt.Component != "lifecycle" {
		t.Errorf("component = %q", evt.Component)
	}
	if evt.RequestID != "r2" {
		t.Errorf("call-site request id should win, got %q", evt.RequestID)
	}
	if evt.Fields["position"] != "2" {
		t.Errorf("fields = %v", evt.Fields)
	}
	if evt.Level != "INFO" || evt.Message != "request accepted" {
		t.Errorf("unexpected event %+v", evt)
	}
}

func TestStreamHubDropsOldestBeyondCapacity(t *testing.T) {
	hub := NewStreamHub(3)
	for range 5 {
		hub.Publish(LogEvent{Message: "x"})
	}
	events, next := hub.Tail(0)
	if len(events) != 3 || next != 5 {
		t.Fatalf("got %d events, next %d", len(events), next)
	}
	if events[0].Sequence != 3 {
		t.Fatalf("expected oldest retained sequence 3, got %d", events[0].Sequence)
	}
}

func TestStreamHubFetchSince(t *testing.T) {
	hub := NewStreamHub(10)
	for range 4 {
		hub.Publish(LogEvent{Message: "x"})
	}
	events, next, err := hub.Fetch(context.Background(), 2, 1, false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 1 || events[0].Sequence != 3 || next != 3 {
		t.Fatalf("unexpected fetch result %+v next=%d", events, next)
	}
	events, next, _ = hub.Fetch(context.Background(), 4, 10, false)
	if len(events) != 0 || next != 4 {
		t.Fatalf("expected nothing past the head, got %d next=%d", len(events), next)
	}
}

func TestStreamHubFetchWaitsForEvents(t *testing.T) {
	hub := NewStreamHub(10)
	done := make(chan []LogEvent, 1)
	go func() {
		events, _, _ := hub.Fetch(context.Background(), 0, 10, true)
		done <- events
	}()
	time.Sleep(10 * time.Millisecond)
	hub.Publish(LogEvent{Message: "late"})

	select {
	case events := <-done:
		if len(events) != 1 || events[0].Message != "late" {
			t.Fatalf("unexpected events %+v", events)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Fetch did not wake up")
	}
}

func TestStreamHubFetchHonoursCancellation(t *testing.T) {
	hub := NewStreamHub(10)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err := hub.Fetch(ctx, 0, 10, true)
	if err == nil {
		t.Fatal("expected context error")
	}
}
