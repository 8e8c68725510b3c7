package testsupport

import (
	"context"
	"sync"

	"songline/internal/notifications"
)

// Published is one event captured by RecordingNotifier.
type Published struct {
	Event   notifications.Event
	Payload notifications.Payload
}

// RecordingNotifier captures published events in order.
type RecordingNotifier struct {
	mu     sync.Mutex
	events []Published
	Err    error
}

// Publish records the event and returns Err.
func (r *RecordingNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Published{Event: event, Payload: payload})
	return r.Err
}

// Close is a no-op.
func (r *RecordingNotifier) Close() error { return nil }

// Events returns a copy of the captured events.
func (r *RecordingNotifier) Events() []Published {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Published(nil), r.events...)
}

// Names returns the captured event names in order.
func (r *RecordingNotifier) Names() []notifications.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notifications.Event, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Event)
	}
	return out
}

// Reset drops captured events.
func (r *RecordingNotifier) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
