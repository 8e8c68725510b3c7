// Package notifications delivers queue events to external collaborators.
//
// Audience-facing events (queue, active slot, archive, declines, enrichment)
// are published as JSON envelopes on Redis pub/sub channels for overlays and
// chat bots. Operator events (declines, persistence failures, tests) can also
// be pushed to an ntfy topic. NewService wires whichever sinks are configured
// and degrades to a no-op when none are.
//
// Callers depend only on the Service interface.
package notifications
