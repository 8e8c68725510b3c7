// Package api defines wire-format types, converters, and the HTTP client for
// the daemon API. It translates internal queue models into transport-friendly
// DTOs that overlays, chat bots, and the CLI can render without coupling to
// internal types.
//
// # Key Types
//
// Request: transport representation of a queued, active, or archived song
// request, including its optional catalog match.
//
// StateResponse: the live queue, active slot, and admin lists.
//
// SubmitResponse: acceptance with a 1-based position, or a decline with a
// reason code and human-readable message.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript consumers. Internal enums
// (queue.Status, queue.Priority) are exposed as lowercase strings. Timestamps
// use RFC3339 with milliseconds.
//
// The same DTOs are embedded in realtime notification payloads, so overlays
// and API clients decode one shape.
package api
