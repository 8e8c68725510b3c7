// Package lifecycle owns the live request queue and drives requests through
// queued, active, archived and removed states.
//
// The Coordinator is an actor: one goroutine (Run) applies every mutation,
// awaits the store write, then publishes notifications, so subscribers see
// changes in application order and never before they are durable. Network
// work for submissions (identity lookup, resolution, matching) runs on the
// caller's goroutine, serialized per requester, and eligibility is re-checked
// against current lists at insertion time.
//
// Store failures do not roll back in-memory state; they are logged, counted,
// pushed to operators, and returned as a Warning on the command result.
package lifecycle
