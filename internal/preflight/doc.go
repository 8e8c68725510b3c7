// Package preflight provides readiness checks for the external services and
// filesystem paths songline depends on.
//
// The daemon runs RunAll at startup and logs every failed check without
// refusing to start, since a missing catalog or realtime sink only degrades
// enrichment. The CLI "songline status --preflight" command prints the same
// results. Each integration check is gated by its config toggle.
package preflight
