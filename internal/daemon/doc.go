// Package daemon runs the long-lived songline process.
//
// It holds a gofrs/flock lock so only one instance owns the database, restores
// and runs the lifecycle coordinator, and serves the HTTP API used by the CLI,
// chat bots, donation callbacks and overlays. Handlers translate JSON into
// coordinator commands and map error kinds onto HTTP status codes; they hold
// no queue state of their own.
package daemon
