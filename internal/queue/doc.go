// Package queue persists song requests in SQLite and defines the request
// model shared by the rest of songline.
//
// The Store holds queued, active, archived, and removed requests together with
// the block list, content filters, and duration ceilings. The lifecycle
// coordinator is the single writer: it mutates its in-memory state first and
// then calls SyncQueue or ApplyActiveChange so each command is persisted in one
// transaction. Archived rows are never updated, only deleted.
//
// Schema changes bump schemaVersion in store_core.go.
package queue
