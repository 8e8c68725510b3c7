package notifications

// Event identifies a notification type.
type Event string

const (
	// EventQueueChanged carries the full queue after any insertion, removal or reorder.
	EventQueueChanged Event = "queue.changed"
	// EventActiveChanged carries the active request, or null when the slot empties.
	EventActiveChanged Event = "active.changed"
	// EventArchiveAppended carries the request that just entered the archive.
	EventArchiveAppended Event = "archive.appended"
	// EventSubmissionDeclined carries the requester, reason code and message.
	EventSubmissionDeclined Event = "submission.declined"
	// EventEnrichmentAttached carries a request id and its new track match.
	EventEnrichmentAttached Event = "enrichment.attached"
	// EventPersistenceFailed reports a store write that failed after the
	// in-memory change was applied.
	EventPersistenceFailed Event = "persistence.failed"
	EventTest              Event = "test"
)

// Payload carries structured event data. Values must be JSON encodable.
type Payload map[string]any

func (p Payload) string(key string) string {
	if p == nil {
		return ""
	}
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}
