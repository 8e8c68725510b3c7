package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Identity describes a requester.
type Identity struct {
	Login       string `json:"login"`
	DisplayName string `json:"displayName,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// Album describes the catalog album of a track match.
type Album struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	ReleaseDate string `json:"releaseDate,omitempty"`
}

// TrackMatch is the catalog enrichment attached to a request.
type TrackMatch struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Performers       []string `json:"performers"`
	Album            Album    `json:"album"`
	DurationMS       int      `json:"durationMs"`
	URL              string   `json:"url,omitempty"`
	PreviewAvailable bool     `json:"previewAvailable"`
	Score            float64  `json:"score"`
}

// Request describes a queue, active or archived entry.
type Request struct {
	ID              string      `json:"id"`
	SourceRef       string      `json:"sourceRef"`
	VideoID         string      `json:"videoId"`
	Title           string      `json:"title"`
	Artist          string      `json:"artist"`
	ChannelID       string      `json:"channelId,omitempty"`
	DurationSeconds int         `json:"durationSeconds"`
	Duration        string      `json:"duration"`
	Thumbnail       string      `json:"thumbnail,omitempty"`
	Requester       Identity    `json:"requester"`
	Priority        string      `json:"priority"`
	Bypass          bool        `json:"bypass"`
	SubmittedAt     string      `json:"submittedAt,omitempty"`
	Match           *TrackMatch `json:"match,omitempty"`
	Status          string      `json:"status"`
	ArchivedAt      string      `json:"archivedAt,omitempty"`
	Position        int         `json:"position,omitempty"`
}

// ContentFilter is an admin content rule.
type ContentFilter struct {
	Term     string `json:"term"`
	Category string `json:"category"`
}

// Ceilings holds per-class duration limits in seconds.
type Ceilings struct {
	Standard int `json:"standard"`
	Elevated int `json:"elevated"`
}

// StateResponse is the full live state.
type StateResponse struct {
	Queue    []Request       `json:"queue"`
	Length   int             `json:"length"`
	Active   *Request        `json:"active"`
	Blocked  []string        `json:"blocked"`
	Filters  []ContentFilter `json:"filters"`
	Ceilings Ceilings        `json:"ceilings"`
}

// SubmitRequest is the body of POST /api/requests.
type SubmitRequest struct {
	Reference   string `json:"reference"`
	Login       string `json:"login"`
	DisplayName string `json:"displayName,omitempty"`
	Priority    string `json:"priority,omitempty"`
	Bypass      bool   `json:"bypass,omitempty"`
}

// DonationRequest is the body of POST /api/donations.
type DonationRequest struct {
	Username    string  `json:"username"`
	DisplayName string  `json:"display_name,omitempty"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency,omitempty"`
	Message     string  `json:"message"`
}

// SubmitResponse reports a submission outcome. Declines carry Reason and
// Message; acceptances carry the request and its 1-based queue position.
type SubmitResponse struct {
	Accepted bool     `json:"accepted"`
	Request  *Request `json:"request,omitempty"`
	Position int      `json:"position,omitempty"`
	Reason   string   `json:"reason,omitempty"`
	Message  string   `json:"message,omitempty"`
	Warning  string   `json:"warning,omitempty"`
}

// ReorderRequest is the body of PUT /api/queue/order.
type ReorderRequest struct {
	IDs []string `json:"ids"`
}

// LinkRequest is the body of PUT /api/requests/{id}/link. An empty URL clears
// the match.
type LinkRequest struct {
	URL string `json:"url"`
}

// ActiveRequest is the body of PUT /api/active. A null or empty ID finishes
// the active request.
type ActiveRequest struct {
	ID *string `json:"id"`
}

// CeilingRequest is the body of PUT /api/settings/ceilings/{class}.
type CeilingRequest struct {
	Seconds int `json:"seconds"`
}

// CommandResponse acknowledges an operator command.
type CommandResponse struct {
	OK      bool     `json:"ok"`
	Changed bool     `json:"changed"`
	Removed int      `json:"removed,omitempty"`
	Request *Request `json:"request,omitempty"`
	Warning string   `json:"warning,omitempty"`
}

// ArchiveResponse lists archived requests, most recent first.
type ArchiveResponse struct {
	Items []Request `json:"items"`
}

// BlocklistResponse lists blocked logins.
type BlocklistResponse struct {
	Logins []string `json:"logins"`
}

// FiltersResponse lists content filters.
type FiltersResponse struct {
	Filters []ContentFilter `json:"filters"`
}

// ErrorResponse is returned for failed calls.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	DatabasePath string         `json:"databasePath"`
	LockFilePath string         `json:"lockFilePath"`
	QueueLength  int            `json:"queueLength"`
	Active       *Request       `json:"active,omitempty"`
	Counts       map[string]int `json:"counts"`
	Realtime     bool           `json:"realtime"`
	Matching     bool           `json:"matching"`
	Directory    bool           `json:"directory"`
	Metrics      bool           `json:"metrics"`
}

// MatchPreview is the result of a dry-run resolve and match.
type MatchPreview struct {
	VideoID         string      `json:"videoId"`
	Title           string      `json:"title"`
	Artist          string      `json:"artist"`
	Duration        string      `json:"duration"`
	DurationSeconds int         `json:"durationSeconds"`
	Queries         []string    `json:"queries"`
	Match           *TrackMatch `json:"match,omitempty"`
}

// MatchRequest is the body of POST /api/match.
type MatchRequest struct {
	Reference string `json:"reference"`
}

// TestNotifyResponse reports the outcome of POST /api/test-notify.
type TestNotifyResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

// LogEvent is one retained daemon log line.
type LogEvent struct {
	Sequence      uint64            `json:"seq"`
	Timestamp     string            `json:"ts"`
	Level         string            `json:"level"`
	Message       string            `json:"msg"`
	Component     string            `json:"component,omitempty"`
	RequestID     string            `json:"requestId,omitempty"`
	Requester     string            `json:"requester,omitempty"`
	CorrelationID string            `json:"correlationId,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
}

// LogStreamResponse is returned by GET /api/logs. Pass Next as since to
// continue from the last event.
type LogStreamResponse struct {
	Events []LogEvent `json:"events"`
	Next   uint64     `json:"next"`
}
