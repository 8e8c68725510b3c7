package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a request.
type Status string

const (
	StatusQueued   Status = "queued"
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
	StatusRemoved  Status = "removed"
)

// Priority is the request class. Elevated requests always sit ahead of
// standard ones in the queue.
type Priority string

const (
	PriorityStandard Priority = "standard"
	PriorityElevated Priority = "elevated"
)

// ParsePriority converts user input to a Priority.
func ParsePriority(value string) (Priority, bool) {
	switch Priority(strings.ToLower(strings.TrimSpace(value))) {
	case PriorityStandard, "":
		return PriorityStandard, true
	case PriorityElevated:
		return PriorityElevated, true
	default:
		return "", false
	}
}

// Identity describes the viewer who submitted a request.
type Identity struct {
	Login       string `json:"login"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Name returns the display name, falling back to the login.
func (i Identity) Name() string {
	if name := strings.TrimSpace(i.DisplayName); name != "" {
		return name
	}
	return i.Login
}

// NormalizeLogin lowercases and trims a login so comparisons are
// case-insensitive.
func NormalizeLogin(login string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(login), "@")))
}

// Album is the catalog album attached to a track match.
type Album struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	ReleaseDate string `json:"release_date,omitempty"`
}

// TrackMatch is the persisted enrichment descriptor for a request.
type TrackMatch struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Performers       []string `json:"performers"`
	Album            Album    `json:"album"`
	DurationMS       int      `json:"duration_ms"`
	URL              string   `json:"url,omitempty"`
	PreviewAvailable bool     `json:"preview_available"`
	Score            float64  `json:"score"`
}

// Request is a song request moving through the queue lifecycle.
type Request struct {
	ID              string
	SourceRef       string
	VideoID         string
	Title           string
	Artist          string
	ChannelID       string
	DurationSeconds int
	Thumbnail       string
	Requester       Identity
	Priority        Priority
	Bypass          bool
	SubmittedAt     time.Time
	Match           *TrackMatch
	Status          Status
	ArchivedAt      *time.Time
}

// Clone returns a deep copy safe to hand to other goroutines.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	cp := *r
	if r.Match != nil {
		m := *r.Match
		m.Performers = append([]string(nil), r.Match.Performers...)
		cp.Match = &m
	}
	if r.ArchivedAt != nil {
		at := *r.ArchivedAt
		cp.ArchivedAt = &at
	}
	return &cp
}

// FilterCategory selects which request fields a content filter inspects.
type FilterCategory string

const (
	FilterTitle   FilterCategory = "title"
	FilterArtist  FilterCategory = "artist"
	FilterKeyword FilterCategory = "keyword"
)

// ParseFilterCategory converts user input to a FilterCategory.
func ParseFilterCategory(value string) (FilterCategory, bool) {
	switch c := FilterCategory(strings.ToLower(strings.TrimSpace(value))); c {
	case FilterTitle, FilterArtist, FilterKeyword:
		return c, true
	default:
		return "", false
	}
}

// ContentFilter blocks requests whose title or artist contains Term.
type ContentFilter struct {
	Term     string         `json:"term"`
	Category FilterCategory `json:"category"`
}

// Ceilings holds the maximum accepted duration in seconds per priority class.
type Ceilings struct {
	Standard int `json:"standard"`
	Elevated int `json:"elevated"`
}

// For returns the ceiling applying to p.
func (c Ceilings) For(p Priority) int {
	if p == PriorityElevated {
		return c.Elevated
	}
	return c.Standard
}

// State is everything the coordinator restores at startup.
type State struct {
	Queue    []*Request
	Active   *Request
	Blocked  []string
	Filters  []ContentFilter
	Ceilings Ceilings
}

// ActiveChange describes one transition of the active slot, persisted atomically.
type ActiveChange struct {
	// Archived is the previous active request, now archived. May be nil.
	Archived *Request
	// Activated is the request promoted to active. May be nil on finish.
	Activated *Request
	// Queue, when non-nil, replaces the persisted queue order.
	Queue []*Request
}
