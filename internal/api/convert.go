package api

import (
	"slices"
	"time"

	"songline/internal/metadata"
	"songline/internal/queue"
)

// FromRequest converts a queue record to its API representation.
func FromRequest(req *queue.Request) Request {
	if req == nil {
		return Request{}
	}
	dto := Request{
		ID:              req.ID,
		SourceRef:       req.SourceRef,
		VideoID:         req.VideoID,
		Title:           req.Title,
		Artist:          req.Artist,
		ChannelID:       req.ChannelID,
		DurationSeconds: req.DurationSeconds,
		Duration:        metadata.FormatDuration(req.DurationSeconds),
		Thumbnail:       req.Thumbnail,
		Requester: Identity{
			Login:       req.Requester.Login,
			DisplayName: req.Requester.DisplayName,
			AvatarURL:   req.Requester.AvatarURL,
		},
		Priority:    string(req.Priority),
		Bypass:      req.Bypass,
		SubmittedAt: FormatTime(req.SubmittedAt),
		Match:       FromMatch(req.Match),
		Status:      string(req.Status),
	}
	if req.ArchivedAt != nil {
		dto.ArchivedAt = FormatTime(*req.ArchivedAt)
	}
	return dto
}

// FromRequestPtr converts req, returning nil for a nil record.
func FromRequestPtr(req *queue.Request) *Request {
	if req == nil {
		return nil
	}
	dto := FromRequest(req)
	return &dto
}

// FromQueue converts an ordered queue, stamping 1-based positions.
func FromQueue(reqs []*queue.Request) []Request {
	out := make([]Request, 0, len(reqs))
	for i, req := range reqs {
		dto := FromRequest(req)
		dto.Position = i + 1
		out = append(out, dto)
	}
	return out
}

// FromRequests converts records without positions.
func FromRequests(reqs []*queue.Request) []Request {
	out := make([]Request, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, FromRequest(req))
	}
	return out
}

// FromMatch converts a track match.
func FromMatch(m *queue.TrackMatch) *TrackMatch {
	if m == nil {
		return nil
	}
	return &TrackMatch{
		ID:         m.ID,
		Name:       m.Name,
		Performers: slices.Clone(m.Performers),
		Album: Album{
			ID:          m.Album.ID,
			Name:        m.Album.Name,
			ImageURL:    m.Album.ImageURL,
			ReleaseDate: m.Album.ReleaseDate,
		},
		DurationMS:       m.DurationMS,
		URL:              m.URL,
		PreviewAvailable: m.PreviewAvailable,
		Score:            m.Score,
	}
}

// FromFilters converts content filters.
func FromFilters(filters []queue.ContentFilter) []ContentFilter {
	out := make([]ContentFilter, 0, len(filters))
	for _, f := range filters {
		out = append(out, ContentFilter{Term: f.Term, Category: string(f.Category)})
	}
	return out
}

// MergeQueueStats produces a string-keyed representation of request counts.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// ParseTime parses an API timestamp, returning the zero time on failure.
func ParseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}
