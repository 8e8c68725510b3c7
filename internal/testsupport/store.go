package testsupport

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"songline/internal/config"
	"songline/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

var requestSeq atomic.Int64

// RequestOption customizes a request built by NewRequest.
type RequestOption func(*queue.Request)

// NewRequest builds a queued request with unique id and video id.
func NewRequest(login string, priority queue.Priority, opts ...RequestOption) *queue.Request {
	n := requestSeq.Add(1)
	req := &queue.Request{
		ID:              fmt.Sprintf("req-%04d", n),
		VideoID:         fmt.Sprintf("vid%08d", n),
		Title:           fmt.Sprintf("Song %d", n),
		Artist:          "Artist",
		DurationSeconds: 180,
		Requester:       queue.Identity{Login: login},
		Priority:        priority,
		SubmittedAt:     time.Now().UTC().Add(time.Duration(n) * time.Millisecond),
		Status:          queue.StatusQueued,
	}
	req.SourceRef = "https://youtu.be/" + req.VideoID
	for _, opt := range opts {
		opt(req)
	}
	return req
}

// WithVideoID overrides the generated video id.
func WithVideoID(id string) RequestOption {
	return func(r *queue.Request) {
		r.VideoID = id
		r.SourceRef = "https://youtu.be/" + id
	}
}

// WithTitle overrides the generated title and artist.
func WithTitle(title, artist string) RequestOption {
	return func(r *queue.Request) {
		r.Title = title
		r.Artist = artist
	}
}

// IDs returns request identifiers in order.
func IDs(reqs []*queue.Request) []string {
	out := make([]string, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, r.ID)
	}
	return out
}
