package testsupport

import (
	"context"
	"sync"

	"songline/internal/matching"
	"songline/internal/metadata"
	"songline/internal/queue"
	"songline/internal/services"
	"songline/internal/services/twitch"
)

// StubResolver resolves any valid reference without network access. Unknown
// ids resolve to a three-minute "Song <id>" by "Artist".
type StubResolver struct {
	mu       sync.Mutex
	videos   map[string]metadata.Metadata
	failures map[string]string
	calls    int
}

// NewStubResolver returns an empty StubResolver.
func NewStubResolver() *StubResolver {
	return &StubResolver{videos: map[string]metadata.Metadata{}, failures: map[string]string{}}
}

// Add registers metadata for id.
func (s *StubResolver) Add(id, title, artist string, seconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos[id] = metadata.Metadata{
		VideoID:         id,
		Title:           title,
		Artist:          artist,
		DurationSeconds: seconds,
		Duration:        metadata.FormatDuration(seconds),
	}
}

// Fail makes id resolve to a *metadata.ResolutionError with reason.
func (s *StubResolver) Fail(id, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[id] = reason
}

// Calls reports how many references reached resolution.
func (s *StubResolver) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Resolve implements lifecycle.Resolver.
func (s *StubResolver) Resolve(_ context.Context, ref string) (metadata.Metadata, error) {
	id, err := metadata.ParseReference(ref)
	if err != nil {
		return metadata.Metadata{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if reason, ok := s.failures[id]; ok {
		return metadata.Metadata{}, &metadata.ResolutionError{VideoID: id, Reason: reason, Err: services.ErrNotFound}
	}
	if m, ok := s.videos[id]; ok {
		return m, nil
	}
	return metadata.Metadata{
		VideoID:         id,
		Title:           "Song " + id,
		Artist:          "Artist",
		DurationSeconds: 180,
		Duration:        "3:00",
	}, nil
}

// StubMatcher returns a fixed match.
type StubMatcher struct {
	Result *queue.TrackMatch
}

// Match implements lifecycle.Matcher.
func (s StubMatcher) Match(context.Context, matching.Video) *queue.TrackMatch {
	if s.Result == nil {
		return nil
	}
	cp := *s.Result
	return &cp
}

// StubDirectory serves fixed profiles keyed by login.
type StubDirectory map[string]twitch.User

// User implements lifecycle.Directory.
func (s StubDirectory) User(_ context.Context, login string) (*twitch.User, error) {
	u, ok := s[login]
	if !ok {
		return nil, services.ErrNotFound
	}
	return &u, nil
}
