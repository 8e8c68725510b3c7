package metadata_test

import (
	"context"
	"errors"
	"testing"

	"songline/internal/logging"
	"songline/internal/metadata"
	"songline/internal/services"
	"songline/internal/services/youtube"
)

type stubSource struct {
	video *youtube.Video
	err   error
	calls int
}

func (s *stubSource) Video(_ context.Context, id string) (*youtube.Video, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	v := *s.video
	v.ID = id
	return &v, nil
}

func TestResolveBuildsMetadata(t *testing.T) {
	source := &stubSource{video: &youtube.Video{
		Title:        "  Artist - Song (Official Video) ",
		ChannelID:    "UC123",
		ChannelTitle: "ArtistVEVO",
		Duration:     "PT3M45S",
		Thumbnails: map[string]youtube.Thumbnail{
			"default": {URL: "https://i.ytimg.com/default.jpg", Width: 120, Height: 90},
			"high":    {URL: "https://i.ytimg.com/high.jpg", Width: 480, Height: 360},
		},
	}}
	resolver := metadata.NewResolver(source, logging.NewNop())

	meta, err := resolver.Resolve(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if meta.VideoID != "dQw4w9WgXcQ" {
		t.Fatalf("unexpected id %q", meta.VideoID)
	}
	if meta.Title != "Artist - Song (Official Video)" || meta.Artist != "ArtistVEVO" {
		t.Fatalf("unexpected title/artist: %q / %q", meta.Title, meta.Artist)
	}
	if meta.DurationSeconds != 225 || meta.Duration != "3:45" {
		t.Fatalf("unexpected duration: %d %q", meta.DurationSeconds, meta.Duration)
	}
	if meta.Thumbnail != "https://i.ytimg.com/high.jpg" {
		t.Fatalf("unexpected thumbnail %q", meta.Thumbnail)
	}
}

func TestResolveValidationSkipsNetwork(t *testing.T) {
	source := &stubSource{}
	resolver := metadata.NewResolver(source, logging.NewNop())
	_, err := resolver.Resolve(context.Background(), "https://example.com/nope")
	var verr *metadata.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if source.calls != 0 {
		t.Fatalf("expected no upstream calls, got %d", source.calls)
	}
}

func TestResolveMapsUpstreamErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		reason string
		marker error
	}{
		{"missing", services.Wrap(services.ErrNotFound, "youtube", "video", "no items", nil), metadata.ReasonUnavailable, services.ErrNotFound},
		{"outage", services.Wrap(services.ErrTransient, "youtube", "video", "status 503", nil), metadata.ReasonUpstream, services.ErrTransient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resolver := metadata.NewResolver(&stubSource{err: tc.err}, logging.NewNop())
			_, err := resolver.Resolve(context.Background(), "dQw4w9WgXcQ")
			var rerr *metadata.ResolutionError
			if !errors.As(err, &rerr) {
				t.Fatalf("expected ResolutionError, got %v", err)
			}
			if rerr.Reason != tc.reason {
				t.Fatalf("reason = %q, want %q", rerr.Reason, tc.reason)
			}
			if !errors.Is(err, tc.marker) {
				t.Fatalf("expected error to match %v", tc.marker)
			}
			if rerr.Message() == "" {
				t.Fatal("expected user-facing message")
			}
		})
	}
}

func TestResolveRejectsLiveBroadcasts(t *testing.T) {
	source := &stubSource{video: &youtube.Video{Title: "Live", Duration: "P0D", LiveBroadcastContent: "live"}}
	resolver := metadata.NewResolver(source, logging.NewNop())
	_, err := resolver.Resolve(context.Background(), "dQw4w9WgXcQ")
	var rerr *metadata.ResolutionError
	if !errors.As(err, &rerr) || rerr.Reason != metadata.ReasonLive {
		t.Fatalf("expected live ResolutionError, got %v", err)
	}
}
