package metadata

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"songline/internal/logging"
	"songline/internal/services"
	"songline/internal/services/youtube"
)

// Metadata is the resolved description of a video.
type Metadata struct {
	VideoID         string
	Title           string
	Artist          string
	ChannelID       string
	DurationSeconds int
	Duration        string
	Thumbnail       string
}

// VideoSource fetches raw video details.
type VideoSource interface {
	Video(ctx context.Context, id string) (*youtube.Video, error)
}

// Resolver turns a user-supplied reference into Metadata. It performs no
// retries; callers decide how to surface failures.
type Resolver struct {
	source VideoSource
	logger *slog.Logger
}

// NewResolver builds a Resolver over source.
func NewResolver(source VideoSource, logger *slog.Logger) *Resolver {
	return &Resolver{source: source, logger: logging.NewComponentLogger(logger, "resolver")}
}

// Resolve parses ref and looks the video up. Malformed references return a
// *ValidationError; upstream misses and failures return a *ResolutionError.
func (r *Resolver) Resolve(ctx context.Context, ref string) (Metadata, error) {
	id, err := ParseReference(ref)
	if err != nil {
		return Metadata{}, err
	}
	logger := logging.WithContext(ctx, r.logger)

	video, err := r.source.Video(ctx, id)
	if err != nil {
		reason := ReasonUpstream
		if errors.Is(err, services.ErrNotFound) {
			reason = ReasonUnavailable
		}
		logger.Info("video resolution failed",
			logging.String("video_id", id),
			logging.String("reason", reason),
			logging.Error(err),
		)
		return Metadata{}, &ResolutionError{VideoID: id, Reason: reason, Err: err}
	}

	switch strings.ToLower(video.LiveBroadcastContent) {
	case "live", "upcoming":
		return Metadata{}, &ResolutionError{VideoID: id, Reason: ReasonLive}
	}

	seconds, err := ParseISODuration(video.Duration)
	if err != nil {
		return Metadata{}, &ResolutionError{
			VideoID: id,
			Reason:  ReasonUpstream,
			Err:     services.Wrap(services.ErrTransient, "resolver", "duration", "unparseable duration", err),
		}
	}

	meta := Metadata{
		VideoID:         id,
		Title:           strings.TrimSpace(video.Title),
		Artist:          strings.TrimSpace(video.ChannelTitle),
		ChannelID:       video.ChannelID,
		DurationSeconds: seconds,
		Duration:        FormatDuration(seconds),
		Thumbnail:       video.BestThumbnail(),
	}
	logger.Debug("video resolved",
		logging.String("video_id", id),
		logging.String("title", meta.Title),
		logging.Int("duration_seconds", seconds),
	)
	return meta, nil
}
