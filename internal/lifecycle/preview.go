package lifecycle

import (
	"context"

	"songline/internal/matching"
	"songline/internal/metadata"
	"songline/internal/queue"
)

// Preview is a dry-run resolution and match that touches no state.
type Preview struct {
	Metadata metadata.Metadata
	Queries  []string
	Match    *queue.TrackMatch
}

type queryPlanner interface {
	Queries(v matching.Video) []string
}

// Preview resolves ref and runs the matcher without queueing anything.
func (c *Coordinator) Preview(ctx context.Context, ref string) (Preview, error) {
	meta, err := c.resolver.Resolve(ctx, ref)
	if err != nil {
		return Preview{}, err
	}
	out := Preview{Metadata: meta}
	if c.matcher == nil {
		return out, nil
	}
	video := matching.Video{Title: meta.Title, Channel: meta.Artist}
	if planner, ok := c.matcher.(queryPlanner); ok {
		out.Queries = planner.Queries(video)
	}
	out.Match = c.matcher.Match(ctx, video)
	return out, nil
}
