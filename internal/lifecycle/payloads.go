package lifecycle

import (
	"context"

	"songline/internal/api"
	"songline/internal/notifications"
	"songline/internal/queue"
)

func (c *Coordinator) publishQueue(ctx context.Context) {
	c.publish(ctx, notifications.EventQueueChanged, notifications.Payload{
		"queue":  api.FromQueue(c.state.queue),
		"length": len(c.state.queue),
	})
}

func (c *Coordinator) publishActive(ctx context.Context) {
	c.publish(ctx, notifications.EventActiveChanged, notifications.Payload{
		"active": api.FromRequestPtr(c.state.active),
	})
}

func (c *Coordinator) publishArchived(ctx context.Context, archived *queue.Request) {
	c.publish(ctx, notifications.EventArchiveAppended, notifications.Payload{
		"request": api.FromRequest(archived),
	})
}

func (c *Coordinator) publishEnrichment(ctx context.Context, id string, match *queue.TrackMatch) {
	c.publish(ctx, notifications.EventEnrichmentAttached, notifications.Payload{
		"id":    id,
		"match": api.FromMatch(match),
	})
}
