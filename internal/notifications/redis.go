package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"songline/internal/services"
)

const defaultPublishTimeout = 5 * time.Second

// Envelope is the JSON message published on the realtime channel.
type Envelope struct {
	Event   Event     `json:"event"`
	Payload Payload   `json:"payload"`
	TS      time.Time `json:"ts"`
}

// RedisPublisher publishes events to Redis pub/sub channels named
// "<prefix>:<event>".
type RedisPublisher struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
	now     func() time.Time
}

// NewRedisPublisher connects lazily to the Redis server at rawURL.
func NewRedisPublisher(rawURL, prefix string, timeout time.Duration) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "notifications", "redis url", "parse realtime.redis_url", err)
	}
	return NewRedisPublisherWithClient(redis.NewClient(opts), prefix, timeout), nil
}

// NewRedisPublisherWithClient wraps an existing client.
func NewRedisPublisherWithClient(client *redis.Client, prefix string, timeout time.Duration) *RedisPublisher {
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	return &RedisPublisher{
		client:  client,
		prefix:  strings.Trim(strings.TrimSpace(prefix), ":"),
		timeout: timeout,
		now:     time.Now,
	}
}

// Channel returns the pub/sub channel for event.
func (p *RedisPublisher) Channel(event Event) string {
	if p.prefix == "" {
		return string(event)
	}
	return p.prefix + ":" + string(event)
}

// Publish sends the event envelope.
func (p *RedisPublisher) Publish(ctx context.Context, event Event, payload Payload) error {
	if p == nil || p.client == nil {
		return nil
	}
	if payload == nil {
		payload = Payload{}
	}
	body, err := json.Marshal(Envelope{Event: event, Payload: payload, TS: p.now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", event, err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.client.Publish(pubCtx, p.Channel(event), body).Err(); err != nil {
		return services.Wrap(services.ErrTransient, "notifications", "redis publish", string(event), err)
	}
	return nil
}

// Ping checks connectivity.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.client.Ping(pingCtx).Err()
}

func (p *RedisPublisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}
