package notifications

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"songline/internal/config"
	"songline/internal/logging"
)

// Service publishes events to external collaborators.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
	Close() error
}

// NewService assembles the configured sinks: the realtime channel when a
// Redis URL is set and ntfy when a topic is set. With neither, a no-op
// service is returned.
func NewService(cfg *config.Config, logger *slog.Logger) (Service, error) {
	if cfg == nil {
		return noopService{}, nil
	}
	var sinks []Service
	if cfg.RealtimeEnabled() {
		pub, err := NewRedisPublisher(cfg.Realtime.RedisURL, cfg.Realtime.ChannelPrefix, cfg.RealtimePublishTimeout())
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, pub)
	}
	if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		sinks = append(sinks, newNtfyService(cfg))
	}
	switch len(sinks) {
	case 0:
		return noopService{}, nil
	case 1:
		return sinks[0], nil
	}
	return NewFanout(logger, sinks...), nil
}

type fanout struct {
	sinks  []Service
	logger *slog.Logger
}

// NewFanout delivers every event to each sink in order. A failing sink does
// not stop delivery to the others; the errors are joined.
func NewFanout(logger *slog.Logger, sinks ...Service) Service {
	return &fanout{sinks: sinks, logger: logging.NewComponentLogger(logger, "notifications")}
}

func (f *fanout) Publish(ctx context.Context, event Event, payload Payload) error {
	var errs []error
	for _, sink := range f.sinks {
		if err := sink.Publish(ctx, event, payload); err != nil {
			f.logger.Debug("sink publish failed", logging.String("event", string(event)), logging.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *fanout) Close() error {
	var errs []error
	for _, sink := range f.sinks {
		errs = append(errs, sink.Close())
	}
	return errors.Join(errs...)
}

type noopService struct{}

// NewNoop returns a Service that discards every event.
func NewNoop() Service { return noopService{} }

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
func (noopService) Close() error                                  { return nil }
