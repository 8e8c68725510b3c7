package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"songline/internal/config"
)

const userAgent = "songline/0.1.0"

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

// ntfyService pushes operator-facing events to an ntfy topic URL. Audience
// events (queue, active, archive) are ignored.
type ntfyService struct {
	endpoint string
	client   *http.Client
	declines bool
	errors   bool
}

func newNtfyService(cfg *config.Config) *ntfyService {
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: strings.TrimSpace(cfg.Notifications.NtfyTopic),
		client:   &http.Client{Timeout: timeout},
		declines: cfg.Notifications.Declines,
		errors:   cfg.Notifications.Errors,
	}
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := n.format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventSubmissionDeclined:
		if !n.declines {
			return message{}, false
		}
		requester := payload.string("requester")
		if requester == "" {
			requester = "someone"
		}
		return message{
			title: "Songline - Request Declined",
			body:  fmt.Sprintf("🚫 %s: %s (%s)", requester, payload.string("message"), payload.string("reason")),
			tags:  []string{"songline", "request", "declined"},
		}, true
	case EventPersistenceFailed:
		if !n.errors {
			return message{}, false
		}
		var b strings.Builder
		b.WriteString("❌ Store write failed")
		if op := payload.string("operation"); op != "" {
			b.WriteString(" during ")
			b.WriteString(op)
		}
		b.WriteString(": ")
		if detail := payload.string("error"); detail != "" {
			b.WriteString(detail)
		} else {
			b.WriteString("unknown")
		}
		b.WriteString("\nQueue state is live in memory but may not survive a restart.")
		return message{
			title:    "Songline - Persistence Error",
			body:     b.String(),
			tags:     []string{"songline", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Songline - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"songline", "test"},
			priority: "low",
		}, true
	}
	return message{}, false
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil || n.endpoint == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (n *ntfyService) Close() error { return nil }
