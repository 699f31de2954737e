package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/phrazzld/super-wire/internal/config"
)

const userAgent = "SuperWire/0.1.0"

// Event identifies a run milestone.
type Event string

const (
	EventRunStarted        Event = "run_started"
	EventEpisodePublished  Event = "episode_published"
	EventCleanupIncomplete Event = "cleanup_incomplete"
	EventRunFailed         Event = "run_failed"
	EventTest              Event = "test"
)

// Payload carries event fields. Recognised keys depend on the event:
// runId, key, url, stories, stage, error.
type Payload map[string]string

// Service publishes run events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed service, or a no-op when no topic is set.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{endpoint: topic, client: &http.Client{Timeout: timeout}}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, p Payload) (message, bool) {
	get := func(key string) string { return strings.TrimSpace(p[key]) }
	switch event {
	case EventEpisodePublished:
		body := fmt.Sprintf("🎙️ New episode: %s", get("key"))
		if stories := get("stories"); stories != "" {
			body += fmt.Sprintf(" (%s stories)", stories)
		}
		if url := get("url"); url != "" {
			body += "\n" + url
		}
		return message{
			title: "Super Wire - Episode Published",
			body:  body,
			tags:  []string{"superwire", "episode", "published"},
		}, true
	case EventCleanupIncomplete:
		return message{
			title: "Super Wire - Cleanup Incomplete",
			body:  fmt.Sprintf("Run %s published but left working files: %s", get("runId"), get("error")),
			tags:  []string{"superwire", "cleanup", "warning"},
		}, true
	case EventRunFailed:
		var b strings.Builder
		b.WriteString("❌ Run failed")
		if stage := get("stage"); stage != "" {
			b.WriteString(" at ")
			b.WriteString(stage)
		}
		b.WriteString(": ")
		if errText := get("error"); errText != "" {
			b.WriteString(errText)
		} else {
			b.WriteString("unknown")
		}
		return message{
			title:    "Super Wire - Run Failed",
			body:     b.String(),
			tags:     []string{"superwire", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Super Wire - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"superwire", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
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

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
