package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"scenetrack/internal/config"
)

const userAgent = "scenetrack/1.0"

// Event names a notification kind.
type Event string

const (
	EventJobCompleted Event = "job_completed"
	EventJobReview    Event = "job_review"
	EventJobFailed    Event = "job_failed"
	EventTest         Event = "test"
)

// Payload carries the values a message is rendered from.
type Payload map[string]any

// Service delivers notifications.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed service, or a no-op one without a topic.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	return &ntfyService{
		endpoint:        topic,
		notifyCompleted: cfg.Notifications.NotifyCompleted,
		client:          &http.Client{Timeout: cfg.NtfyTimeout()},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint        string
	notifyCompleted bool
	client          *http.Client
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := n.render(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) render(event Event, payload Payload) (message, bool) {
	video := payloadString(payload, "videoName", payloadString(payload, "videoId", "unknown video"))
	switch event {
	case EventJobCompleted:
		if !n.notifyCompleted {
			return message{}, false
		}
		body := fmt.Sprintf("🎬 %s: %d scene(s)", video, payloadInt(payload, "scenes"))
		if track := payloadString(payload, "track", ""); track != "" {
			body += "\nTrack: " + track
		}
		return message{title: "scenetrack - Tracks Published", body: body, tags: []string{"scenetrack", "job", "completed"}}, true
	case EventJobReview:
		return message{
			title:    "scenetrack - Review Needed",
			body:     fmt.Sprintf("%s needs review: %s", video, payloadString(payload, "error", "unknown")),
			tags:     []string{"scenetrack", "job", "review"},
			priority: "high",
		}, true
	case EventJobFailed:
		return message{
			title:    "scenetrack - Job Failed",
			body:     fmt.Sprintf("❌ %s failed: %s", video, payloadString(payload, "error", "unknown")),
			tags:     []string{"scenetrack", "job", "error"},
			priority: "high",
		}, true
	case EventTest:
		return message{title: "scenetrack - Test", body: "🧪 Notification system test", tags: []string{"scenetrack", "test"}, priority: "low"}, true
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
	if msg.priority != "" {
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

func payloadString(p Payload, key, fallback string) string {
	if v, ok := p[key]; ok {
		if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
			return s
		}
	}
	return fallback
}

func payloadInt(p Payload, key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
