package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"stwatch/internal/activity"
	"stwatch/internal/config"
)

const userAgent = "stwatch/0.1.0"

// Event identifies a notification kind.
type Event string

const (
	EventActivity       Event = "activity"
	EventSyncError      Event = "sync_error"
	EventWatcherStopped Event = "watcher_stopped"
	EventTest           Event = "test"
)

// Payload carries event-specific values used to render the message.
type Payload map[string]any

// Service publishes notifications.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
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

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
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
	msg, ok := render(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func render(event Event, payload Payload) (message, bool) {
	titleCase := cases.Title(language.English)
	switch event {
	case EventActivity:
		action := payloadString(payload, "action")
		return message{
			title: fmt.Sprintf("stwatch - %s %s", payloadString(payload, "folderLabel"), titleCase.String(action)),
			body:  fmt.Sprintf("%s %s: %s", titleCase.String(payloadString(payload, "type")), action, payloadString(payload, "path")),
			tags:  []string{"stwatch", "sync", action},
		}, true
	case EventSyncError:
		return message{
			title:    fmt.Sprintf("stwatch - Sync Error (%s)", payloadString(payload, "folderLabel")),
			body:     fmt.Sprintf("❌ %s failed for %s: %s", payloadString(payload, "action"), payloadString(payload, "path"), payloadString(payload, "error")),
			tags:     []string{"stwatch", "error", "alert"},
			priority: "high",
		}, true
	case EventWatcherStopped:
		body := fmt.Sprintf("Syncthing at %s is unreachable; the watcher stopped.", payloadString(payload, "url"))
		if reason := payloadString(payload, "reason"); reason != "" {
			body += "\nReason: " + reason
		}
		return message{
			title:    "stwatch - Watcher Stopped",
			body:     body,
			tags:     []string{"stwatch", "watcher", "stopped"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "stwatch - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"stwatch", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func payloadString(payload Payload, key string) string {
	if payload == nil {
		return ""
	}
	switch v := payload[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// headers maps a message onto ntfy's publish headers.
func (m message) headers() http.Header {
	h := http.Header{
		"User-Agent":   {userAgent},
		"Content-Type": {"text/plain; charset=utf-8"},
	}
	if m.title != "" {
		h.Set("Title", m.title)
	}
	if len(m.tags) > 0 {
		h.Set("Tags", strings.Join(m.tags, ","))
	}
	if m.priority != "" {
		h.Set("Priority", m.priority)
	}
	return h
}

func (n *ntfyService) send(ctx context.Context, m message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(m.body))
	if err != nil {
		return fmt.Errorf("ntfy request: %w", err)
	}
	req.Header = m.headers()

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("ntfy publish: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode/100 != 2 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy publish: %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }

// ActivityDispatcher publishes one notification per activity. With errorsOnly
// set, only activities that carry a sync error are published.
type ActivityDispatcher struct {
	service    Service
	errorsOnly bool
}

// NewActivityDispatcher adapts a Service to the activity dispatch interface.
func NewActivityDispatcher(service Service, errorsOnly bool) *ActivityDispatcher {
	if service == nil {
		service = noopService{}
	}
	return &ActivityDispatcher{service: service, errorsOnly: errorsOnly}
}

// Dispatch publishes payload.
func (d *ActivityDispatcher) Dispatch(ctx context.Context, p activity.Payload) error {
	values := Payload{
		"folderLabel": p.FolderLabel,
		"folderID":    p.FolderID,
		"action":      p.Action,
		"type":        p.Type,
		"path":        p.Path,
	}
	if p.Failed() {
		values["error"] = p.ErrorText()
		return d.service.Publish(ctx, EventSyncError, values)
	}
	if d.errorsOnly {
		return nil
	}
	return d.service.Publish(ctx, EventActivity, values)
}
