// Package notifications sends ntfy push notifications for pipeline
// milestones and errors. When no topic is configured a noop implementation
// is returned, so callers never branch on configuration.
package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clipforge/internal/config"
)

const userAgent = "Clipforge/0.1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyAnalysisComplete(ctx context.Context, songTitle string) error
	NotifyPlanReady(ctx context.Context, characters, locations int) error
	NotifyStoryboardReady(ctx context.Context, scenes, shots int) error
	NotifyClipReady(ctx context.Context, shotID string) error
	NotifyReviewComplete(ctx context.Context, score int) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
func NewService(cfg *config.Config) Service {
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

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyAnalysisComplete(ctx context.Context, songTitle string) error {
	songTitle = strings.TrimSpace(songTitle)
	if songTitle == "" {
		songTitle = "untitled"
	}
	return n.send(ctx, payload{
		title:   "Clipforge - Song Analyzed",
		message: fmt.Sprintf("Analysis complete: %s", songTitle),
		tags:    []string{"clipforge", "analysis", "completed"},
	})
}

func (n *ntfyService) NotifyPlanReady(ctx context.Context, characters, locations int) error {
	return n.send(ctx, payload{
		title:   "Clipforge - Visual Bibles Ready",
		message: fmt.Sprintf("Generated %d characters and %d locations", characters, locations),
		tags:    []string{"clipforge", "plan", "completed"},
	})
}

func (n *ntfyService) NotifyStoryboardReady(ctx context.Context, scenes, shots int) error {
	return n.send(ctx, payload{
		title:   "Clipforge - Storyboard Ready",
		message: fmt.Sprintf("Storyboard complete: %d scenes, %d shots", scenes, shots),
		tags:    []string{"clipforge", "storyboard", "completed"},
	})
}

func (n *ntfyService) NotifyClipReady(ctx context.Context, shotID string) error {
	return n.send(ctx, payload{
		title:   "Clipforge - Clip Ready",
		message: fmt.Sprintf("Clip generated for shot %s", strings.TrimSpace(shotID)),
		tags:    []string{"clipforge", "clip", "completed"},
	})
}

func (n *ntfyService) NotifyReviewComplete(ctx context.Context, score int) error {
	return n.send(ctx, payload{
		title:    "Clipforge - Review Complete",
		message:  fmt.Sprintf("Executive review finished with score %d/100", score),
		tags:     []string{"clipforge", "review", "completed"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	return n.send(ctx, payload{
		title:    "Clipforge - Error",
		message:  builder.String(),
		tags:     []string{"clipforge", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "Clipforge - Test",
		message:  "Notification system test",
		tags:     []string{"clipforge", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
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

// NewNop returns a notifier that silently drops everything.
func NewNop() Service {
	return noopService{}
}

type noopService struct{}

func (noopService) NotifyAnalysisComplete(context.Context, string) error { return nil }
func (noopService) NotifyPlanReady(context.Context, int, int) error      { return nil }
func (noopService) NotifyStoryboardReady(context.Context, int, int) error {
	return nil
}
func (noopService) NotifyClipReady(context.Context, string) error    { return nil }
func (noopService) NotifyReviewComplete(context.Context, int) error  { return nil }
func (noopService) NotifyError(context.Context, error, string) error { return nil }
func (noopService) TestNotification(context.Context) error           { return nil }
