// Package clippoll tracks a single long-running clip-generation job to
// completion by polling its status on a fixed interval with a bounded
// attempt budget. A push notification arriving out of band makes the poll
// redundant; both paths write the same terminal values, so the race is
// harmless and resolved at the workflow layer.
package clippoll

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"clipforge/internal/logging"
	"clipforge/internal/services"
)

const (
	// DefaultInterval between status queries.
	DefaultInterval = time.Second
	// DefaultMaxAttempts bounds the poll loop to roughly five minutes.
	DefaultMaxAttempts = 300
)

// SleepFunc pauses for the given duration or returns early with the
// context's error. Tests inject instant implementations.
type SleepFunc func(context.Context, time.Duration) error

// Poller queries a clip job's status until it terminates. The zero value is
// not usable; Client must be set.
type Poller struct {
	Client      services.ClipService
	Interval    time.Duration
	MaxAttempts int
	Sleep       SleepFunc
	Logger      *slog.Logger
}

// Wait polls until the job reports success, reports a terminal error, or
// the attempt budget is exhausted. Each status carrying a numeric progress
// value is forwarded through onProgress. On success it returns the result
// URL; on budget exhaustion it returns a timeout fault; a terminal error
// from the service is raised immediately with no further waiting.
func (p *Poller) Wait(ctx context.Context, jobID string, onProgress func(int)) (string, error) {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = timerSleep
	}
	logger := p.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		status, err := p.Client.Status(ctx, jobID)
		if err != nil {
			// A failed status query is not a failed job; keep polling
			// until the budget runs out.
			logger.Debug("clip status query failed",
				logging.String(logging.FieldJobID, jobID),
				logging.Int("attempt", attempt),
				logging.Error(err),
			)
		} else {
			if status.Err != "" {
				return "", services.Wrap(services.ErrExternalTool, "clip", "generate", strings.TrimSpace(status.Err), nil)
			}
			if status.Progress != nil && onProgress != nil {
				onProgress(clampProgress(*status.Progress))
			}
			if status.Done {
				if status.ResultURL == "" {
					return "", services.Wrap(services.ErrExternalTool, "clip", "generate", "job completed without a result url", nil)
				}
				return status.ResultURL, nil
			}
		}

		if attempt == maxAttempts {
			break
		}
		if err := sleep(ctx, interval); err != nil {
			return "", err
		}
	}

	return "", services.Wrap(services.ErrTimeout, "clip", "poll",
		fmt.Sprintf("job %s did not complete within %d attempts", jobID, maxAttempts), nil)
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func timerSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
