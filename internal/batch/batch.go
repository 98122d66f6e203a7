// Package batch drives sequential, throttled batches of independent
// generation calls. Items run one at a time with a fixed inter-item delay to
// respect upstream rate limits; one item's failure never blocks its
// siblings.
package batch

import (
	"context"
	"log/slog"
	"time"

	"clipforge/internal/logging"
)

// DefaultDelay is the inter-item pause applied between generation calls.
// Empirically the smallest pacing the image services tolerate without
// throwing 429s mid-batch.
const DefaultDelay = 1500 * time.Millisecond

// SleepFunc pauses for the given duration or returns early with the
// context's error. Tests inject instant implementations.
type SleepFunc func(context.Context, time.Duration) error

// Runner configures batch execution. The zero value runs with DefaultDelay,
// a real timer, and no logging.
type Runner struct {
	Delay  time.Duration
	Sleep  SleepFunc
	Logger *slog.Logger
}

// Run processes items in order. For each item it calls work; when work
// fails, fail is invoked with the item and its error and the batch moves
// on. After every item, success or failure, the runner waits Delay before
// the next one. An empty batch is a no-op. The only error Run itself
// returns is the context's, when the batch is interrupted.
//
// Callers that need idempotent resume filter already-completed items before
// calling Run; the runner treats every item it is handed as pending.
func Run[T any](ctx context.Context, r Runner, items []T, work func(context.Context, T) error, fail func(T, error)) error {
	if len(items) == 0 {
		return nil
	}

	delay := r.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = timerSleep
	}
	logger := r.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := work(ctx, item); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			logger.Warn("batch item failed",
				logging.Int("item_index", i),
				logging.Int("item_count", len(items)),
				logging.Error(err),
			)
			if fail != nil {
				fail(item, err)
			}
		}
		if i == len(items)-1 {
			break
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
	return nil
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
