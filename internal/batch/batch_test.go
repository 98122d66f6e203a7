package batch

import (
	"context"
	"errors"
	"testing"
	"time"
)

func instantSleep(calls *[]time.Duration) SleepFunc {
	return func(ctx context.Context, d time.Duration) error {
		*calls = append(*calls, d)
		return ctx.Err()
	}
}

func TestRunEmptyBatchIsNoOp(t *testing.T) {
	err := Run(context.Background(), Runner{}, nil, func(context.Context, int) error {
		t.Fatal("work must not run for an empty batch")
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("empty batch returned error: %v", err)
	}
}

func TestRunProcessesInOrderWithDelayBetweenItems(t *testing.T) {
	var sleeps []time.Duration
	var processed []string

	runner := Runner{Delay: 25 * time.Millisecond, Sleep: instantSleep(&sleeps)}
	err := Run(context.Background(), runner, []string{"a", "b", "c"}, func(_ context.Context, item string) error {
		processed = append(processed, item)
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(processed) != 3 || processed[0] != "a" || processed[2] != "c" {
		t.Fatalf("items out of order: %v", processed)
	}
	// Delay between items, not after the last.
	if len(sleeps) != 2 {
		t.Fatalf("expected 2 inter-item sleeps, got %d", len(sleeps))
	}
	for _, d := range sleeps {
		if d != 25*time.Millisecond {
			t.Fatalf("unexpected delay %v", d)
		}
	}
}

func TestRunIsolatesItemFailures(t *testing.T) {
	var sleeps []time.Duration
	var failed []string
	boom := errors.New("boom")

	runner := Runner{Delay: time.Millisecond, Sleep: instantSleep(&sleeps)}
	var processed []string
	err := Run(context.Background(), runner, []string{"a", "bad", "c"}, func(_ context.Context, item string) error {
		processed = append(processed, item)
		if item == "bad" {
			return boom
		}
		return nil
	}, func(item string, err error) {
		if !errors.Is(err, boom) {
			t.Fatalf("fail callback got wrong error: %v", err)
		}
		failed = append(failed, item)
	})
	if err != nil {
		t.Fatalf("item failure must not fail the batch: %v", err)
	}
	if len(processed) != 3 {
		t.Fatalf("failure must not stop siblings: %v", processed)
	}
	if len(failed) != 1 || failed[0] != "bad" {
		t.Fatalf("expected one failed item, got %v", failed)
	}
	// The delay applies after a failed item too.
	if len(sleeps) != 2 {
		t.Fatalf("expected 2 sleeps, got %d", len(sleeps))
	}
}

func TestRunStopsOnContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var processed int
	err := Run(ctx, Runner{Delay: time.Millisecond, Sleep: func(ctx context.Context, _ time.Duration) error {
		return ctx.Err()
	}}, []int{1, 2, 3}, func(_ context.Context, _ int) error {
		processed++
		cancel()
		return nil
	}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
	if processed != 1 {
		t.Fatalf("expected the batch to stop after cancellation, processed %d", processed)
	}
}

func TestRunReturnsContextErrorWhenWorkAborted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	boom := errors.New("wrapped cancel")

	err := Run(ctx, Runner{Sleep: func(ctx context.Context, _ time.Duration) error { return ctx.Err() }},
		[]int{1, 2}, func(_ context.Context, _ int) error {
			cancel()
			return boom
		}, func(int, error) {
			t.Fatal("an interrupted item is not a failed item")
		})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}
