package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// TestBatchProcessorNew tests the BatchProcessor constructor.
func TestBatchProcessorNew(t *testing.T) {
	t.Parallel()

	identity := func(_ context.Context, n int) (int, error) { return n, nil }

	t.Run("creates processor with defaults", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(identity)
		if bp.concurrency != 4 {
			t.Errorf("expected default concurrency 4, got %d", bp.concurrency)
		}
		if bp.logger == nil {
			t.Error("expected non-nil logger")
		}
	})

	t.Run("applies WithConcurrency option", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(identity, WithConcurrency(5))
		if bp.concurrency != 5 {
			t.Errorf("expected concurrency 5, got %d", bp.concurrency)
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(identity, WithConcurrency(0))
		if bp.concurrency != 4 {
			t.Errorf("expected concurrency 4, got %d", bp.concurrency)
		}
	})

	t.Run("nil logger falls back to default", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(identity, WithBatchLogger(nil))
		if bp.logger == nil {
			t.Error("expected non-nil logger")
		}
	})
}

// TestBatchProcessorProcessBatch tests batch processing.
func TestBatchProcessorProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("maintains result order", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func(_ context.Context, s string) (string, error) {
			// Later inputs finish first.
			time.Sleep(time.Duration(3-len(s)) * 10 * time.Millisecond)
			return s + s, nil
		}, WithConcurrency(3))

		results, err := bp.ProcessBatch(context.Background(), []string{"a", "bb", "ccc"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{"aa", "bbbb", "cccccc"}
		for i, r := range results {
			if r.Value != want[i] {
				t.Errorf("result[%d]: got %q, expected %q", i, r.Value, want[i])
			}
		}
	})

	t.Run("respects concurrency limit", func(t *testing.T) {
		t.Parallel()

		var maxConcurrent atomic.Int32
		var currentConcurrent atomic.Int32
		var mu sync.Mutex

		bp := NewBatchProcessor(func(_ context.Context, _ int) (struct{}, error) {
			current := currentConcurrent.Add(1)

			mu.Lock()
			if current > maxConcurrent.Load() {
				maxConcurrent.Store(current)
			}
			mu.Unlock()

			time.Sleep(20 * time.Millisecond)

			currentConcurrent.Add(-1)
			return struct{}{}, nil
		}, WithConcurrency(2))

		if _, err := bp.ProcessBatch(context.Background(), make([]int, 10)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if maxConcurrent.Load() > 2 {
			t.Errorf("max concurrent was %d, expected <= 2", maxConcurrent.Load())
		}
	})

	t.Run("continues after individual failure", func(t *testing.T) {
		t.Parallel()

		failure := errors.New("download failed")
		bp := NewBatchProcessor(func(_ context.Context, n int) (int, error) {
			if n == 2 {
				return 0, failure
			}
			return n * 10, nil
		})

		results, err := bp.ProcessBatch(context.Background(), []int{1, 2, 3})
		if err != nil {
			t.Fatalf("individual failures should not fail the batch: %v", err)
		}
		if !errors.Is(results[1].Err, failure) {
			t.Errorf("expected failure recorded at index 1, got %v", results[1].Err)
		}
		if results[0].Value != 10 || results[2].Value != 30 {
			t.Errorf("unexpected values: %+v", results)
		}
	})

	t.Run("returns error when context is cancelled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		bp := NewBatchProcessor(func(_ context.Context, n int) (int, error) {
			return n, nil
		})

		if _, err := bp.ProcessBatch(ctx, []int{1, 2}); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func(_ context.Context, n int) (int, error) { return n, nil })
		results, err := bp.ProcessBatch(context.Background(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 0 {
			t.Errorf("expected no results, got %d", len(results))
		}
	})
}
