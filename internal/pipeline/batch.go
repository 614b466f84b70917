package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// BatchResult is the outcome of processing one input of a batch.
type BatchResult[R any] struct {
	Value R
	Err   error
}

// BatchProcessor applies a function to many inputs concurrently and
// returns the results in input order. A failure of one input does not
// stop the others; it is recorded in that input's result.
type BatchProcessor[T, R any] struct {
	// fn processes a single input.
	fn func(ctx context.Context, input T) (R, error)

	// concurrency is the maximum number of inputs processed at once.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// batchSettings collects the options shared by every BatchProcessor type.
type batchSettings struct {
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*batchSettings)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(s *batchSettings) {
		s.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent workers.
// Default is 4 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(s *batchSettings) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor around fn.
func NewBatchProcessor[T, R any](fn func(ctx context.Context, input T) (R, error), opts ...BatchOption) *BatchProcessor[T, R] {
	settings := &batchSettings{concurrency: 4}
	for _, opt := range opts {
		opt(settings)
	}
	if settings.logger == nil {
		settings.logger = slog.Default()
	}

	return &BatchProcessor[T, R]{
		fn:          fn,
		concurrency: settings.concurrency,
		logger:      settings.logger,
	}
}

// ProcessBatch processes inputs with at most the configured number of
// goroutines. The returned slice has one result per input at the same
// index. The error is non-nil only when ctx was cancelled.
func (bp *BatchProcessor[T, R]) ProcessBatch(ctx context.Context, inputs []T) ([]BatchResult[R], error) {
	bp.logger.Debug("starting batch processing",
		"total", len(inputs),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	// Pre-allocated so each goroutine owns its slot.
	results := make([]BatchResult[R], len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, input := range inputs {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				results[i].Err = gctx.Err()
				return gctx.Err()
			default:
			}

			value, err := bp.fn(gctx, input)
			results[i] = BatchResult[R]{Value: value, Err: err}
			// Individual failures are reported through results.
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Debug("batch processing complete",
		"total", len(inputs),
		"elapsed", time.Since(startTime),
	)

	if err == nil {
		err = ctx.Err()
	}
	return results, err
}
