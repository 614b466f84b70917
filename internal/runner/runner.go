package runner

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/nao1215/boorucrawl/internal/model"
)

// HistoryStore persists finished runs.
type HistoryStore interface {
	SaveRun(ctx context.Context, record *model.RunRecord) error
}

// Result is the outcome of one run.
type Result struct {
	Record *model.RunRecord
	Err    error
}

// Runner starts crawl runs on a background goroutine.
type Runner struct {
	factory Factory
	history HistoryStore
	logger  *slog.Logger
	running atomic.Bool
	wg      sync.WaitGroup
}

// Option configures a Runner.
type Option func(*Runner)

// WithHistory records every finished run in store.
func WithHistory(store HistoryStore) Option {
	return func(r *Runner) {
		r.history = store
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// New creates a runner building its pipelines with factory.
func New(factory Factory, opts ...Option) *Runner {
	r := &Runner{
		factory: factory,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Running reports whether a run is active.
func (r *Runner) Running() bool {
	return r.running.Load()
}

// Start launches a run with params and returns a channel that receives
// exactly one Result and is then closed. It returns ErrRunInProgress
// without starting anything while another run is active.
//
// The run stops early only when ctx is cancelled.
func (r *Runner) Start(ctx context.Context, params model.CrawlParameters) (<-chan Result, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}

	record := model.NewRunRecord(uuid.NewString(), params)
	done := make(chan Result, 1)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer close(done)

		err := r.run(ctx, params, record)
		record.Finish(err)
		r.save(ctx, record)

		if err != nil {
			r.logger.Error("crawl failed",
				"run", record.ID,
				"error", err,
			)
		} else {
			r.logger.Info("crawl completed",
				"run", record.ID,
				"exported", record.Exported,
				"duration", record.Duration(),
			)
		}

		// Cleared before delivery so a new run can start as soon as the
		// result is observed.
		r.running.Store(false)
		done <- Result{Record: record, Err: err}
	}()

	return done, nil
}

// Wait blocks until the active run, if any, has finished and its history
// record has been written.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// run builds and executes one pipeline, converting a panic into an error.
func (r *Runner) run(ctx context.Context, params model.CrawlParameters, record *model.RunRecord) (err error) {
	defer func() {
		if v := recover(); v != nil {
			r.logger.Error("crawl panicked",
				"run", record.ID,
				"panic", v,
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("%w: %v", ErrPanic, v)
		}
	}()

	r.logger.Info("starting crawl",
		"run", record.ID,
		"source", params.Source.String(),
		"query", params.SearchTerm,
		"resize", params.ResizeSize,
		"tagging", params.EnableTagging,
		"max", params.MaxCount,
		"output", params.OutputPath,
	)

	p, exporter, err := r.factory.Build(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	return p.Execute(ctx, exporter, record)
}

func (r *Runner) save(ctx context.Context, record *model.RunRecord) {
	if r.history == nil {
		return
	}
	// The record is written even when the run was cancelled.
	if err := r.history.SaveRun(context.WithoutCancel(ctx), record); err != nil {
		r.logger.Warn("failed to save run history",
			"run", record.ID,
			"error", err,
		)
	}
}
