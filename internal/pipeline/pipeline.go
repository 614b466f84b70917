package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/nao1215/boorucrawl/internal/model"
)

// Source produces the candidate items of a crawl one at a time.
// Next returns io.EOF once the source is exhausted.
type Source interface {
	// Next returns the next item. It is only called again after the
	// previous item has travelled through every step.
	Next(ctx context.Context) (*model.Item, error)

	// Name returns the source's name for logging purposes.
	Name() string
}

// Step defines the interface that all pipeline steps must implement.
// Steps see items one at a time in encounter order.
type Step interface {
	// Do processes one item. Returning a nil item drops it; the following
	// steps and the exporter never see it. A non-nil error aborts the run.
	Do(ctx context.Context, item *model.Item) (*model.Item, error)

	// Name returns the step's name for logging purposes.
	Name() string
}

// Finisher is implemented by steps that can tell the pipeline no further
// item will pass them. The pipeline stops pulling from the source as soon
// as any finisher reports Done.
type Finisher interface {
	Done() bool
}

// Exporter is the final stage receiving every item that passed all steps.
type Exporter interface {
	Export(ctx context.Context, item *model.Item) error

	// Close flushes anything the exporter buffered. It is called once,
	// also when the run fails.
	Close() error
}

// Pipeline pulls items from a source, runs them through the steps in order
// and hands the survivors to an exporter.
type Pipeline struct {
	// source yields the candidate items.
	source Source

	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, a default logger is created.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a new Pipeline reading from source.
// Steps should be added using AddStep after creation.
func New(source Source, opts ...Option) *Pipeline {
	p := &Pipeline{
		source: source,
		steps:  make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute drains the source through every step into the exporter.
// Counters are accumulated in record, which may be nil.
//
// Cancellation is checked before each pull from the source. The exporter
// is closed before Execute returns, and a close error is reported when
// the run itself succeeded.
func (p *Pipeline) Execute(ctx context.Context, exporter Exporter, record *model.RunRecord) (err error) {
	if record == nil {
		record = model.NewRunRecord("", model.CrawlParameters{})
	}
	if record.Dropped == nil {
		record.Dropped = make(map[string]int)
	}

	defer func() {
		if closeErr := exporter.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close exporter: %w", closeErr)
		}
	}()

	p.logger.Info("executing pipeline",
		"source", p.source.Name(),
		"steps", p.StepNames(),
	)

	for !p.finished() {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"source", p.source.Name(),
				"reason", ctx.Err(),
			)
			return ctx.Err()
		default:
		}

		item, err := p.source.Next(ctx)
		if errors.Is(err, io.EOF) {
			p.logger.Debug("source exhausted", "source", p.source.Name())
			break
		}
		if err != nil {
			p.logger.Error("source failed",
				"source", p.source.Name(),
				"error", err,
			)
			return fmt.Errorf("source %s: %w", p.source.Name(), err)
		}
		record.Fetched++

		item, err = p.process(ctx, item, record)
		if err != nil {
			return err
		}
		if item == nil {
			continue
		}

		if err := exporter.Export(ctx, item); err != nil {
			p.logger.Error("export failed",
				"item", item.ID,
				"error", err,
			)
			return fmt.Errorf("failed to export %s: %w", item.ID, err)
		}
		record.Exported++
		p.logger.Debug("item exported", "item", item.ID, "file", item.Filename)
	}

	p.logger.Info("pipeline complete",
		"fetched", record.Fetched,
		"exported", record.Exported,
	)

	return nil
}

// process runs one item through every step. A nil item means a step
// dropped it.
func (p *Pipeline) process(ctx context.Context, item *model.Item, record *model.RunRecord) (*model.Item, error) {
	for _, step := range p.steps {
		p.logger.Debug("executing step",
			"step", step.Name(),
			"item", item.ID,
		)

		next, err := step.Do(ctx, item)
		if err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"item", item.ID,
				"error", err,
			)
			return nil, fmt.Errorf("step %s: %w", step.Name(), err)
		}
		if next == nil {
			record.Dropped[step.Name()]++
			p.logger.Debug("item dropped",
				"step", step.Name(),
				"item", item.ID,
			)
			return nil, nil
		}
		item = next
	}
	return item, nil
}

// finished reports whether a step has signalled that nothing more can pass.
func (p *Pipeline) finished() bool {
	for _, step := range p.steps {
		if f, ok := step.(Finisher); ok && f.Done() {
			return true
		}
	}
	return false
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
