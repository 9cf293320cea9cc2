package pipeline

import (
	"context"
	"log/slog"

	"github.com/examwatch/examwatch/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, with each step receiving the same event
// and enriching it for the steps that follow.
//
// Design decision: We use an interface rather than function types because:
// 1. It allows steps to carry configuration state
// 2. It provides a Name() method for logging and debugging
// 3. It's more extensible for future features (e.g., priority, dependencies)
type Step interface {
	// Do executes the pipeline step.
	// It receives the context for cancellation, and the event to process.
	// The step may mutate the event, for example to attach evidence or a
	// journal row ID.
	Do(ctx context.Context, event *model.Event) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates per-event processing.
// It maintains a list of steps and executes them in order for every
// observed event.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError determines whether to continue executing steps
	// after one fails. If false, the pipeline stops on first error.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
// This follows the functional options pattern for clean API design.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, a default logger is created.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails. Failed steps are logged, but subsequent steps
// still execute.
//
// Design decision: This option exists because a failed screenshot must
// not prevent journaling the event. The watch session enables it; the
// default is to stop on error so tests and one-off tooling see failures
// immediately.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps:           make([]Step, 0),
		continueOnError: false,
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

// Execute runs all pipeline steps in sequence for one event.
// It respects context cancellation and logs each step's execution.
//
// Design decision: We check context.Done() before each step rather than
// during, because steps should handle their own timeouts. This allows
// graceful cleanup between steps while still respecting cancellation.
//
// Returns the first error encountered if continueOnError is false,
// or nil if all steps were given their chance to run.
func (p *Pipeline) Execute(ctx context.Context, event *model.Event) error {
	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("event pipeline cancelled",
				"step", step.Name(),
				"kind", event.Kind,
				"reason", ctx.Err(),
			)
			return ctx.Err()
		default:
		}

		// Events can arrive every second; Debug keeps the watch log
		// readable at the default level.
		p.logger.Debug("executing step",
			"step", step.Name(),
			"kind", event.Kind,
		)

		if err := step.Do(ctx, event); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"kind", event.Kind,
				"error", err,
			)

			if !p.continueOnError {
				return err
			}
			continue
		}

		p.logger.Debug("step completed",
			"step", step.Name(),
			"kind", event.Kind,
		)
	}

	return nil
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
