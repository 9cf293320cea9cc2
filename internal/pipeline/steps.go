package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/examwatch/examwatch/internal/model"
)

// Snapshotter captures page evidence at event time.
// The browser package's Page satisfies this interface.
type Snapshotter interface {
	// Snapshot distills the current document into evidence.
	Snapshot(ctx context.Context) (*model.Evidence, error)

	// Screenshot captures the visible viewport as PNG bytes.
	Screenshot(ctx context.Context) ([]byte, error)
}

// Journal persists events. The database package's SessionDB satisfies
// this interface.
type Journal interface {
	// InsertEvent appends one event to the journal and returns its row ID.
	InsertEvent(ctx context.Context, event *model.Event) (int64, error)
}

// EvidenceStep captures page evidence and attaches it to the event.
// It always records the title/hash evidence; PNG screenshots are written
// to the evidence directory only when enabled.
//
// Design decision: Evidence capture is a separate step because:
// 1. It talks to the browser, which other steps must not depend on
// 2. It can be omitted entirely for minimal watches
// 3. It must run before the journal step so the row carries the evidence
type EvidenceStep struct {
	// source captures the page.
	source Snapshotter

	// dir is the directory screenshot files are written to.
	dir string

	// screenshots enables PNG capture per event.
	screenshots bool

	// logger for structured logging.
	logger *slog.Logger
}

// EvidenceStepOption configures an EvidenceStep.
type EvidenceStepOption func(*EvidenceStep)

// WithEvidenceDir sets the directory screenshot files are written to.
func WithEvidenceDir(dir string) EvidenceStepOption {
	return func(s *EvidenceStep) {
		s.dir = dir
	}
}

// WithScreenshots enables PNG screenshot capture per event.
// Requires an evidence directory to be set.
func WithScreenshots(enabled bool) EvidenceStepOption {
	return func(s *EvidenceStep) {
		s.screenshots = enabled
	}
}

// WithEvidenceLogger sets a custom logger for the evidence step.
func WithEvidenceLogger(logger *slog.Logger) EvidenceStepOption {
	return func(s *EvidenceStep) {
		s.logger = logger
	}
}

// NewEvidenceStep creates a new evidence capture step.
func NewEvidenceStep(source Snapshotter, opts ...EvidenceStepOption) *EvidenceStep {
	s := &EvidenceStep{
		source: source,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *EvidenceStep) Name() string {
	return "evidence"
}

// Do executes the evidence capture step.
// A failed screenshot downgrades to hash-only evidence rather than
// failing the event.
func (s *EvidenceStep) Do(ctx context.Context, event *model.Event) error {
	evidence, err := s.source.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to capture evidence: %w", err)
	}
	event.Evidence = evidence

	if !s.screenshots || s.dir == "" {
		return nil
	}

	png, err := s.source.Screenshot(ctx)
	if err != nil {
		s.logger.Warn("screenshot failed, keeping hash evidence",
			"kind", event.Kind,
			"error", err,
		)
		return nil
	}

	if err := os.MkdirAll(s.dir, 0750); err != nil {
		s.logger.Warn("evidence directory unavailable",
			"dir", s.dir,
			"error", err,
		)
		return nil
	}

	name := fmt.Sprintf("%s-%s-%d.png", event.SessionID, event.Kind, event.OccurredAt.UnixMilli())
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, png, 0600); err != nil {
		s.logger.Warn("failed to write screenshot",
			"path", path,
			"error", err,
		)
		return nil
	}

	event.Evidence.ScreenshotPath = path
	return nil
}

// JournalStep persists the event to the session journal.
type JournalStep struct {
	// journal is the event store.
	journal Journal

	// logger for structured logging.
	logger *slog.Logger
}

// JournalStepOption configures a JournalStep.
type JournalStepOption func(*JournalStep)

// WithJournalLogger sets a custom logger for the journal step.
func WithJournalLogger(logger *slog.Logger) JournalStepOption {
	return func(s *JournalStep) {
		s.logger = logger
	}
}

// NewJournalStep creates a new journaling step.
func NewJournalStep(journal Journal, opts ...JournalStepOption) *JournalStep {
	s := &JournalStep{
		journal: journal,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *JournalStep) Name() string {
	return "journal"
}

// Do executes the journaling step and records the assigned row ID on
// the event.
func (s *JournalStep) Do(ctx context.Context, event *model.Event) error {
	id, err := s.journal.InsertEvent(ctx, event)
	if err != nil {
		return fmt.Errorf("failed to journal event: %w", err)
	}

	event.ID = id
	s.logger.Debug("event journaled", "id", id, "kind", event.Kind)
	return nil
}

// LogStep emits one structured log line per observed event, giving the
// proctor a readable audit trail even when journaling is disabled.
type LogStep struct {
	// logger receives the audit lines.
	logger *slog.Logger
}

// NewLogStep creates a new audit log step. A nil logger falls back to
// slog.Default().
func NewLogStep(logger *slog.Logger) *LogStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogStep{logger: logger}
}

// Name returns the step name.
func (s *LogStep) Name() string {
	return "event_log"
}

// Do executes the audit log step.
func (s *LogStep) Do(_ context.Context, event *model.Event) error {
	attrs := []any{
		"kind", event.Kind,
		"severity", event.Severity().String(),
		"counted", event.Kind.Counted(),
		"session", event.SessionID,
	}
	if event.Kind == model.KindDevtools {
		attrs = append(attrs, "delta_w", event.DeltaW, "delta_h", event.DeltaH)
	}
	if event.Evidence != nil && event.Evidence.HTMLHash != "" {
		attrs = append(attrs, "evidence_hash", event.Evidence.HTMLHash)
	}

	s.logger.Info("event observed", attrs...)
	return nil
}

// DefaultPipelineConfig holds configuration for the default event pipeline.
type DefaultPipelineConfig struct {
	// EvidenceDir is the directory screenshot files are written to.
	EvidenceDir string

	// Screenshots enables PNG screenshot capture per event.
	Screenshots bool
}

// DefaultPipelineOption configures a DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineEvidenceDir sets the screenshot directory for the pipeline.
func WithPipelineEvidenceDir(dir string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.EvidenceDir = dir
	}
}

// WithPipelineScreenshots enables screenshot capture in the pipeline.
func WithPipelineScreenshots(enabled bool) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Screenshots = enabled
	}
}

// DefaultPipeline creates the standard per-event pipeline: evidence
// capture, journaling, then the audit log line.
//
// Design decision: We provide a default pipeline because:
// 1. The watch and demo commands want the same step ordering
// 2. Evidence must precede journaling so the stored row carries it
// 3. It keeps nil-handling (no journal, no evidence) in one place
//
// A nil source omits the evidence step and a nil journal omits the
// journal step, so a watch without persistence still gets audit lines.
func DefaultPipeline(source Snapshotter, journal Journal, pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	p := New(pipelineOpts...)

	cfg := &DefaultPipelineConfig{}
	for _, opt := range configOpts {
		opt(cfg)
	}

	if source != nil {
		p.AddStep(NewEvidenceStep(source,
			WithEvidenceDir(cfg.EvidenceDir),
			WithScreenshots(cfg.Screenshots),
		))
	}
	if journal != nil {
		p.AddStep(NewJournalStep(journal))
	}
	p.AddStep(NewLogStep(p.logger))

	return p
}
