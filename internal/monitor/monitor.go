package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/examwatch/examwatch/internal/config"
	"github.com/examwatch/examwatch/internal/model"
)

// Presenter shows or updates the floating warning notice on the watched page.
// Implementations must be idempotent: showing a new warning while a previous
// one is still visible replaces its text and restarts its fade.
type Presenter interface {
	// Show displays message in the notice element, creating it on first use.
	Show(ctx context.Context, message string) error
}

// Sink receives every observed event for host-side processing such as
// journaling, evidence capture, and logging.
//
// Design decision: We use an interface rather than a callback function
// because sinks carry state (database handles, pipelines) and a named
// interface is easier to fake in tests.
type Sink interface {
	// Record processes one event. Implementations may mutate the event,
	// for example to attach captured evidence or a journal row ID.
	Record(ctx context.Context, event *model.Event) error
}

// ViewportSource reads the outer-minus-inner window dimension deltas of the
// watched page. The browser page adapter implements this by evaluating a
// small expression in the page.
type ViewportSource interface {
	// Deltas returns the width and height deltas in pixels.
	Deltas(ctx context.Context) (width, height int, err error)
}

// Messages holds the warning text shown for each event kind.
type Messages struct {
	// TabSwitch is shown when the page transitions to hidden.
	TabSwitch string

	// FocusLoss is shown when the window loses focus.
	FocusLoss string

	// Devtools is shown when an attached devtools panel is suspected.
	Devtools string
}

// DefaultMessages returns the stock warning messages.
func DefaultMessages() Messages {
	return Messages{
		TabSwitch: config.DefaultTabSwitchMessage,
		FocusLoss: config.DefaultFocusLossMessage,
		Devtools:  config.DefaultDevtoolsMessage,
	}
}

// Monitor tracks suspicious activity on one watched exam page.
// It is constructed once per session and shared by reference between the
// goroutine that receives page events and the goroutine that polls window
// geometry, so all state lives behind a single mutex.
//
// Design decision: The counter and the devtools flag are deliberately
// separate pieces of state. Tab switches and focus losses increment the
// counter on every occurrence; devtools detection is episodic (one warning
// per breach, silent reset) and is never added to the counter, so graders
// read the counter as "times the candidate left the page" without devtools
// noise mixed in.
type Monitor struct {
	mu sync.Mutex

	// suspiciousEvents counts tab switches and focus losses. It never
	// decreases and is never touched by devtools detections.
	suspiciousEvents int

	// devtoolsSuspected is set while window geometry indicates an attached
	// devtools panel and cleared silently when geometry returns to normal.
	devtoolsSuspected bool

	// threshold is the pixel delta above which devtools are suspected.
	threshold int

	// pollInterval is the geometry sampling interval used by Run.
	pollInterval time.Duration

	// messages is the warning text per event kind.
	messages Messages

	// presenter renders warnings on the page.
	presenter Presenter

	// sink receives observed events. Optional; nil drops events.
	sink Sink

	// logger for structured logging.
	logger *slog.Logger
}

// Option is a function that configures a Monitor.
type Option func(*Monitor)

// WithSink sets the event sink. Without a sink, events still increment
// the counter and show warnings but are not processed further.
func WithSink(sink Sink) Option {
	return func(m *Monitor) {
		m.sink = sink
	}
}

// WithLogger sets a custom logger for the monitor.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) {
		m.logger = logger
	}
}

// WithThreshold sets the devtools detection threshold in pixels.
func WithThreshold(threshold int) Option {
	return func(m *Monitor) {
		m.threshold = threshold
	}
}

// WithPollInterval sets how often Run samples window geometry.
func WithPollInterval(interval time.Duration) Option {
	return func(m *Monitor) {
		m.pollInterval = interval
	}
}

// WithMessages sets the warning text per event kind.
func WithMessages(messages Messages) Option {
	return func(m *Monitor) {
		m.messages = messages
	}
}

// New creates a Monitor that shows warnings through presenter.
// Defaults match the stock in-page proctoring behavior: 160 px threshold,
// 1 second geometry polling, stock warning messages, no sink.
func New(presenter Presenter, opts ...Option) *Monitor {
	m := &Monitor{
		presenter:    presenter,
		threshold:    config.DefaultDevtoolsThreshold,
		pollInterval: config.DefaultPollInterval,
		messages:     DefaultMessages(),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.logger == nil {
		m.logger = slog.Default()
	}

	return m
}

// RecordTabSwitch registers a page-hidden transition: the counter goes up
// by one and the tab-switch warning is shown. Rapid repeats all count;
// there is no debouncing.
func (m *Monitor) RecordTabSwitch(ctx context.Context) {
	m.record(ctx, model.KindTabSwitch, m.messages.TabSwitch, 0, 0)
}

// RecordFocusLoss registers a window-blur transition: the counter goes up
// by one and the focus-loss warning is shown. Rapid repeats all count;
// there is no debouncing.
func (m *Monitor) RecordFocusLoss(ctx context.Context) {
	m.record(ctx, model.KindFocusLoss, m.messages.FocusLoss, 0, 0)
}

// ObserveViewport processes one geometry sample. When either delta exceeds
// the threshold and no breach is in progress, it marks the breach, shows
// the devtools warning once, and records a devtools event. When both deltas
// are back within the threshold, the breach is cleared silently so a later
// re-breach warns exactly once more. Samples inside an ongoing breach do
// nothing.
func (m *Monitor) ObserveViewport(ctx context.Context, width, height int) {
	m.mu.Lock()
	breached := width > m.threshold || height > m.threshold

	var fire bool
	switch {
	case breached && !m.devtoolsSuspected:
		m.devtoolsSuspected = true
		fire = true
	case !breached && m.devtoolsSuspected:
		m.devtoolsSuspected = false
	}
	m.mu.Unlock()

	if !fire {
		return
	}

	m.record(ctx, model.KindDevtools, m.messages.Devtools, width, height)
}

// Run polls window geometry through source until ctx is done, feeding each
// sample to ObserveViewport. Read errors are logged and skipped because the
// page may be navigating or the tab briefly detached; they never stop the
// loop. Returns ctx.Err() when the context ends.
func (m *Monitor) Run(ctx context.Context, source ViewportSource) error {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			width, height, err := source.Deltas(ctx)
			if err != nil {
				m.logger.Debug("viewport read failed", "error", err)
				continue
			}
			m.ObserveViewport(ctx, width, height)
		}
	}
}

// SuspiciousEvents returns the current suspicious-event count: tab switches
// plus focus losses since construction. Devtools detections are excluded.
// Safe to call from any goroutine.
func (m *Monitor) SuspiciousEvents() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.suspiciousEvents
}

// DevtoolsSuspected reports whether a devtools breach is currently in
// progress. Safe to call from any goroutine.
func (m *Monitor) DevtoolsSuspected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.devtoolsSuspected
}

// record updates the counter for counted kinds, then shows the warning and
// forwards the event to the sink. Presenter and sink failures are logged
// and swallowed: a broken notice or a full journal must never change what
// gets counted.
func (m *Monitor) record(ctx context.Context, kind model.EventKind, message string, width, height int) {
	m.mu.Lock()
	if kind.Counted() {
		m.suspiciousEvents++
	}
	count := m.suspiciousEvents
	m.mu.Unlock()

	m.logger.Warn("suspicious activity observed",
		"kind", kind,
		"count", count,
	)

	event := model.NewEvent(kind, message)
	event.DeltaW = width
	event.DeltaH = height

	if m.presenter != nil {
		if err := m.presenter.Show(ctx, message); err != nil {
			m.logger.Warn("warning notice failed",
				"kind", kind,
				"error", err,
			)
		}
	}

	if m.sink != nil {
		if err := m.sink.Record(ctx, &event); err != nil {
			m.logger.Warn("event sink failed",
				"kind", kind,
				"error", err,
			)
		}
	}
}
