package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/examwatch/examwatch/internal/config"
	"github.com/examwatch/examwatch/internal/model"
)

// defaultEvalTimeout bounds single script evaluations in the page. A healthy
// page answers in milliseconds; a page stuck longer than this is treated as
// a failed read and retried on the next tick.
const defaultEvalTimeout = 5 * time.Second

// Page is one watched browser tab. It renders warning notices, reports
// window geometry, and hosts the sentinel script, which makes it the
// monitor package's Presenter and ViewportSource.
type Page struct {
	mu       sync.Mutex
	closed   bool
	injected bool

	// ctx is the chromedp tab context. All DevTools commands for this tab
	// run against it.
	ctx    context.Context
	cancel context.CancelFunc

	// fadeDelay is how long a warning notice stays at full opacity.
	fadeDelay time.Duration

	// navigationTimeout bounds Navigate.
	navigationTimeout time.Duration

	// evalTimeout bounds single script evaluations.
	evalTimeout time.Duration

	// logger for structured logging.
	logger *slog.Logger
}

// PageOption configures a Page.
type PageOption func(*Page)

// WithNoticeFadeDelay sets how long a warning notice stays at full opacity
// before fading.
func WithNoticeFadeDelay(delay time.Duration) PageOption {
	return func(p *Page) {
		p.fadeDelay = delay
	}
}

// WithNavigationTimeout bounds page navigation.
func WithNavigationTimeout(timeout time.Duration) PageOption {
	return func(p *Page) {
		p.navigationTimeout = timeout
	}
}

// WithEvalTimeout bounds single script evaluations in the page.
func WithEvalTimeout(timeout time.Duration) PageOption {
	return func(p *Page) {
		p.evalTimeout = timeout
	}
}

// WithPageLogger sets a custom logger for the page.
// If not set, slog.Default() is used.
func WithPageLogger(logger *slog.Logger) PageOption {
	return func(p *Page) {
		p.logger = logger
	}
}

func newPage(ctx context.Context, cancel context.CancelFunc, opts ...PageOption) *Page {
	p := &Page{
		ctx:               ctx,
		cancel:            cancel,
		fadeDelay:         config.DefaultNoticeFadeDelay,
		navigationTimeout: config.DefaultNavigationTimeout,
		evalTimeout:       defaultEvalTimeout,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// Navigate loads targetURL in the tab and waits for the load to settle.
func (p *Page) Navigate(ctx context.Context, targetURL string) error {
	if err := p.run(ctx, p.navigationTimeout, chromedp.Navigate(targetURL)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", targetURL, err)
	}
	return nil
}

// InjectSentinel installs the sentinel script and wires its events to
// onEvent, which receives the raw kind identifier from the page. The script
// is registered for every future document in the tab so reloads re-inject
// it, and evaluated in the current document immediately. Injection is
// idempotent on both sides: calling this twice does not duplicate listeners,
// and the script guards itself against a second evaluation in the page.
//
// onEvent is called from the DevTools event goroutine and must not block.
func (p *Page) InjectSentinel(ctx context.Context, onEvent func(kind string)) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPageClosed
	}
	if p.injected {
		p.mu.Unlock()
		return nil
	}
	p.injected = true
	p.mu.Unlock()

	register := chromedp.ActionFunc(func(ctx context.Context) error {
		if err := runtime.AddBinding(sentinelBinding).Do(ctx); err != nil {
			return err
		}
		_, err := page.AddScriptToEvaluateOnNewDocument(sentinelScript).Do(ctx)
		return err
	})

	if err := p.run(ctx, p.evalTimeout, register); err != nil {
		p.mu.Lock()
		p.injected = false
		p.mu.Unlock()
		return fmt.Errorf("failed to install sentinel: %w", err)
	}

	chromedp.ListenTarget(p.ctx, func(ev any) {
		e, ok := ev.(*runtime.EventBindingCalled)
		if !ok || e.Name != sentinelBinding {
			return
		}

		var payload sentinelEvent
		if err := json.Unmarshal([]byte(e.Payload), &payload); err != nil {
			p.logger.Debug("sentinel payload rejected", "error", err)
			return
		}
		onEvent(payload.Kind)
	})

	// The registration above only covers future documents; evaluate in the
	// document that is already loaded.
	if err := p.run(ctx, p.evalTimeout, chromedp.Evaluate(sentinelScript, nil)); err != nil {
		return fmt.Errorf("failed to evaluate sentinel in current document: %w", err)
	}

	p.logger.Debug("sentinel injected")
	return nil
}

// Show displays message in the floating warning notice, creating the
// element on first use and reusing it afterwards. A new warning replaces
// the text, resets full opacity, and restarts the fade timer. The element
// is never removed from the page. Show satisfies the monitor package's
// Presenter interface.
func (p *Page) Show(ctx context.Context, message string) error {
	script := noticeScript(message, p.fadeDelay)
	if err := p.run(ctx, p.evalTimeout, chromedp.Evaluate(script, nil)); err != nil {
		return fmt.Errorf("failed to show warning notice: %w", err)
	}
	return nil
}

// viewportDeltas matches the object deltasExpr evaluates to.
type viewportDeltas struct {
	W int `json:"w"`
	H int `json:"h"`
}

// Deltas reads the outer-minus-inner window dimension deltas in pixels.
// Deltas satisfies the monitor package's ViewportSource interface.
func (p *Page) Deltas(ctx context.Context) (int, int, error) {
	var d viewportDeltas
	if err := p.run(ctx, p.evalTimeout, chromedp.Evaluate(deltasExpr, &d)); err != nil {
		return 0, 0, fmt.Errorf("failed to read window geometry: %w", err)
	}
	return d.W, d.H, nil
}

// SuspiciousEventCount reads the page-local counter through the global
// accessor the sentinel installs. Returns ErrSentinelMissing when the
// accessor is absent, which happens before injection or after a navigation
// raced ahead of re-injection.
func (p *Page) SuspiciousEventCount(ctx context.Context) (int, error) {
	var count int
	if err := p.run(ctx, p.evalTimeout, chromedp.Evaluate(countExpr, &count)); err != nil {
		return 0, fmt.Errorf("failed to read page counter: %w", err)
	}
	if count < 0 {
		return 0, ErrSentinelMissing
	}
	return count, nil
}

// Snapshot captures the current document and distills it into evidence:
// the page title and a hash of the content. The raw HTML never leaves
// this function.
func (p *Page) Snapshot(ctx context.Context) (*model.Evidence, error) {
	var html string
	if err := p.run(ctx, p.evalTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("failed to capture page content: %w", err)
	}

	return model.NewEvidence(pageTitle(html), []byte(html)), nil
}

// Screenshot captures the visible viewport as PNG bytes.
func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := p.run(ctx, p.evalTimeout, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

// Title returns the current document title.
func (p *Page) Title(ctx context.Context) (string, error) {
	var title string
	if err := p.run(ctx, p.evalTimeout, chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("failed to read page title: %w", err)
	}
	return title, nil
}

// URL returns the tab's current location.
func (p *Page) URL(ctx context.Context) (string, error) {
	var location string
	if err := p.run(ctx, p.evalTimeout, chromedp.Location(&location)); err != nil {
		return "", fmt.Errorf("failed to read page location: %w", err)
	}
	return location, nil
}

// Close releases the tab. For a launched browser the tab closes; for an
// attached one the tab is left as-is and only our handle is released.
// It is safe to call Close multiple times.
func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if p.cancel != nil {
		p.cancel()
	}
	return nil
}

func (p *Page) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// run executes DevTools actions against the tab, bounded by both timeout
// and the caller's context.
func (p *Page) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if p.isClosed() {
		return ErrPageClosed
	}

	runCtx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

// pageTitle extracts the document title from raw HTML.
func pageTitle(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
