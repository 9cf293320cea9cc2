package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/examwatch/examwatch/internal/config"
)

// Browser owns one Chrome or Chromium instance reached over the DevTools
// protocol, either launched by us or attached to over a debug URL.
//
// Design decision: Launching and attaching produce the same Browser type
// because everything after allocation (tabs, injection, warnings) is
// identical. Only teardown differs: closing a launched browser kills the
// process, while closing an attached one merely drops the connection and
// leaves the exam browser running. Attaching is the normal mode in exam
// halls where the candidate's machine already runs the browser with
// --remote-debugging-port.
type Browser struct {
	mu     sync.Mutex
	closed bool

	// allocCtx is the allocator context owning the browser process or
	// the remote connection.
	allocCtx    context.Context
	allocCancel context.CancelFunc

	// rootCtx is the first browser context. Pages derive from it so they
	// all share the one browser.
	rootCtx    context.Context
	rootCancel context.CancelFunc

	// remote is true when the browser was attached rather than launched.
	remote bool

	// startupTimeout bounds the wait for the browser to accept DevTools
	// commands.
	startupTimeout time.Duration

	// headless launches the browser without a visible window. A real exam
	// session needs a visible page; headless exists for the demo and tests.
	headless bool

	// execPath overrides the browser executable location.
	execPath string

	// logger for structured logging.
	logger *slog.Logger
}

// Option configures a Browser before it starts.
type Option func(*Browser)

// WithHeadless launches the browser without a visible window.
// Ignored by Connect.
func WithHeadless(headless bool) Option {
	return func(b *Browser) {
		b.headless = headless
	}
}

// WithExecPath overrides the browser executable location.
// Ignored by Connect.
func WithExecPath(path string) Option {
	return func(b *Browser) {
		b.execPath = path
	}
}

// WithStartupTimeout sets the maximum time to wait for the browser to
// accept DevTools commands.
func WithStartupTimeout(timeout time.Duration) Option {
	return func(b *Browser) {
		b.startupTimeout = timeout
	}
}

// WithBrowserLogger sets a custom logger for the browser.
// If not set, slog.Default() is used.
func WithBrowserLogger(logger *slog.Logger) Option {
	return func(b *Browser) {
		b.logger = logger
	}
}

func newBrowser(opts ...Option) *Browser {
	b := &Browser{
		startupTimeout: config.DefaultBrowserStartupTimeout,
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.logger == nil {
		b.logger = slog.Default()
	}

	return b
}

// Launch starts a local browser process. The browser lives until Close is
// called or ctx is cancelled, whichever comes first.
func Launch(ctx context.Context, opts ...Option) (*Browser, error) {
	b := newBrowser(opts...)

	execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	if b.execPath != "" {
		execOpts = append(execOpts, chromedp.ExecPath(b.execPath))
	}

	b.allocCtx, b.allocCancel = chromedp.NewExecAllocator(ctx, execOpts...)

	if err := b.start(); err != nil {
		b.allocCancel()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b.logger.Debug("browser launched", "headless", b.headless)
	return b, nil
}

// Connect attaches to an already-running browser through its DevTools debug
// URL, for example "http://127.0.0.1:9222". Closing an attached Browser only
// drops the connection; the remote browser keeps running.
func Connect(ctx context.Context, debugURL string, opts ...Option) (*Browser, error) {
	if debugURL == "" {
		return nil, ErrNoDebugURL
	}

	b := newBrowser(opts...)
	b.remote = true

	b.allocCtx, b.allocCancel = chromedp.NewRemoteAllocator(ctx, debugURL)

	if err := b.start(); err != nil {
		b.allocCancel()
		return nil, fmt.Errorf("failed to attach to browser at %s: %w", debugURL, err)
	}

	b.logger.Debug("attached to browser", "debug_url", debugURL)
	return b, nil
}

// start establishes the root browser context and verifies the browser
// responds within the startup timeout.
func (b *Browser) start() error {
	b.rootCtx, b.rootCancel = chromedp.NewContext(b.allocCtx,
		chromedp.WithErrorf(b.chromedpErrorf),
	)

	startCtx, cancel := context.WithTimeout(b.rootCtx, b.startupTimeout)
	defer cancel()

	// The first Run allocates the browser (or attaches to the remote one)
	// and leaves the root tab on a blank page.
	return chromedp.Run(startCtx, chromedp.Navigate("about:blank"))
}

// chromedpErrorf routes chromedp's internal error messages into slog.
func (b *Browser) chromedpErrorf(format string, args ...any) {
	b.logger.Error("devtools protocol error", "detail", fmt.Sprintf(format, args...))
}

// IsRemote reports whether the browser was attached rather than launched.
func (b *Browser) IsRemote() bool {
	return b.remote
}

// Targets lists the browser's open pages. Non-page targets such as workers
// and extensions are filtered out.
func (b *Browser) Targets(ctx context.Context) ([]*target.Info, error) {
	if b.isClosed() {
		return nil, ErrBrowserClosed
	}

	runCtx, cancel := context.WithTimeout(b.rootCtx, b.startupTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	infos, err := chromedp.Targets(runCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to list browser targets: %w", err)
	}

	pages := make([]*target.Info, 0, len(infos))
	for _, info := range infos {
		if info.Type == "page" {
			pages = append(pages, info)
		}
	}
	return pages, nil
}

// NewPage opens a fresh tab.
func (b *Browser) NewPage(ctx context.Context, opts ...PageOption) (*Page, error) {
	if b.isClosed() {
		return nil, ErrBrowserClosed
	}

	tabCtx, tabCancel := chromedp.NewContext(b.rootCtx)
	p := newPage(tabCtx, tabCancel, opts...)

	// Materialize the tab so later operations find it ready.
	if err := p.run(ctx, b.startupTimeout, chromedp.Navigate("about:blank")); err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	return p, nil
}

// AttachPage adopts an existing tab by target ID, leaving whatever it is
// showing untouched. Use Targets to discover IDs; this is how a session
// attaches to an exam page the candidate already has open.
func (b *Browser) AttachPage(ctx context.Context, id target.ID, opts ...PageOption) (*Page, error) {
	if b.isClosed() {
		return nil, ErrBrowserClosed
	}

	tabCtx, tabCancel := chromedp.NewContext(b.rootCtx, chromedp.WithTargetID(id))
	p := newPage(tabCtx, tabCancel, opts...)

	// Run with no actions attaches to the target without navigating it.
	if err := p.run(ctx, b.startupTimeout); err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to attach to page %s: %w", id, err)
	}

	return p, nil
}

// Close tears the browser down. For a launched browser this kills the
// process; for an attached one it only drops the connection. It is safe
// to call Close multiple times.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	if b.rootCancel != nil {
		b.rootCancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}

	b.logger.Debug("browser closed", "remote", b.remote)
	return nil
}

func (b *Browser) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}
