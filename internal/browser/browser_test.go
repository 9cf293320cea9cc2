package browser

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/chromedp/cdproto/target"

	"github.com/examwatch/examwatch/internal/config"
)

func TestConnectRequiresDebugURL(t *testing.T) {
	t.Parallel()

	_, err := Connect(context.Background(), "")
	if !errors.Is(err, ErrNoDebugURL) {
		t.Errorf("Connect with empty URL returned %v, want ErrNoDebugURL", err)
	}
}

func TestBrowserOptions(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		b := newBrowser()

		if b.startupTimeout != config.DefaultBrowserStartupTimeout {
			t.Errorf("startupTimeout = %v, want %v", b.startupTimeout, config.DefaultBrowserStartupTimeout)
		}
		if b.headless {
			t.Error("browser defaults to headless; exam sessions need a visible window")
		}
		if b.execPath != "" {
			t.Errorf("execPath = %q, want empty", b.execPath)
		}
		if b.logger == nil {
			t.Error("logger not defaulted")
		}
		if b.IsRemote() {
			t.Error("fresh browser reports remote")
		}
	})

	t.Run("custom", func(t *testing.T) {
		t.Parallel()

		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		b := newBrowser(
			WithHeadless(true),
			WithExecPath("/usr/bin/chromium"),
			WithStartupTimeout(10*time.Second),
			WithBrowserLogger(logger),
		)

		if !b.headless {
			t.Error("WithHeadless not applied")
		}
		if b.execPath != "/usr/bin/chromium" {
			t.Errorf("execPath = %q, want /usr/bin/chromium", b.execPath)
		}
		if b.startupTimeout != 10*time.Second {
			t.Errorf("startupTimeout = %v, want 10s", b.startupTimeout)
		}
		if b.logger != logger {
			t.Error("WithBrowserLogger not applied")
		}
	})
}

func TestBrowserClosed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	tests := []struct {
		name string
		call func(b *Browser) error
	}{
		{
			name: "Targets",
			call: func(b *Browser) error {
				_, err := b.Targets(ctx)
				return err
			},
		},
		{
			name: "NewPage",
			call: func(b *Browser) error {
				_, err := b.NewPage(ctx)
				return err
			},
		},
		{
			name: "AttachPage",
			call: func(b *Browser) error {
				_, err := b.AttachPage(ctx, target.ID("deadbeef"))
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b := newBrowser(WithBrowserLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
			b.closed = true

			if err := tt.call(b); !errors.Is(err, ErrBrowserClosed) {
				t.Errorf("got %v, want ErrBrowserClosed", err)
			}
		})
	}
}

func TestBrowserCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	var rootCancels, allocCancels int
	b := newBrowser(WithBrowserLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	b.rootCancel = func() { rootCancels++ }
	b.allocCancel = func() { allocCancels++ }

	if err := b.Close(); err != nil {
		t.Fatalf("first close failed: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}

	if rootCancels != 1 {
		t.Errorf("root context cancelled %d times, want 1", rootCancels)
	}
	if allocCancels != 1 {
		t.Errorf("allocator cancelled %d times, want 1", allocCancels)
	}
	if !b.isClosed() {
		t.Error("browser not marked closed")
	}
}

func TestPageOptions(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		p := newPage(context.Background(), nil)

		if p.fadeDelay != config.DefaultNoticeFadeDelay {
			t.Errorf("fadeDelay = %v, want %v", p.fadeDelay, config.DefaultNoticeFadeDelay)
		}
		if p.navigationTimeout != config.DefaultNavigationTimeout {
			t.Errorf("navigationTimeout = %v, want %v", p.navigationTimeout, config.DefaultNavigationTimeout)
		}
		if p.evalTimeout != defaultEvalTimeout {
			t.Errorf("evalTimeout = %v, want %v", p.evalTimeout, defaultEvalTimeout)
		}
		if p.logger == nil {
			t.Error("logger not defaulted")
		}
	})

	t.Run("custom", func(t *testing.T) {
		t.Parallel()

		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		p := newPage(context.Background(), nil,
			WithNoticeFadeDelay(9*time.Second),
			WithNavigationTimeout(time.Minute),
			WithEvalTimeout(time.Second),
			WithPageLogger(logger),
		)

		if p.fadeDelay != 9*time.Second {
			t.Errorf("fadeDelay = %v, want 9s", p.fadeDelay)
		}
		if p.navigationTimeout != time.Minute {
			t.Errorf("navigationTimeout = %v, want 1m", p.navigationTimeout)
		}
		if p.evalTimeout != time.Second {
			t.Errorf("evalTimeout = %v, want 1s", p.evalTimeout)
		}
		if p.logger != logger {
			t.Error("WithPageLogger not applied")
		}
	})
}

func TestPageClosed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	tests := []struct {
		name string
		call func(p *Page) error
	}{
		{
			name: "Navigate",
			call: func(p *Page) error { return p.Navigate(ctx, "https://exam.example.edu/viva") },
		},
		{
			name: "InjectSentinel",
			call: func(p *Page) error { return p.InjectSentinel(ctx, func(string) {}) },
		},
		{
			name: "Show",
			call: func(p *Page) error { return p.Show(ctx, "Tab switch detected!") },
		},
		{
			name: "Deltas",
			call: func(p *Page) error {
				_, _, err := p.Deltas(ctx)
				return err
			},
		},
		{
			name: "SuspiciousEventCount",
			call: func(p *Page) error {
				_, err := p.SuspiciousEventCount(ctx)
				return err
			},
		},
		{
			name: "Snapshot",
			call: func(p *Page) error {
				_, err := p.Snapshot(ctx)
				return err
			},
		},
		{
			name: "Screenshot",
			call: func(p *Page) error {
				_, err := p.Screenshot(ctx)
				return err
			},
		},
		{
			name: "Title",
			call: func(p *Page) error {
				_, err := p.Title(ctx)
				return err
			},
		},
		{
			name: "URL",
			call: func(p *Page) error {
				_, err := p.URL(ctx)
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := newPage(context.Background(), func() {},
				WithPageLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
			p.closed = true

			if err := tt.call(p); !errors.Is(err, ErrPageClosed) {
				t.Errorf("got %v, want ErrPageClosed", err)
			}
		})
	}
}

func TestPageCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	var cancels int
	p := newPage(context.Background(), func() { cancels++ })

	if err := p.Close(); err != nil {
		t.Fatalf("first close failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}

	if cancels != 1 {
		t.Errorf("cancel called %d times, want 1", cancels)
	}
	if !p.isClosed() {
		t.Error("page not marked closed")
	}
}

func TestInjectSentinelIsIdempotent(t *testing.T) {
	t.Parallel()

	// A page already marked injected must return without touching the
	// browser, so no live tab is needed.
	p := newPage(context.Background(), nil,
		WithPageLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	p.injected = true

	if err := p.InjectSentinel(context.Background(), func(string) {}); err != nil {
		t.Errorf("second injection returned %v, want nil", err)
	}
}
