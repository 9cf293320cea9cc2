package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/examwatch/examwatch/internal/browser"
	"github.com/examwatch/examwatch/internal/config"
	"github.com/examwatch/examwatch/internal/database"
	"github.com/examwatch/examwatch/internal/log"
	"github.com/examwatch/examwatch/internal/model"
	"github.com/examwatch/examwatch/internal/monitor"
	"github.com/examwatch/examwatch/internal/pipeline"
	"github.com/examwatch/examwatch/internal/report"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// counterSyncInterval is how often the page-side event counter is read.
// The read doubles as a liveness probe for the exam tab.
const counterSyncInterval = 2 * time.Second

// maxCounterFailures is how many consecutive counter read failures are
// tolerated before the session is declared interrupted. A single failure
// can be a navigation racing the probe; repeated failures mean the tab
// or the browser is gone.
const maxCounterFailures = 3

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [exam-page-url]",
		Short: "Watch a browser exam page for suspicious activity",
		Long: `Watch attaches to an exam page and monitors it until interrupted.

It injects a sentinel script into the page that observes tab switches (the
page becoming hidden) and focus losses (the window losing focus), and polls
window geometry for dimension deltas that suggest an open devtools panel.
Every detection shows a warning notice on the page itself and is recorded
in the session journal.

Examples:
  # Launch a browser and watch an exam page
  examwatch watch https://exam.example.com/final

  # Attach to a tab in an already-running browser
  examwatch watch --attach http://127.0.0.1:9222 https://exam.example.com/final

  # Stop automatically when the exam time is up
  examwatch watch --duration 90m https://exam.example.com/final

  # Output a JSON report when the session ends
  examwatch watch --json --output report.json https://exam.example.com/final

  # Use a custom configuration file
  examwatch watch -c myconfig.yaml https://exam.example.com/final

Configuration file (.examwatch) example:
  defaults:
    devtoolsThreshold: 160
  pages:
    exam.example.com:
      tabSwitchMessage: "Leaving the exam tab is recorded."
      devtoolsThreshold: 200`,
		Args: cobra.MaximumNArgs(1),
		RunE: runWatchCmd,
	}

	// Browser connection flags
	cmd.Flags().StringP("attach", "a", "",
		"Attach to a running browser's DevTools endpoint (e.g., http://127.0.0.1:9222)")
	cmd.Flags().Bool("headless", false,
		"Launch the browser without a visible window (demo and testing only)")
	cmd.Flags().String("chrome", "",
		"Path to the Chrome or Chromium executable (default: search standard locations)")

	// Detection flags
	cmd.Flags().Duration("poll-interval", config.DefaultPollInterval,
		"How often window geometry is sampled for the devtools heuristic")
	cmd.Flags().Int("threshold", config.DefaultDevtoolsThreshold,
		"Window dimension delta in pixels above which devtools are suspected")
	cmd.Flags().Duration("fade-delay", config.DefaultNoticeFadeDelay,
		"How long a warning notice stays at full opacity before fading")

	// Session flags
	cmd.Flags().DurationP("duration", "d", 0,
		"End the session after this duration (0 watches until interrupted)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .examwatch in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// Evidence flags
	cmd.Flags().Bool("evidence", true,
		"Capture a page snapshot (title and content hash) for each event")
	cmd.Flags().String("evidence-dir", "",
		"Directory for per-event PNG screenshots (screenshots are off when empty)")

	return cmd
}

// runWatchCmd executes the watch command.
func runWatchCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	verbose := getVerboseFlag(cmd)
	logger := setupLogger(verbose)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, ending session...")
		cancel()
	}()

	return runWatch(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag value from the command.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		// Flag might be on the root command
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger creates a structured logger based on verbosity setting.
// Identifying values are masked so logs can be shared without exposing
// candidate details.
func setupLogger(verbose bool) *slog.Logger {
	return log.NewPrivacyLogger(os.Stderr, verbose)
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.RemoteDebugURL, err = cmd.Flags().GetString("attach")
	if err != nil {
		return nil, err
	}

	cfg.Headless, err = cmd.Flags().GetBool("headless")
	if err != nil {
		return nil, err
	}

	cfg.ChromePath, err = cmd.Flags().GetString("chrome")
	if err != nil {
		return nil, err
	}

	cfg.PollInterval, err = cmd.Flags().GetDuration("poll-interval")
	if err != nil {
		return nil, err
	}

	cfg.DevtoolsThreshold, err = cmd.Flags().GetInt("threshold")
	if err != nil {
		return nil, err
	}

	cfg.NoticeFadeDelay, err = cmd.Flags().GetDuration("fade-delay")
	if err != nil {
		return nil, err
	}

	cfg.Duration, err = cmd.Flags().GetDuration("duration")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load per-page configurations from the config file.
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.PageConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		cfg.PageConfigs = &config.File{
			Pages: make(map[string]config.PageConfig),
		}
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.Evidence, err = cmd.Flags().GetBool("evidence")
	if err != nil {
		return nil, err
	}

	cfg.EvidenceDir, err = cmd.Flags().GetString("evidence-dir")
	if err != nil {
		return nil, err
	}

	// Sessions always land in the XDG data directory journal
	cfg.SaveToDB = true
	cfg.DBDir = config.XDGDataDir()

	// Positional argument is the exam page URL
	if len(args) > 0 {
		cfg.TargetURL = args[0]
	}

	return cfg, nil
}

// runWatch executes one watch session against the configured exam page.
func runWatch(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting watch session",
		"target", cfg.TargetURL,
		"attach", cfg.RemoteDebugURL != "",
		"saveToDB", cfg.SaveToDB,
	)

	// Open the session journal
	var db *database.SessionDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open session journal: %w", err)
		}
		defer db.Close()
		logger.Info("session journal opened", "dir", cfg.DBDir)
	}

	b, page, attached, err := openExamPage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()
	defer page.Close()

	session := model.NewSession(cfg.TargetURL)
	messages, threshold := resolvePageConfig(cfg)

	p := createPipelineForSession(page, db, logger, cfg)
	sink := &pipelineSink{pipeline: p, session: session}

	mon := monitor.New(page,
		monitor.WithSink(sink),
		monitor.WithLogger(logger),
		monitor.WithThreshold(threshold),
		monitor.WithPollInterval(cfg.PollInterval),
		monitor.WithMessages(messages),
	)

	// Sentinel events arrive on the DevTools event goroutine, which must
	// not block. They are queued here and consumed by the pump inside
	// watchSession so the journal sees them in arrival order.
	events := make(chan model.EventKind, 16)
	err = page.InjectSentinel(ctx, func(kind string) {
		k, parseErr := model.ParseEventKind(kind)
		if parseErr != nil {
			logger.Debug("unknown sentinel event", "kind", kind)
			return
		}
		select {
		case events <- k:
		default:
			logger.Warn("event queue full, dropping event", "kind", k)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to arm exam page: %w", err)
	}

	// A launched tab is still blank; bring up the exam page. The sentinel
	// registration above rides along into the new document. Attached tabs
	// already show the exam page and are never navigated.
	if !attached {
		if err := page.Navigate(ctx, cfg.TargetURL); err != nil {
			return err
		}
	}

	if title, titleErr := page.Title(ctx); titleErr == nil {
		session.PageTitle = title
	}

	// Save a live summary row up front so a crash still leaves a trace
	if err := saveSession(ctx, db, session, logger); err != nil {
		logger.Error("failed to save session", "error", err)
	}

	fmt.Printf("Watching %s\n", cfg.TargetURL)
	if cfg.Duration > 0 {
		fmt.Printf("Session ends automatically after %s. Press Ctrl+C to stop earlier.\n\n", cfg.Duration)
	} else {
		fmt.Printf("Press Ctrl+C to end the session.\n\n")
	}

	// Bound the session by the exam duration when one is set
	watchCtx := ctx
	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		watchCtx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}

	watchErr := watchSession(watchCtx, mon, page, events, logger)

	// Classify the ending. A cancelled context is the proctor stopping the
	// session or the planned duration running out, not a failure.
	switch {
	case watchErr == nil,
		errors.Is(watchErr, context.Canceled),
		errors.Is(watchErr, context.DeadlineExceeded):
		session.Finish(nil)
	default:
		session.Interrupted = true
		session.Finish(watchErr)
		logger.Error("session interrupted", "error", watchErr)
	}

	// The watch context is usually done by now; the final save gets its
	// own deadline so the summary still lands in the journal.
	saveCtx, cancelSave := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelSave()
	if err := saveSession(saveCtx, db, session, logger); err != nil {
		logger.Error("failed to save session", "error", err)
	}

	fmt.Printf("Session ended after %s\n\n", session.Duration().Round(time.Second))

	return outputReport(cfg, session)
}

// openExamPage acquires the exam page. It attaches to a tab in a running
// browser when a DevTools endpoint is configured, or launches a browser
// otherwise. The returned attached flag reports whether the tab already
// shows the exam page; when false the caller must navigate it.
func openExamPage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*browser.Browser, *browser.Page, bool, error) {
	browserOpts := []browser.Option{
		browser.WithHeadless(cfg.Headless),
		browser.WithStartupTimeout(cfg.BrowserStartupTimeout),
		browser.WithBrowserLogger(logger),
	}
	if cfg.ChromePath != "" {
		browserOpts = append(browserOpts, browser.WithExecPath(cfg.ChromePath))
	}

	pageOpts := []browser.PageOption{
		browser.WithNoticeFadeDelay(cfg.NoticeFadeDelay),
		browser.WithNavigationTimeout(cfg.NavigationTimeout),
		browser.WithPageLogger(logger),
	}

	if cfg.RemoteDebugURL != "" {
		b, err := browser.Connect(ctx, cfg.RemoteDebugURL, browserOpts...)
		if err != nil {
			return nil, nil, false, fmt.Errorf("failed to connect to browser at %s: %w", cfg.RemoteDebugURL, err)
		}

		page, attached, err := findExamTab(ctx, b, cfg.TargetURL, pageOpts)
		if err != nil {
			_ = b.Close() //nolint:errcheck // Best effort cleanup
			return nil, nil, false, err
		}

		logger.Info("attached to running browser",
			"debugURL", cfg.RemoteDebugURL,
			"existingTab", attached,
		)
		return b, page, attached, nil
	}

	fmt.Printf("Launching browser for %s...\n\n", cfg.TargetURL)

	b, err := browser.Launch(ctx, browserOpts...)
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to launch browser: %w", err)
	}

	page, err := b.NewPage(ctx, pageOpts...)
	if err != nil {
		_ = b.Close() //nolint:errcheck // Best effort cleanup
		return nil, nil, false, fmt.Errorf("failed to open exam page tab: %w", err)
	}

	logger.Info("browser launched", "headless", cfg.Headless)
	return b, page, false, nil
}

// findExamTab looks through the browser's open tabs for one already showing
// the exam page and attaches to it. When no tab matches, a fresh tab is
// opened instead and the caller is expected to navigate it.
func findExamTab(ctx context.Context, b *browser.Browser, targetURL string, opts []browser.PageOption) (*browser.Page, bool, error) {
	targets, err := b.Targets(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list browser tabs: %w", err)
	}

	for _, info := range targets {
		if !strings.HasPrefix(info.URL, targetURL) {
			continue
		}
		page, err := b.AttachPage(ctx, info.TargetID, opts...)
		if err != nil {
			return nil, false, fmt.Errorf("failed to attach to exam tab: %w", err)
		}
		return page, true, nil
	}

	// No tab shows the exam page yet; open one
	page, err := b.NewPage(ctx, opts...)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open exam page tab: %w", err)
	}
	return page, false, nil
}

// resolvePageConfig returns the effective messages and devtools threshold
// for the exam page, applying per-host overrides from the configuration
// file on top of the flag values.
func resolvePageConfig(cfg *config.Config) (monitor.Messages, int) {
	messages := monitor.Messages{
		TabSwitch: cfg.TabSwitchMessage,
		FocusLoss: cfg.FocusLossMessage,
		Devtools:  cfg.DevtoolsMessage,
	}
	threshold := cfg.DevtoolsThreshold

	if cfg.PageConfigs == nil {
		return messages, threshold
	}

	host := cfg.TargetURL
	if u, err := url.Parse(cfg.TargetURL); err == nil && u.Host != "" {
		host = u.Host
	}

	pageConfig := cfg.PageConfigs.GetPageConfig(host)
	if pageConfig.TabSwitchMessage != "" {
		messages.TabSwitch = pageConfig.TabSwitchMessage
	}
	if pageConfig.FocusLossMessage != "" {
		messages.FocusLoss = pageConfig.FocusLossMessage
	}
	if pageConfig.DevtoolsMessage != "" {
		messages.Devtools = pageConfig.DevtoolsMessage
	}
	if pageConfig.DevtoolsThreshold > 0 {
		threshold = pageConfig.DevtoolsThreshold
	}

	return messages, threshold
}

// createPipelineForSession assembles the event pipeline for one session.
// The page serves as the evidence source. The journal is nil when saving
// is disabled, and the assembled pipeline drops the missing steps.
func createPipelineForSession(page *browser.Page, db *database.SessionDB, logger *slog.Logger, cfg *config.Config) *pipeline.Pipeline {
	pipelineOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithContinueOnError(true),
	}

	var source pipeline.Snapshotter
	if cfg.Evidence {
		source = page
	}

	var journal pipeline.Journal
	if db != nil {
		journal = db
	}

	var configOpts []pipeline.DefaultPipelineOption
	if cfg.EvidenceDir != "" {
		configOpts = append(configOpts,
			pipeline.WithPipelineEvidenceDir(cfg.EvidenceDir),
			pipeline.WithPipelineScreenshots(true),
		)
	}

	return pipeline.DefaultPipeline(source, journal, pipelineOpts, configOpts...)
}

// pipelineSink adapts the event pipeline to the monitor's Sink interface,
// folding each processed event into the session record. The monitor calls
// Record from both the event pump and the geometry poller, so the session
// append is guarded here.
type pipelineSink struct {
	mu       sync.Mutex
	pipeline *pipeline.Pipeline
	session  *model.Session
}

// Record runs the event through the pipeline and appends it to the session.
func (s *pipelineSink) Record(ctx context.Context, event *model.Event) error {
	event.SessionID = s.session.ID

	if err := s.pipeline.Execute(ctx, event); err != nil {
		return fmt.Errorf("failed to process event: %w", err)
	}

	s.mu.Lock()
	s.session.AddEvent(*event)
	s.mu.Unlock()

	return nil
}

// watchSession runs the watch goroutines until one fails or the context
// ends: the geometry poller, the sentinel event pump, and the page counter
// keepalive.
func watchSession(ctx context.Context, mon *monitor.Monitor, page *browser.Page, events <-chan model.EventKind, logger *slog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	// Geometry poller for the devtools heuristic
	g.Go(func() error {
		return mon.Run(gctx, page)
	})

	// Sentinel event pump. A single consumer keeps the journal in
	// arrival order.
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case kind := <-events:
				switch kind {
				case model.KindTabSwitch:
					mon.RecordTabSwitch(gctx)
				case model.KindFocusLoss:
					mon.RecordFocusLoss(gctx)
				default:
					logger.Debug("ignoring sentinel event", "kind", kind)
				}
			}
		}
	})

	// Page counter keepalive. When the counter cannot be read repeatedly
	// the tab or browser is gone and the session is over.
	g.Go(func() error {
		ticker := time.NewTicker(counterSyncInterval)
		defer ticker.Stop()

		failures := 0
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				count, err := page.SuspiciousEventCount(gctx)
				if err != nil {
					if errors.Is(err, browser.ErrSentinelMissing) {
						// A fresh document is still booting the sentinel
						logger.Debug("page counter not installed yet")
						continue
					}
					failures++
					if failures >= maxCounterFailures {
						return fmt.Errorf("exam page unreachable: %w", err)
					}
					logger.Debug("page counter read failed", "failures", failures, "error", err)
					continue
				}
				failures = 0

				if host := mon.SuspiciousEvents(); count != host {
					logger.Debug("page and session counters differ", "page", count, "session", host)
				}
			}
		}
	})

	return g.Wait()
}

// saveSession saves the session to the journal.
// If db is nil, this function is a no-op.
func saveSession(ctx context.Context, db *database.SessionDB, session *model.Session, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	if err := db.SaveSession(ctx, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	logger.Info("session saved to journal", "session", session.ID)
	return nil
}

// outputReport outputs the session report in the requested format.
func outputReport(cfg *config.Config, session *model.Session) error {
	// Determine output destination
	var output *os.File
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Create/overwrite the output file with owner-only permissions (0600)
		// Reports describe a candidate's session and belong to the proctor
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	// JSON output (full session plus derived summary)
	if cfg.JSONReport {
		writer := report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
		_, err := writer.Write(session)
		return err
	}

	// Markdown output
	if cfg.MarkdownReport {
		writer := report.NewMarkdownWriter(output)
		_, err := writer.Write(session)
		return err
	}

	// Human-readable report (default)
	writer := report.NewSimpleWriter(output)
	_, err := writer.Write(session)
	return err
}
