package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// The detection values mirror the in-page proctoring script this tool
// descends from, so sessions watched by examwatch behave identically to
// pages that embed the script directly.
const (
	// DefaultPollInterval is how often window dimensions are sampled for the
	// devtools heuristic. 1 second matches the original in-page timer and is
	// fast enough to catch a panel opened mid-answer without waking the
	// browser's event loop excessively.
	DefaultPollInterval = 1 * time.Second

	// DefaultDevtoolsThreshold is the outer-minus-inner window delta, in
	// pixels, above which an attached devtools panel is suspected. 160 px
	// exceeds normal browser chrome (toolbars, scrollbars) on common
	// platforms while remaining smaller than any usable devtools pane.
	// This is a heuristic; false positives on unusual window chrome are
	// accepted rather than tuned around.
	DefaultDevtoolsThreshold = 160

	// DefaultNoticeFadeDelay is how long a warning notice stays at full
	// opacity before its fade begins. The fade is cosmetic: the element
	// stays in the page and is reused by the next warning.
	DefaultNoticeFadeDelay = 4 * time.Second

	// DefaultNavigationTimeout bounds initial page navigation. Exam platforms
	// are sometimes slow under load at exam start, so this is generous.
	DefaultNavigationTimeout = 60 * time.Second

	// DefaultBrowserStartupTimeout is the maximum time to wait for a launched
	// browser to accept DevTools connections. 30 seconds covers cold starts
	// on loaded machines.
	DefaultBrowserStartupTimeout = 30 * time.Second

	// DefaultTabSwitchMessage is shown when the exam page is hidden.
	DefaultTabSwitchMessage = "Tab switch detected! This activity is recorded."

	// DefaultFocusLossMessage is shown when the exam window loses focus.
	DefaultFocusLossMessage = "Window focus lost! Please return to the exam."

	// DefaultDevtoolsMessage is shown when developer tools are suspected.
	DefaultDevtoolsMessage = "Developer tools detected! Please close them."

	// AppName is the application name used for XDG directory paths.
	AppName = "examwatch"
)

// Config holds all configuration options for examwatch.
// This struct is designed to be populated from CLI flags and passed through
// the application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., MonitorConfig, ReportConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
// If the configuration grows significantly, consider refactoring into sub-structs.
type Config struct {
	// TargetURL is the exam page to watch. Required for watch sessions;
	// the demo command fills it in with the local demo page address.
	TargetURL string

	// RemoteDebugURL is the DevTools endpoint of an already-running browser
	// (e.g. "http://127.0.0.1:9222"). When set, examwatch attaches to that
	// browser instead of launching its own. Attaching is the normal mode in
	// exam halls where the invigilator's machine runs the browser.
	RemoteDebugURL string

	// Headless launches the browser without a visible window. Only useful
	// for the demo and for tests; a real exam session needs a visible page.
	Headless bool

	// ChromePath overrides the browser executable location.
	// When empty, the launcher searches standard install locations.
	ChromePath string

	// PollInterval is how often window dimensions are sampled for the
	// devtools heuristic.
	PollInterval time.Duration

	// DevtoolsThreshold is the dimension delta in pixels above which
	// devtools are suspected. The comparison is strict: a delta must
	// exceed the threshold on either axis to trigger.
	DevtoolsThreshold int

	// NoticeFadeDelay is how long a warning notice stays at full opacity
	// before fading.
	NoticeFadeDelay time.Duration

	// TabSwitchMessage is the warning text for page-hidden transitions.
	TabSwitchMessage string

	// FocusLossMessage is the warning text for window-blur transitions.
	FocusLossMessage string

	// DevtoolsMessage is the warning text for devtools detections.
	DevtoolsMessage string

	// Duration limits how long the session is watched. Zero means watch
	// until interrupted or the page goes away.
	Duration time.Duration

	// NavigationTimeout bounds the initial navigation to TargetURL.
	NavigationTimeout time.Duration

	// BrowserStartupTimeout is the maximum time to wait for a launched
	// browser to accept DevTools connections.
	BrowserStartupTimeout time.Duration

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .examwatch in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// PageConfigs holds per-host configurations loaded from the config file.
	// This is populated by LoadConfigFile and applied before watching.
	PageConfigs *File

	// JSONReport enables JSON report output instead of human-readable format.
	// When true, outputs the full session report as JSON.
	// When false, outputs a human-readable summary (default).
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of human-readable format.
	// When true, outputs GitHub Flavored Markdown with tables, alerts, and pie charts.
	// When false, outputs a human-readable summary (default).
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	// Directories are created automatically if they don't exist.
	ReportFile string

	// DBDir is the directory path for storing the SQLite journal.
	// When set, sessions and events are saved for later review via
	// the history command.
	// Defaults to XDG data directory (~/.local/share/examwatch on Linux).
	DBDir string

	// SaveToDB indicates whether to save the session to the journal.
	// This is automatically set to true when DBDir is configured.
	SaveToDB bool

	// Evidence enables capturing a page snapshot (title and content hash)
	// for each observed event.
	Evidence bool

	// EvidenceDir is the directory for PNG screenshots taken per event.
	// Screenshots are only taken when this is set and Evidence is enabled.
	EvidenceDir string
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., poll interval,
// pixel threshold). This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		PollInterval:          DefaultPollInterval,
		DevtoolsThreshold:     DefaultDevtoolsThreshold,
		NoticeFadeDelay:       DefaultNoticeFadeDelay,
		NavigationTimeout:     DefaultNavigationTimeout,
		BrowserStartupTimeout: DefaultBrowserStartupTimeout,
		TabSwitchMessage:      DefaultTabSwitchMessage,
		FocusLossMessage:      DefaultFocusLossMessage,
		DevtoolsMessage:       DefaultDevtoolsMessage,
		Evidence:              true,
	}
}

// XDGDataDir returns the XDG data directory for examwatch.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/examwatch
// On macOS: ~/Library/Application Support/examwatch
// On Windows: %LOCALAPPDATA%\examwatch
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for examwatch.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.config/examwatch
// On macOS: ~/Library/Application Support/examwatch
// On Windows: %APPDATA%\examwatch
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for examwatch.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.cache/examwatch
// On macOS: ~/Library/Caches/examwatch
// On Windows: %LOCALAPPDATA%\examwatch\cache
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any watching begins.
//
// We chose to return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	// We must have an exam page to watch
	if c.TargetURL == "" {
		return ErrNoTarget
	}

	// The target must be a web URL; the browser cannot watch anything else
	if u, err := url.Parse(c.TargetURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidTargetURL
	}

	// Poll interval must be positive; zero would spin the heuristic loop
	if c.PollInterval <= 0 {
		return ErrInvalidPollInterval
	}

	// Threshold must be positive; zero would flag every window as devtools
	if c.DevtoolsThreshold <= 0 {
		return ErrInvalidThreshold
	}

	// Fade delay must be non-negative; zero means fade immediately
	if c.NoticeFadeDelay < 0 {
		return ErrInvalidFadeDelay
	}

	// Warning messages must not be blank; an empty notice tells the
	// candidate nothing
	if c.TabSwitchMessage == "" || c.FocusLossMessage == "" || c.DevtoolsMessage == "" {
		return ErrEmptyMessage
	}

	// Duration must be non-negative; zero means watch until interrupted
	if c.Duration < 0 {
		return ErrInvalidDuration
	}

	// Navigation timeout must be positive; zero would abort every navigation
	if c.NavigationTimeout <= 0 {
		return ErrInvalidTimeout
	}

	// JSONReport and MarkdownReport are mutually exclusive
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}
