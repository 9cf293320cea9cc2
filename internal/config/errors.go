package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages. Using errors.New() here rather than fmt.Errorf()
// because we don't need to include dynamic values in these messages.
var (
	// ErrNoTarget is returned when no exam page URL is specified.
	// This error occurs when the watch command is run without a positional argument.
	ErrNoTarget = errors.New("no target specified: provide an exam page URL")

	// ErrInvalidTargetURL is returned when the target is not an http or https URL.
	// The browser can only watch web pages.
	ErrInvalidTargetURL = errors.New("invalid target: must be an http or https URL")

	// ErrInvalidPollInterval is returned when the poll interval is not positive.
	// A zero or negative interval would spin the devtools heuristic loop.
	ErrInvalidPollInterval = errors.New("invalid poll interval: must be positive")

	// ErrInvalidThreshold is returned when the devtools threshold is not positive.
	// A zero threshold would flag every window as having devtools attached.
	ErrInvalidThreshold = errors.New("invalid devtools threshold: must be positive")

	// ErrInvalidFadeDelay is returned when the notice fade delay is negative.
	// A negative delay is invalid; use 0 to begin fading immediately.
	ErrInvalidFadeDelay = errors.New("invalid notice fade delay: must be non-negative")

	// ErrEmptyMessage is returned when a warning message is blank.
	// Every event kind needs a message because the notice always shows one.
	ErrEmptyMessage = errors.New("empty warning message: every event kind needs a message")

	// ErrInvalidDuration is returned when the watch duration is negative.
	// A negative duration is invalid; use 0 to watch until interrupted.
	ErrInvalidDuration = errors.New("invalid duration: must be non-negative")

	// ErrInvalidTimeout is returned when the navigation timeout is not positive.
	// A zero timeout would abort every navigation immediately.
	ErrInvalidTimeout = errors.New("invalid navigation timeout: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
