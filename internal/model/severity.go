package model

// Severity represents how strongly an observed event suggests cheating.
// This allows graders to sort a session's events by how much attention
// each one deserves.
//
// Design decision: We use iota-based constants rather than string constants
// for efficiency in comparisons and sorting. The String() method provides
// human-readable output when needed.
type Severity int

const (
	// SeverityInfo indicates informational events with no direct proctoring impact.
	// Examples: session start and end markers.
	// These provide timeline context but are not suspicious on their own.
	SeverityInfo Severity = iota

	// SeverityWarning indicates events that count toward the suspicious total.
	// Examples: tab switches, window focus losses.
	// A single occurrence can be accidental; repeated occurrences form a pattern.
	SeverityWarning

	// SeverityAlert indicates events that suggest deliberate inspection of the page.
	// Examples: suspected developer tools usage.
	// These are heuristic detections and warrant manual review, not automatic action.
	SeverityAlert
)

// String returns a human-readable representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityAlert:
		return "ALERT"
	default:
		return "UNKNOWN"
	}
}

// KindInfo contains metadata about an event kind including severity,
// a display title, and guidance for the grader reviewing the session.
type KindInfo struct {
	Severity Severity
	Title    string
	Impact   string
	Guidance string
}

// kindInfoMapping maps event kinds to their metadata.
// This centralized mapping ensures consistent assessment across the application.
//
// Design decision: We use a map rather than embedding severity in each event
// because:
// 1. It allows updating assessments without modifying type definitions
// 2. It provides a single source of truth for severity levels
// 3. It makes it easy to generate report documentation
var kindInfoMapping = map[EventKind]KindInfo{
	KindTabSwitch: {
		Severity: SeverityWarning,
		Title:    "Tab Switch",
		Impact:   "The exam page was hidden, typically by switching to another tab or minimizing the window.",
		Guidance: "Review the timestamps. Isolated occurrences are often accidental; clusters suggest lookups in another tab.",
	},
	KindFocusLoss: {
		Severity: SeverityWarning,
		Title:    "Focus Loss",
		Impact:   "The exam window lost keyboard focus, typically because another application was brought to the front.",
		Guidance: "Correlate with tab switches. Focus loss without a tab switch usually means another desktop application was used.",
	},
	KindDevtools: {
		Severity: SeverityAlert,
		Title:    "Developer Tools Suspected",
		Impact:   "Window dimensions suggest an attached inspector panel, which can expose answers embedded in the page or allow script tampering.",
		Guidance: "This is a heuristic based on window geometry and can misfire on unusual browser chrome. Verify with the candidate before acting on it.",
	},
}

// GetSeverity returns the severity level for an event kind.
// Returns SeverityInfo if the kind is not in the mapping.
func GetSeverity(kind EventKind) Severity {
	if info, ok := kindInfoMapping[kind]; ok {
		return info.Severity
	}
	return SeverityInfo
}

// GetKindInfo returns the full metadata for an event kind.
// Returns a default KindInfo with SeverityInfo if the kind is not in the mapping.
func GetKindInfo(kind EventKind) KindInfo {
	if info, ok := kindInfoMapping[kind]; ok {
		return info
	}
	return KindInfo{
		Severity: SeverityInfo,
		Title:    "Unknown Event",
		Impact:   "Unknown event kind. Review manually.",
		Guidance: "Investigate the event and assess whether it is suspicious.",
	}
}
