package model

import "time"

// SessionReport is a summarized, human-readable report of one watch session.
// It enriches the session's raw events with severity metadata for review.
//
// Design decision: We create a separate report type rather than just
// printing parts of Session because:
// 1. It provides a consistent, curated view for graders
// 2. It can be serialized to JSON for tools that want structured but simple output
// 3. It separates presentation concerns from data collection
type SessionReport struct {
	// SessionID identifies the underlying session.
	SessionID string `json:"session_id"`

	// TargetURL is the exam page that was watched.
	TargetURL string `json:"target_url"`

	// PageTitle is the exam page title.
	PageTitle string `json:"page_title,omitempty"`

	// StartedAt is when watching began.
	StartedAt time.Time `json:"started_at"`

	// EndedAt is when watching stopped.
	EndedAt time.Time `json:"ended_at,omitempty"`

	// DurationSeconds is the watch duration rounded to whole seconds.
	DurationSeconds int `json:"duration_seconds"`

	// === Counters ===

	// SuspiciousEvents is the exposed counter: tab switches plus focus
	// losses. Devtools detections are excluded from this total.
	SuspiciousEvents int `json:"suspicious_events"`

	// TabSwitches is the number of page-hidden transitions.
	TabSwitches int `json:"tab_switches"`

	// FocusLosses is the number of window-blur transitions.
	FocusLosses int `json:"focus_losses"`

	// DevtoolsDetections is the number of devtools breach episodes.
	DevtoolsDetections int `json:"devtools_detections"`

	// === Severity Summary ===

	// WarningCount is the number of warning-severity findings.
	WarningCount int `json:"warning_count"`

	// AlertCount is the number of alert-severity findings.
	AlertCount int `json:"alert_count"`

	// InfoCount is the number of informational findings.
	InfoCount int `json:"info_count"`

	// === Findings ===

	// Findings contains every event enriched with severity metadata,
	// in order of occurrence.
	Findings []Finding `json:"findings,omitempty"`

	// === Session State ===

	// Interrupted indicates the watch ended without a proctor-initiated stop.
	Interrupted bool `json:"interrupted"`

	// Error contains any error message if the watch failed.
	Error string `json:"error,omitempty"`
}

// Finding is a single event enriched for review.
type Finding struct {
	// Kind is the event kind identifier.
	// This maps to the kind metadata in severity.go.
	Kind EventKind `json:"kind"`

	// Severity is the assessed severity.
	Severity Severity `json:"severity"`

	// SeverityText is the human-readable severity.
	SeverityText string `json:"severity_text"`

	// Title is a short description of the event kind.
	Title string `json:"title"`

	// Message is the warning text that was shown on the page.
	Message string `json:"message,omitempty"`

	// Impact explains what this event kind means for exam integrity.
	Impact string `json:"impact,omitempty"`

	// Guidance tells the grader how to interpret the event.
	Guidance string `json:"guidance,omitempty"`

	// OccurredAt is when the event was observed.
	OccurredAt time.Time `json:"occurred_at"`

	// OffsetSeconds is the event time relative to session start,
	// rounded to whole seconds. Easier to line up with a recording
	// than absolute timestamps.
	OffsetSeconds int `json:"offset_seconds"`

	// DeltaW and DeltaH are the window dimension deltas for devtools events.
	DeltaW int `json:"delta_w,omitempty"`
	DeltaH int `json:"delta_h,omitempty"`

	// EvidenceHash is the page content hash captured at event time, if any.
	EvidenceHash string `json:"evidence_hash,omitempty"`
}

// NewSessionReport builds a report from a finished (or still-running) session.
func NewSessionReport(session *Session) *SessionReport {
	report := &SessionReport{
		SessionID:          session.ID,
		TargetURL:          session.TargetURL,
		PageTitle:          session.PageTitle,
		StartedAt:          session.StartedAt,
		EndedAt:            session.EndedAt,
		DurationSeconds:    int(session.Duration().Round(time.Second).Seconds()),
		SuspiciousEvents:   session.SuspiciousEvents(),
		TabSwitches:        session.TabSwitches,
		FocusLosses:        session.FocusLosses,
		DevtoolsDetections: session.DevtoolsDetections,
		Interrupted:        session.Interrupted,
		Error:              session.ErrorMessage,
	}

	for _, event := range session.Events {
		report.addFinding(session, event)
	}
	report.countBySeverity()

	return report
}

// addFinding appends an enriched finding for the event.
func (r *SessionReport) addFinding(session *Session, event Event) {
	info := GetKindInfo(event.Kind)
	finding := Finding{
		Kind:          event.Kind,
		Severity:      info.Severity,
		SeverityText:  info.Severity.String(),
		Title:         info.Title,
		Message:       event.Message,
		Impact:        info.Impact,
		Guidance:      info.Guidance,
		OccurredAt:    event.OccurredAt,
		OffsetSeconds: int(event.OccurredAt.Sub(session.StartedAt).Round(time.Second).Seconds()),
		DeltaW:        event.DeltaW,
		DeltaH:        event.DeltaH,
	}
	if event.Evidence != nil {
		finding.EvidenceHash = event.Evidence.HTMLHash
	}
	r.Findings = append(r.Findings, finding)
}

// countBySeverity counts findings by severity level.
func (r *SessionReport) countBySeverity() {
	for _, f := range r.Findings {
		switch f.Severity {
		case SeverityAlert:
			r.AlertCount++
		case SeverityWarning:
			r.WarningCount++
		case SeverityInfo:
			r.InfoCount++
		}
	}
}

// TotalFindings returns the total number of findings.
func (r *SessionReport) TotalFindings() int {
	return len(r.Findings)
}

// HasFindings returns true if there are any findings.
func (r *SessionReport) HasFindings() bool {
	return len(r.Findings) > 0
}

// FindingsByKind returns findings filtered by event kind.
func (r *SessionReport) FindingsByKind(kind EventKind) []Finding {
	var result []Finding
	for _, f := range r.Findings {
		if f.Kind == kind {
			result = append(result, f)
		}
	}
	return result
}

// MaxSeverity returns the highest severity present among the findings.
// Returns SeverityInfo for a session with no findings.
func (r *SessionReport) MaxSeverity() Severity {
	max := SeverityInfo
	for _, f := range r.Findings {
		if f.Severity > max {
			max = f.Severity
		}
	}
	return max
}
