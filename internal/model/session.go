package model

import (
	"time"

	"github.com/google/uuid"
)

// Session is the accumulating record of one watched exam session.
// It contains everything observed between attach and detach.
//
// Design decision: We use a single struct rather than many small ones
// to simplify serialization and database storage. Per-kind counters are
// maintained incrementally by AddEvent so readers never have to rescan
// the event slice.
type Session struct {
	// === Basic Information ===

	// ID uniquely identifies the session in the journal.
	ID string `json:"id"`

	// TargetURL is the exam page that was watched.
	TargetURL string `json:"target_url"`

	// PageTitle is the exam page title captured at attach time.
	PageTitle string `json:"page_title,omitempty"`

	// StartedAt is when watching began.
	StartedAt time.Time `json:"started_at"`

	// EndedAt is when watching stopped. Zero while the session is live.
	EndedAt time.Time `json:"ended_at,omitempty"`

	// === Event Counters ===
	// Counters are updated by AddEvent and mirror the Events slice.

	// TabSwitches is the number of page-hidden transitions observed.
	TabSwitches int `json:"tab_switches"`

	// FocusLosses is the number of window-blur transitions observed.
	FocusLosses int `json:"focus_losses"`

	// DevtoolsDetections is the number of devtools breach episodes observed.
	// These are tracked separately and are not part of SuspiciousEvents.
	DevtoolsDetections int `json:"devtools_detections"`

	// === Events ===

	// Events contains every observed event in order of occurrence.
	Events []Event `json:"events,omitempty"`

	// === Session State ===

	// Interrupted is true if the watch ended because the page or browser
	// went away rather than by a proctor-initiated stop.
	Interrupted bool `json:"interrupted"`

	// Error contains any error that ended the session early.
	// Only set if the watch failed or partially failed.
	Error error `json:"-"` // Excluded from JSON

	// ErrorMessage is the string representation of Error for serialization.
	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional
}

// NewSession creates a session for the given exam page, started now.
func NewSession(targetURL string) *Session {
	return &Session{
		ID:        uuid.New().String(),
		TargetURL: targetURL,
		StartedAt: time.Now(),
		Events:    make([]Event, 0),
	}
}

// AddEvent appends an event and updates the per-kind counters.
// Every event is appended as-is: rapid repeats are distinct events and
// are never collapsed or deduplicated.
func (s *Session) AddEvent(event Event) {
	event.SessionID = s.ID
	s.Events = append(s.Events, event)

	switch event.Kind {
	case KindTabSwitch:
		s.TabSwitches++
	case KindFocusLoss:
		s.FocusLosses++
	case KindDevtools:
		s.DevtoolsDetections++
	}
}

// SuspiciousEvents returns the exposed suspicious-event count: tab switches
// plus focus losses. Devtools detections are excluded from this total and
// reported separately.
func (s *Session) SuspiciousEvents() int {
	return s.TabSwitches + s.FocusLosses
}

// Duration returns how long the session has been (or was) watched.
func (s *Session) Duration() time.Duration {
	if s.EndedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.EndedAt.Sub(s.StartedAt)
}

// Finish marks the session ended now and records any terminating error.
func (s *Session) Finish(err error) {
	s.EndedAt = time.Now()
	if err != nil {
		s.Error = err
		s.ErrorMessage = err.Error()
	}
}
