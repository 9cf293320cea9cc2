package model

import (
	"errors"
	"strings"
	"time"
)

// EventKind errors.
var (
	// ErrInvalidEventKind is returned when the kind string is not recognized.
	ErrInvalidEventKind = errors.New("invalid event kind")
	// ErrEmptyEventKind is returned when the kind string is empty.
	ErrEmptyEventKind = errors.New("event kind cannot be empty")
)

// EventKind identifies the kind of a proctoring event.
//
// Design decision: Kinds are string constants rather than iota integers
// because they cross process boundaries: the in-page sentinel script sends
// them over the DevTools binding as strings, and the journal stores them
// as text. Keeping the wire, storage, and Go representations identical
// removes a translation layer.
type EventKind string

const (
	// KindTabSwitch is recorded when the exam page transitions to hidden,
	// which happens on tab switches and window minimization.
	KindTabSwitch EventKind = "tab_switch"

	// KindFocusLoss is recorded when the exam window loses focus while
	// remaining visible, for example when another application is focused.
	KindFocusLoss EventKind = "focus_loss"

	// KindDevtools is recorded when the window geometry heuristic suspects
	// an attached developer tools panel. At most one is recorded per breach
	// episode; the suspicion clears silently when geometry returns to normal.
	KindDevtools EventKind = "devtools_suspected"
)

// ParseEventKind validates a kind string received from the sentinel script
// or read back from the journal.
func ParseEventKind(s string) (EventKind, error) {
	if s == "" {
		return "", ErrEmptyEventKind
	}

	kind := EventKind(strings.ToLower(strings.TrimSpace(s)))
	if !kind.Valid() {
		return "", ErrInvalidEventKind
	}
	return kind, nil
}

// Valid reports whether the kind is one of the recognized event kinds.
func (k EventKind) Valid() bool {
	switch k {
	case KindTabSwitch, KindFocusLoss, KindDevtools:
		return true
	default:
		return false
	}
}

// Counted reports whether events of this kind increment the exposed
// suspicious-event counter. Tab switches and focus losses are counted;
// devtools detections raise a warning but are not added to the total.
func (k EventKind) Counted() bool {
	return k == KindTabSwitch || k == KindFocusLoss
}

// String returns the kind identifier as stored in the journal.
func (k EventKind) String() string {
	return string(k)
}

// Event is a single observed proctoring event.
type Event struct {
	// ID is the journal row ID. Zero until the event is persisted.
	ID int64 `json:"id,omitempty"`

	// SessionID identifies the watch session the event belongs to.
	SessionID string `json:"session_id,omitempty"`

	// Kind is the event kind identifier.
	Kind EventKind `json:"kind"`

	// Message is the warning text shown on the page for this event.
	Message string `json:"message"`

	// OccurredAt is when the event was observed.
	OccurredAt time.Time `json:"occurred_at"`

	// DeltaW and DeltaH are the outer-minus-inner window dimension deltas
	// in pixels at detection time. Only set for devtools events.
	DeltaW int `json:"delta_w,omitempty"`
	DeltaH int `json:"delta_h,omitempty"`

	// Evidence is an optional capture of the page at event time.
	Evidence *Evidence `json:"evidence,omitempty"`
}

// NewEvent creates an event of the given kind observed now.
func NewEvent(kind EventKind, message string) Event {
	return Event{
		Kind:       kind,
		Message:    message,
		OccurredAt: time.Now(),
	}
}

// Severity returns the severity of the event's kind.
func (e Event) Severity() Severity {
	return GetSeverity(e.Kind)
}
