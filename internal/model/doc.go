// Package model defines the core data structures used throughout examwatch.
//
// This package contains the following main types:
//   - Event: A single observed proctoring event (tab switch, focus loss, devtools)
//   - Session: The accumulating record of one watched exam session
//   - SessionReport: A summarized, human-readable report built from a Session
//   - Evidence: Lightweight page capture attached to an event
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (monitor, pipeline, database, report) need to
// use these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
