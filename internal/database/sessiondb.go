package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/examwatch/examwatch/internal/model"
)

// SessionDB provides SQLite-based storage for watch sessions and their
// event journals.
//
// Design decision: Events are journaled row by row as they are observed,
// while the session summary lives in its own upserted row. An interrupted
// watch (browser crash, power loss) therefore still leaves a complete
// event journal behind; only the summary row is missing its end time.
type SessionDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures SessionDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a SessionDB at the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*SessionDB, error) {
	dbPath := filepath.Join(dbDir, "examwatch.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating new
	// files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; the journal is written from a single
	// watch loop anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	sdb := &SessionDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := sdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return sdb, nil
}

// Close closes the database connection.
func (sdb *SessionDB) Close() error {
	return sdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (sdb *SessionDB) createTables() error {
	schema := `
	-- Session summaries, one row per watch, upserted at attach and finish
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		target_url TEXT NOT NULL,
		page_title TEXT,
		started_at TEXT NOT NULL,
		ended_at TEXT,
		tab_switches INTEGER NOT NULL DEFAULT 0,
		focus_losses INTEGER NOT NULL DEFAULT 0,
		devtools_detections INTEGER NOT NULL DEFAULT 0,
		interrupted INTEGER NOT NULL DEFAULT 0,
		error_message TEXT,
		session_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_url ON sessions(target_url);
	CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);

	-- Event journal, one row per observed event, written as events happen
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		message TEXT,
		occurred_at TEXT NOT NULL,
		delta_w INTEGER NOT NULL DEFAULT 0,
		delta_h INTEGER NOT NULL DEFAULT 0,
		evidence_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id);
	CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind);
	`

	_, err := sdb.db.ExecContext(context.Background(), schema)
	return err
}

// storedTimeFormat is the text form timestamps are stored in. The fixed
// fractional width keeps lexicographic and chronological order identical,
// which the ORDER BY started_at queries rely on.
const storedTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// formatTime converts a timestamp to its stored text form.
func formatTime(t time.Time) string {
	return t.UTC().Format(storedTimeFormat)
}

// nullableTime converts a timestamp to its stored text form, mapping the
// zero time to NULL.
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

// SaveSession inserts or updates a session summary row.
// Uses UPSERT so the same session can be saved at attach time and again
// at finish time.
func (sdb *SessionDB) SaveSession(ctx context.Context, session *model.Session) error {
	// The summary row carries the session without its events; those live
	// in the events table.
	summary := *session
	summary.Events = nil

	sessionJSON, err := json.Marshal(&summary)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}

	query := `
	INSERT INTO sessions (id, target_url, page_title, started_at, ended_at,
		tab_switches, focus_losses, devtools_detections, interrupted,
		error_message, session_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		page_title = excluded.page_title,
		ended_at = excluded.ended_at,
		tab_switches = excluded.tab_switches,
		focus_losses = excluded.focus_losses,
		devtools_detections = excluded.devtools_detections,
		interrupted = excluded.interrupted,
		error_message = excluded.error_message,
		session_json = excluded.session_json
	`

	_, err = sdb.db.ExecContext(ctx, query,
		session.ID,
		session.TargetURL,
		session.PageTitle,
		formatTime(session.StartedAt),
		nullableTime(session.EndedAt),
		session.TabSwitches,
		session.FocusLosses,
		session.DevtoolsDetections,
		session.Interrupted,
		session.ErrorMessage,
		string(sessionJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// InsertEvent appends one event to the journal and returns its row ID.
func (sdb *SessionDB) InsertEvent(ctx context.Context, event *model.Event) (int64, error) {
	var evidenceJSON any
	if event.Evidence != nil {
		encoded, err := json.Marshal(event.Evidence)
		if err != nil {
			return 0, fmt.Errorf("failed to serialize evidence: %w", err)
		}
		evidenceJSON = string(encoded)
	}

	query := `
	INSERT INTO events (session_id, kind, message, occurred_at, delta_w, delta_h, evidence_json)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sdb.db.ExecContext(ctx, query,
		event.SessionID,
		event.Kind.String(),
		event.Message,
		formatTime(event.OccurredAt),
		event.DeltaW,
		event.DeltaH,
		evidenceJSON,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert event: %w", err)
	}

	return result.LastInsertId()
}

// GetSession retrieves a session by ID with its full event journal.
// Returns nil without an error when the session does not exist.
func (sdb *SessionDB) GetSession(ctx context.Context, id string) (*model.Session, error) {
	query := `SELECT session_json FROM sessions WHERE id = ?`

	var sessionJSON string
	err := sdb.db.QueryRowContext(ctx, query, id).Scan(&sessionJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session model.Session
	if err := json.Unmarshal([]byte(sessionJSON), &session); err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}

	events, err := sdb.EventsBySession(ctx, id)
	if err != nil {
		return nil, err
	}
	session.Events = events

	return &session, nil
}

// LatestSession retrieves the most recent session for an exam page.
// Returns nil without an error when the page has never been watched.
func (sdb *SessionDB) LatestSession(ctx context.Context, targetURL string) (*model.Session, error) {
	query := `
	SELECT id FROM sessions
	WHERE target_url = ?
	ORDER BY started_at DESC
	LIMIT 1
	`

	var id string
	err := sdb.db.QueryRowContext(ctx, query, targetURL).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find latest session: %w", err)
	}

	return sdb.GetSession(ctx, id)
}

// SessionHistory retrieves all session summaries for an exam page, most
// recent first. Event journals are not loaded; use GetSession for that.
func (sdb *SessionDB) SessionHistory(ctx context.Context, targetURL string) ([]*model.Session, error) {
	query := `
	SELECT session_json FROM sessions
	WHERE target_url = ?
	ORDER BY started_at DESC
	`

	rows, err := sdb.db.QueryContext(ctx, query, targetURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get session history: %w", err)
	}
	defer rows.Close()

	var sessions []*model.Session
	for rows.Next() {
		var sessionJSON string
		if err := rows.Scan(&sessionJSON); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}

		var session model.Session
		if err := json.Unmarshal([]byte(sessionJSON), &session); err != nil {
			continue // Skip malformed rows
		}
		sessions = append(sessions, &session)
	}

	return sessions, rows.Err()
}

// SessionMetadata contains summary information about a stored session.
// This is used for displaying history without loading full event journals.
type SessionMetadata struct {
	// ID is the session identifier.
	ID string

	// TargetURL is the watched exam page.
	TargetURL string

	// PageTitle is the page title captured at attach time.
	PageTitle string

	// StartedAt is when watching began.
	StartedAt time.Time

	// EndedAt is when watching stopped. Zero when the summary row was
	// never finalized.
	EndedAt time.Time

	// TabSwitches, FocusLosses and DevtoolsDetections are the per-kind
	// event counts.
	TabSwitches        int
	FocusLosses        int
	DevtoolsDetections int

	// Interrupted is true when the watch ended because the page or
	// browser went away.
	Interrupted bool
}

// SuspiciousEvents returns tab switches plus focus losses, mirroring the
// counter exposed in the page.
func (m SessionMetadata) SuspiciousEvents() int {
	return m.TabSwitches + m.FocusLosses
}

// ListSessions returns stored session summaries across all pages, most
// recent first. A limit of zero or less returns everything.
func (sdb *SessionDB) ListSessions(ctx context.Context, limit int) ([]SessionMetadata, error) {
	query := `
	SELECT id, target_url, page_title, started_at, ended_at,
		tab_switches, focus_losses, devtools_detections, interrupted
	FROM sessions
	ORDER BY started_at DESC
	`

	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := sdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var results []SessionMetadata
	for rows.Next() {
		var meta SessionMetadata
		var startedAt string
		var endedAt sql.NullString

		err := rows.Scan(
			&meta.ID,
			&meta.TargetURL,
			&meta.PageTitle,
			&startedAt,
			&endedAt,
			&meta.TabSwitches,
			&meta.FocusLosses,
			&meta.DevtoolsDetections,
			&meta.Interrupted,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session metadata: %w", err)
		}

		meta.StartedAt = parseTimestamp(startedAt)
		if endedAt.Valid && endedAt.String != "" {
			meta.EndedAt = parseTimestamp(endedAt.String)
		}

		results = append(results, meta)
	}

	return results, rows.Err()
}

// EventsBySession retrieves a session's event journal in insertion order.
func (sdb *SessionDB) EventsBySession(ctx context.Context, sessionID string) ([]model.Event, error) {
	query := `
	SELECT id, session_id, kind, message, occurred_at, delta_w, delta_h, evidence_json
	FROM events
	WHERE session_id = ?
	ORDER BY id
	`

	rows, err := sdb.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := make([]model.Event, 0)
	for rows.Next() {
		var event model.Event
		var kind string
		var occurredAt string
		var evidenceJSON sql.NullString

		err := rows.Scan(
			&event.ID,
			&event.SessionID,
			&kind,
			&event.Message,
			&occurredAt,
			&event.DeltaW,
			&event.DeltaH,
			&evidenceJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}

		event.Kind = model.EventKind(kind)
		event.OccurredAt = parseTimestamp(occurredAt)

		if evidenceJSON.Valid && evidenceJSON.String != "" {
			var evidence model.Evidence
			if err := json.Unmarshal([]byte(evidenceJSON.String), &evidence); err == nil {
				event.Evidence = &evidence
			}
		}

		events = append(events, event)
	}

	return events, rows.Err()
}

// timestampFormats contains the timestamp formats that may appear in the
// database. The order matters: more specific formats should come first.
var timestampFormats = []string{
	storedTimeFormat,          // Our fixed-width stored form
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
