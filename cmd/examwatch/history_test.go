package main

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/examwatch/examwatch/internal/database"
	"github.com/examwatch/examwatch/internal/model"
)

func TestNewHistoryCmd(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "history [session-id]" {
			t.Errorf("unexpected Use: got %q", cmd.Use)
		}
	})

	t.Run("has short description", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" {
			t.Error("expected non-empty Short description")
		}
	})

	t.Run("has long description", func(t *testing.T) {
		t.Parallel()
		if cmd.Long == "" {
			t.Error("expected non-empty Long description")
		}
	})

	t.Run("has flags with shorthands", func(t *testing.T) {
		t.Parallel()
		flagsWithShort := map[string]string{
			"url":      "u",
			"limit":    "n",
			"json":     "j",
			"markdown": "m",
		}
		for flag, shorthand := range flagsWithShort {
			f := cmd.Flags().Lookup(flag)
			if f == nil {
				t.Errorf("expected flag %q to exist", flag)
				continue
			}
			if f.Shorthand != shorthand {
				t.Errorf("flag %q: expected shorthand %q, got %q", flag, shorthand, f.Shorthand)
			}
		}
	})

	t.Run("does not have db-dir flag (uses XDG)", func(t *testing.T) {
		t.Parallel()
		if cmd.Flags().Lookup("db-dir") != nil {
			t.Error("db-dir flag should not exist")
		}
	})

	t.Run("accepts maximum 1 argument", func(t *testing.T) {
		t.Parallel()
		// cobra.MaximumNArgs(1) is used
		if cmd.Args == nil {
			t.Error("expected Args to be set")
		}
	})
}

func TestSessionStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		meta database.SessionMetadata
		want string
	}{
		{
			name: "interrupted session",
			meta: database.SessionMetadata{Interrupted: true, EndedAt: time.Now()},
			want: "interrupted",
		},
		{
			name: "session without end time is in progress",
			meta: database.SessionMetadata{},
			want: "in progress",
		},
		{
			name: "finished session is complete",
			meta: database.SessionMetadata{EndedAt: time.Now()},
			want: "complete",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := sessionStatus(tt.meta)
			if got != tt.want {
				t.Errorf("sessionStatus() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToMetadata(t *testing.T) {
	t.Parallel()

	session := model.NewSession("https://exam.example.com/final")
	session.PageTitle = "Final Exam"
	session.TabSwitches = 2
	session.FocusLosses = 1
	session.DevtoolsDetections = 1
	session.Finish(nil)

	metas := toMetadata([]*model.Session{session})
	if len(metas) != 1 {
		t.Fatalf("expected 1 metadata entry, got %d", len(metas))
	}

	meta := metas[0]
	if meta.ID != session.ID {
		t.Errorf("expected ID %q, got %q", session.ID, meta.ID)
	}
	if meta.TargetURL != "https://exam.example.com/final" {
		t.Errorf("unexpected target URL %q", meta.TargetURL)
	}
	if meta.SuspiciousEvents() != 3 {
		t.Errorf("expected 3 suspicious events, got %d", meta.SuspiciousEvents())
	}
	if meta.DevtoolsDetections != 1 {
		t.Errorf("expected 1 devtools detection, got %d", meta.DevtoolsDetections)
	}
}

func TestListAllSessionsEmpty(t *testing.T) {
	// Note: Not using t.Parallel() because this test captures os.Stdout

	tmpDir := t.TempDir()
	db, err := database.Open(tmpDir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	oldStdout := os.Stdout
	r, w, pipeErr := os.Pipe()
	if pipeErr != nil {
		t.Fatalf("failed to create pipe: %v", pipeErr)
	}
	os.Stdout = w

	listErr := listAllSessions(ctx, db, 0)

	w.Close()
	os.Stdout = oldStdout

	if listErr != nil {
		t.Fatalf("listAllSessions() error = %v", listErr)
	}

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	r.Close()
	output := buf.String()

	if !strings.Contains(output, "No watch sessions found") {
		t.Errorf("expected 'No watch sessions found' message, got: %s", output)
	}
}

func TestListAllSessionsWithData(t *testing.T) {
	// Note: Not using t.Parallel() because this test captures os.Stdout

	tmpDir := t.TempDir()
	db, err := database.Open(tmpDir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	// Add sessions for multiple exam pages
	var ids []string
	for _, target := range []string{
		"https://exam.example.com/midterm",
		"https://exam.example.com/final",
		"https://other.example.com/quiz",
	} {
		session := model.NewSession(target)
		session.TabSwitches = 1
		session.Finish(nil)
		if err := db.SaveSession(ctx, session); err != nil {
			t.Fatalf("failed to save session: %v", err)
		}
		ids = append(ids, session.ID)
	}

	oldStdout := os.Stdout
	r, w, pipeErr := os.Pipe()
	if pipeErr != nil {
		t.Fatalf("failed to create pipe: %v", pipeErr)
	}
	os.Stdout = w

	listErr := listAllSessions(ctx, db, 0)

	w.Close()
	os.Stdout = oldStdout

	if listErr != nil {
		t.Fatalf("listAllSessions() error = %v", listErr)
	}

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	r.Close()
	output := buf.String()

	if !strings.Contains(output, "Watch sessions (3)") {
		t.Errorf("expected 'Watch sessions (3)' in output, got: %s", output)
	}
	for _, id := range ids {
		if !strings.Contains(output, id) {
			t.Errorf("expected session %s to be listed", id)
		}
	}
	if !strings.Contains(output, "complete") {
		t.Error("expected session status in output")
	}
}

func TestListPageSessions(t *testing.T) {
	// Note: Not using t.Parallel() because this test captures os.Stdout

	tmpDir := t.TempDir()
	db, err := database.Open(tmpDir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	// Add three sessions for the same exam page
	for i := 0; i < 3; i++ {
		session := model.NewSession("https://exam.example.com/final")
		session.Finish(nil)
		if err := db.SaveSession(ctx, session); err != nil {
			t.Fatalf("failed to save session: %v", err)
		}
		time.Sleep(10 * time.Millisecond) // Ensure different timestamps
	}

	oldStdout := os.Stdout
	r, w, pipeErr := os.Pipe()
	if pipeErr != nil {
		t.Fatalf("failed to create pipe: %v", pipeErr)
	}
	os.Stdout = w

	listErr := listPageSessions(ctx, db, "https://exam.example.com/final", 0)

	w.Close()
	os.Stdout = oldStdout

	if listErr != nil {
		t.Fatalf("listPageSessions() error = %v", listErr)
	}

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	r.Close()
	output := buf.String()

	if !strings.Contains(output, "Watch sessions for https://exam.example.com/final (3)") {
		t.Errorf("expected '(3)' session count in output, got: %s", output)
	}
}

func TestListPageSessionsRespectsLimit(t *testing.T) {
	// Note: Not using t.Parallel() because this test captures os.Stdout

	tmpDir := t.TempDir()
	db, err := database.Open(tmpDir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	for i := 0; i < 5; i++ {
		session := model.NewSession("https://exam.example.com/final")
		session.Finish(nil)
		if err := db.SaveSession(ctx, session); err != nil {
			t.Fatalf("failed to save session: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	oldStdout := os.Stdout
	r, w, pipeErr := os.Pipe()
	if pipeErr != nil {
		t.Fatalf("failed to create pipe: %v", pipeErr)
	}
	os.Stdout = w

	listErr := listPageSessions(ctx, db, "https://exam.example.com/final", 2)

	w.Close()
	os.Stdout = oldStdout

	if listErr != nil {
		t.Fatalf("listPageSessions() error = %v", listErr)
	}

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	r.Close()
	output := buf.String()

	if !strings.Contains(output, "(2)") {
		t.Errorf("expected listing truncated to 2 sessions, got: %s", output)
	}
}

func TestListPageSessionsNoData(t *testing.T) {
	// Note: Not using t.Parallel() because this test captures os.Stdout

	tmpDir := t.TempDir()
	db, err := database.Open(tmpDir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	oldStdout := os.Stdout
	r, w, pipeErr := os.Pipe()
	if pipeErr != nil {
		t.Fatalf("failed to create pipe: %v", pipeErr)
	}
	os.Stdout = w

	listErr := listPageSessions(ctx, db, "https://never-watched.example.com", 0)

	w.Close()
	os.Stdout = oldStdout

	if listErr != nil {
		t.Fatalf("listPageSessions() error = %v", listErr)
	}

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	r.Close()
	output := buf.String()

	if !strings.Contains(output, "No watch sessions found for https://never-watched.example.com") {
		t.Errorf("expected 'No watch sessions found for' message, got: %s", output)
	}
}

func TestShowSession(t *testing.T) {
	// Note: Not using t.Parallel() because this test captures os.Stdout

	tmpDir := t.TempDir()
	db, err := database.Open(tmpDir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	session := model.NewSession("https://exam.example.com/final")
	session.PageTitle = "Final Exam"
	session.AddEvent(model.NewEvent(model.KindTabSwitch, "Tab switch detected!"))
	session.Finish(nil)
	if err := db.SaveSession(ctx, session); err != nil {
		t.Fatalf("failed to save session: %v", err)
	}
	event := session.Events[0]
	if _, err := db.InsertEvent(ctx, &event); err != nil {
		t.Fatalf("failed to insert event: %v", err)
	}

	t.Run("text output", func(t *testing.T) {
		oldStdout := os.Stdout
		r, w, pipeErr := os.Pipe()
		if pipeErr != nil {
			t.Fatalf("failed to create pipe: %v", pipeErr)
		}
		os.Stdout = w

		showErr := showSession(ctx, db, session.ID, false, false)

		w.Close()
		os.Stdout = oldStdout

		if showErr != nil {
			t.Fatalf("showSession() error = %v", showErr)
		}

		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		r.Close()
		output := buf.String()

		if !strings.Contains(output, "https://exam.example.com/final") {
			t.Errorf("expected exam page URL in output, got: %s", output)
		}
	})

	t.Run("json output", func(t *testing.T) {
		oldStdout := os.Stdout
		r, w, pipeErr := os.Pipe()
		if pipeErr != nil {
			t.Fatalf("failed to create pipe: %v", pipeErr)
		}
		os.Stdout = w

		showErr := showSession(ctx, db, session.ID, true, false)

		w.Close()
		os.Stdout = oldStdout

		if showErr != nil {
			t.Fatalf("showSession() error = %v", showErr)
		}

		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		r.Close()
		output := buf.String()

		if !strings.Contains(output, `"target_url": "https://exam.example.com/final"`) {
			t.Errorf("expected JSON with target_url field, got: %s", output)
		}
	})

	t.Run("markdown output", func(t *testing.T) {
		oldStdout := os.Stdout
		r, w, pipeErr := os.Pipe()
		if pipeErr != nil {
			t.Fatalf("failed to create pipe: %v", pipeErr)
		}
		os.Stdout = w

		showErr := showSession(ctx, db, session.ID, false, true)

		w.Close()
		os.Stdout = oldStdout

		if showErr != nil {
			t.Fatalf("showSession() error = %v", showErr)
		}

		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		r.Close()
		output := buf.String()

		if !strings.Contains(output, "#") {
			t.Errorf("expected markdown header, got: %s", output)
		}
	})
}

func TestShowSessionNotFound(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	db, err := database.Open(tmpDir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	err = showSession(ctx, db, "no-such-session", false, false)
	if err == nil {
		t.Error("expected error for unknown session ID")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunHistoryCmdConflictingFormats(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()
	cmd.SetArgs([]string{"--json", "--markdown"})

	// Validation happens before the journal is opened, so this fails
	// without touching the database
	err := cmd.Execute()
	if err == nil {
		t.Error("expected error for conflicting report formats")
	}
	if !strings.Contains(err.Error(), "conflicting report formats") {
		t.Errorf("unexpected error: %v", err)
	}
}
