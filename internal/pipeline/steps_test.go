package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/examwatch/examwatch/internal/model"
)

// fakeSnapshotter implements Snapshotter for tests.
type fakeSnapshotter struct {
	evidence      *model.Evidence
	snapshotErr   error
	png           []byte
	screenshotErr error
}

func (f *fakeSnapshotter) Snapshot(_ context.Context) (*model.Evidence, error) {
	if f.snapshotErr != nil {
		return nil, f.snapshotErr
	}
	return f.evidence, nil
}

func (f *fakeSnapshotter) Screenshot(_ context.Context) ([]byte, error) {
	if f.screenshotErr != nil {
		return nil, f.screenshotErr
	}
	return f.png, nil
}

// fakeJournal implements Journal for tests.
type fakeJournal struct {
	nextID int64
	events []model.Event
	err    error
}

func (f *fakeJournal) InsertEvent(_ context.Context, event *model.Event) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.nextID++
	f.events = append(f.events, *event)
	return f.nextID, nil
}

// TestEvidenceStep tests evidence capture and screenshot handling.
func TestEvidenceStep(t *testing.T) {
	t.Parallel()

	t.Run("attaches hash evidence", func(t *testing.T) {
		t.Parallel()

		source := &fakeSnapshotter{
			evidence: model.NewEvidence("Final Exam", []byte("<html></html>")),
		}
		step := NewEvidenceStep(source)

		event := testEvent()
		if err := step.Do(context.Background(), event); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if event.Evidence == nil {
			t.Fatal("evidence not attached")
		}
		if event.Evidence.Title != "Final Exam" {
			t.Errorf("evidence title = %q, want 'Final Exam'", event.Evidence.Title)
		}
		if event.Evidence.ScreenshotPath != "" {
			t.Errorf("unexpected screenshot path %q", event.Evidence.ScreenshotPath)
		}
	})

	t.Run("snapshot failure is an error", func(t *testing.T) {
		t.Parallel()

		wantErr := errors.New("page gone")
		step := NewEvidenceStep(&fakeSnapshotter{snapshotErr: wantErr})

		if err := step.Do(context.Background(), testEvent()); !errors.Is(err, wantErr) {
			t.Errorf("got %v, want wrapped %v", err, wantErr)
		}
	})

	t.Run("writes screenshot file when enabled", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		source := &fakeSnapshotter{
			evidence: model.NewEvidence("Final Exam", []byte("<html></html>")),
			png:      []byte("fake png bytes"),
		}
		step := NewEvidenceStep(source,
			WithEvidenceDir(dir),
			WithScreenshots(true),
		)

		event := testEvent()
		if err := step.Do(context.Background(), event); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if event.Evidence.ScreenshotPath == "" {
			t.Fatal("screenshot path not recorded")
		}
		data, err := os.ReadFile(event.Evidence.ScreenshotPath)
		if err != nil {
			t.Fatalf("failed to read screenshot file: %v", err)
		}
		if string(data) != "fake png bytes" {
			t.Error("screenshot file content mismatch")
		}
		if !strings.Contains(event.Evidence.ScreenshotPath, string(event.Kind)) {
			t.Errorf("screenshot filename %q does not carry the event kind", event.Evidence.ScreenshotPath)
		}
	})

	t.Run("screenshot failure keeps hash evidence", func(t *testing.T) {
		t.Parallel()

		source := &fakeSnapshotter{
			evidence:      model.NewEvidence("Final Exam", []byte("<html></html>")),
			screenshotErr: errors.New("capture failed"),
		}
		step := NewEvidenceStep(source,
			WithEvidenceDir(t.TempDir()),
			WithScreenshots(true),
			WithEvidenceLogger(slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))),
		)

		event := testEvent()
		if err := step.Do(context.Background(), event); err != nil {
			t.Errorf("screenshot failure should not fail the step, got %v", err)
		}
		if event.Evidence == nil {
			t.Fatal("hash evidence lost")
		}
		if event.Evidence.ScreenshotPath != "" {
			t.Error("screenshot path should stay empty on capture failure")
		}
	})

	t.Run("screenshots require a directory", func(t *testing.T) {
		t.Parallel()

		source := &fakeSnapshotter{
			evidence: model.NewEvidence("Final Exam", []byte("<html></html>")),
			png:      []byte("png"),
		}
		step := NewEvidenceStep(source, WithScreenshots(true))

		event := testEvent()
		if err := step.Do(context.Background(), event); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if event.Evidence.ScreenshotPath != "" {
			t.Error("no screenshot should be written without a directory")
		}
	})

	t.Run("name", func(t *testing.T) {
		t.Parallel()

		if got := NewEvidenceStep(nil).Name(); got != "evidence" {
			t.Errorf("name = %q, want 'evidence'", got)
		}
	})
}

// TestJournalStep tests event persistence.
func TestJournalStep(t *testing.T) {
	t.Parallel()

	t.Run("assigns the journal row ID", func(t *testing.T) {
		t.Parallel()

		journal := &fakeJournal{}
		step := NewJournalStep(journal)

		event := testEvent()
		if err := step.Do(context.Background(), event); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if event.ID != 1 {
			t.Errorf("event ID = %d, want 1", event.ID)
		}
		if len(journal.events) != 1 {
			t.Fatalf("journal received %d events, want 1", len(journal.events))
		}
		if journal.events[0].Kind != model.KindTabSwitch {
			t.Errorf("journaled kind = %q, want %q", journal.events[0].Kind, model.KindTabSwitch)
		}
	})

	t.Run("journal failure is an error", func(t *testing.T) {
		t.Parallel()

		wantErr := errors.New("database locked")
		step := NewJournalStep(&fakeJournal{err: wantErr})

		if err := step.Do(context.Background(), testEvent()); !errors.Is(err, wantErr) {
			t.Errorf("got %v, want wrapped %v", err, wantErr)
		}
	})

	t.Run("name", func(t *testing.T) {
		t.Parallel()

		if got := NewJournalStep(nil).Name(); got != "journal" {
			t.Errorf("name = %q, want 'journal'", got)
		}
	})
}

// TestLogStep tests the audit log step.
func TestLogStep(t *testing.T) {
	t.Parallel()

	t.Run("logs kind and session", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		step := NewLogStep(slog.New(slog.NewTextHandler(&buf, nil)))

		event := testEvent()
		if err := step.Do(context.Background(), event); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out := buf.String()
		if !strings.Contains(out, "event observed") {
			t.Errorf("audit line missing message: %s", out)
		}
		if !strings.Contains(out, string(model.KindTabSwitch)) {
			t.Errorf("audit line missing kind: %s", out)
		}
		if !strings.Contains(out, "session-1") {
			t.Errorf("audit line missing session: %s", out)
		}
	})

	t.Run("devtools events carry deltas", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		step := NewLogStep(slog.New(slog.NewTextHandler(&buf, nil)))

		event := model.NewEvent(model.KindDevtools, "Developer tools detected!")
		event.DeltaW = 320
		if err := step.Do(context.Background(), &event); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(buf.String(), "delta_w=320") {
			t.Errorf("audit line missing delta: %s", buf.String())
		}
	})

	t.Run("nil logger falls back to default", func(t *testing.T) {
		t.Parallel()

		step := NewLogStep(nil)
		if step.logger == nil {
			t.Error("logger not defaulted")
		}
	})

	t.Run("name", func(t *testing.T) {
		t.Parallel()

		if got := NewLogStep(nil).Name(); got != "event_log" {
			t.Errorf("name = %q, want 'event_log'", got)
		}
	})
}

// TestDefaultPipeline tests the standard pipeline assembly.
func TestDefaultPipeline(t *testing.T) {
	t.Parallel()

	t.Run("full wiring orders steps evidence, journal, log", func(t *testing.T) {
		t.Parallel()

		source := &fakeSnapshotter{evidence: model.NewEvidence("Exam", []byte("<html></html>"))}
		journal := &fakeJournal{}

		p := DefaultPipeline(source, journal, nil)

		names := p.StepNames()
		expected := []string{"evidence", "journal", "event_log"}
		if len(names) != len(expected) {
			t.Fatalf("expected %d steps, got %v", len(expected), names)
		}
		for i, name := range expected {
			if names[i] != name {
				t.Errorf("step %d = %q, want %q", i, names[i], name)
			}
		}
	})

	t.Run("nil source and journal leave only the log step", func(t *testing.T) {
		t.Parallel()

		p := DefaultPipeline(nil, nil, nil)

		names := p.StepNames()
		if len(names) != 1 || names[0] != "event_log" {
			t.Errorf("expected only event_log, got %v", names)
		}
	})

	t.Run("executes end to end", func(t *testing.T) {
		t.Parallel()

		source := &fakeSnapshotter{evidence: model.NewEvidence("Exam", []byte("<html></html>"))}
		journal := &fakeJournal{}
		logger := slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))

		p := DefaultPipeline(source, journal, []Option{
			WithLogger(logger),
			WithContinueOnError(true),
		})

		event := testEvent()
		if err := p.Execute(context.Background(), event); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if event.Evidence == nil {
			t.Error("evidence not attached")
		}
		if event.ID == 0 {
			t.Error("journal row ID not assigned")
		}
		if len(journal.events) != 1 {
			t.Errorf("journal received %d events, want 1", len(journal.events))
		}
		if journal.events[0].Evidence == nil {
			t.Error("journaled event should carry evidence captured earlier in the pipeline")
		}
	})

	t.Run("screenshot config reaches the evidence step", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		source := &fakeSnapshotter{
			evidence: model.NewEvidence("Exam", []byte("<html></html>")),
			png:      []byte("png"),
		}

		p := DefaultPipeline(source, nil, nil,
			WithPipelineEvidenceDir(dir),
			WithPipelineScreenshots(true),
		)

		event := testEvent()
		if err := p.Execute(context.Background(), event); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if event.Evidence.ScreenshotPath == "" {
			t.Error("screenshot not written through pipeline config")
		}
	})
}
