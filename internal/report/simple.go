package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/examwatch/examwatch/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with severity indicators
// and clear section formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no events are shown.
	showEmpty bool

	// verbose enables additional detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showEmpty:  false,
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write builds a report from the session and outputs it in
// human-readable format.
func (w *SimpleWriter) Write(session *model.Session) (int, error) {
	return w.WriteReport(model.NewSessionReport(session))
}

// WriteReport outputs the report in human-readable format.
func (w *SimpleWriter) WriteReport(report *model.SessionReport) (int, error) {
	var sb strings.Builder

	// Header
	w.writeHeader(&sb, report)

	// Summary
	w.writeSummary(&sb, report)

	// Event timeline
	w.writeTimeline(&sb, report)

	// Footer
	w.writeFooter(&sb, report)

	// Write to output
	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with session information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.SessionReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                       EXAMWATCH SESSION REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Target URL:  %s\n", report.TargetURL))
	if report.PageTitle != "" {
		sb.WriteString(fmt.Sprintf("Page Title:  %s\n", report.PageTitle))
	}
	sb.WriteString(fmt.Sprintf("Session ID:  %s\n", report.SessionID))
	sb.WriteString(fmt.Sprintf("Started:     %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Duration:    %s\n", formatOffset(report.DurationSeconds)))

	switch {
	case report.Error != "":
		sb.WriteString(fmt.Sprintf("Status:      ERROR - %s\n", report.Error))
	case report.Interrupted:
		sb.WriteString("Status:      INTERRUPTED (partial results)\n")
	case report.EndedAt.IsZero():
		sb.WriteString("Status:      In progress\n")
	default:
		sb.WriteString("Status:      Complete\n")
	}

	sb.WriteString("\n")
}

// writeSummary writes the suspicion summary section.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.SessionReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SUSPICION SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  SUSPICIOUS EVENTS:  %d  (tab switches + focus losses)\n", report.SuspiciousEvents))
	sb.WriteString(fmt.Sprintf("  Tab switches:       %d\n", report.TabSwitches))
	sb.WriteString(fmt.Sprintf("  Focus losses:       %d\n", report.FocusLosses))
	sb.WriteString(fmt.Sprintf("  Devtools suspected: %d  (not counted above)\n", report.DevtoolsDetections))
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("  ALERT:    %d\n", report.AlertCount))
	sb.WriteString(fmt.Sprintf("  WARNING:  %d\n", report.WarningCount))
	sb.WriteString(fmt.Sprintf("  INFO:     %d\n", report.InfoCount))
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("  TOTAL:    %d findings\n", report.TotalFindings()))
	sb.WriteString("\n")
}

// writeTimeline writes every finding in order of occurrence.
func (w *SimpleWriter) writeTimeline(sb *strings.Builder, report *model.SessionReport) {
	if !report.HasFindings() && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("EVENT TIMELINE\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if !report.HasFindings() {
		sb.WriteString("  No suspicious events recorded\n\n")
		return
	}

	for _, finding := range report.Findings {
		indicator := w.getSeverityIndicator(finding.Severity)
		sb.WriteString(fmt.Sprintf("  [%s] +%s  %s\n",
			indicator, formatOffset(finding.OffsetSeconds), finding.Title))
		if finding.Message != "" {
			sb.WriteString(fmt.Sprintf("      Message: %s\n", finding.Message))
		}
		if finding.Kind == model.KindDevtools {
			sb.WriteString(fmt.Sprintf("      Window delta: %dx%d px\n", finding.DeltaW, finding.DeltaH))
		}
		if w.verbose {
			if finding.EvidenceHash != "" {
				sb.WriteString(fmt.Sprintf("      Evidence: %s\n", finding.EvidenceHash))
			}
			if finding.Guidance != "" {
				sb.WriteString(fmt.Sprintf("      Guidance: %s\n", finding.Guidance))
			}
		}
	}
	sb.WriteString("\n")
}

// getSeverityIndicator returns a visual indicator for the severity level.
func (w *SimpleWriter) getSeverityIndicator(severity model.Severity) string {
	switch severity {
	case model.SeverityAlert:
		return "!!"
	case model.SeverityWarning:
		return "!"
	case model.SeverityInfo:
		return "i"
	default:
		return "?"
	}
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder, _ *model.SessionReport) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by examwatch\n")
	sb.WriteString("https://github.com/examwatch/examwatch\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

// formatOffset renders a whole-second offset the way Go renders durations,
// e.g. 131 becomes "2m11s".
func formatOffset(seconds int) string {
	return (time.Duration(seconds) * time.Second).String()
}
