package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/examwatch/examwatch/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for archiving and sharing with graders.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write builds a report from the session and outputs it in Markdown format.
func (w *MarkdownWriter) Write(session *model.Session) (int, error) {
	return w.WriteReport(model.NewSessionReport(session))
}

// WriteReport outputs the report in Markdown format.
func (w *MarkdownWriter) WriteReport(report *model.SessionReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	// Header
	w.writeHeader(md, report)

	// Summary
	w.writeSummary(md, report)

	// Event timeline
	w.writeTimeline(md, report)

	// Review guidance
	w.writeGuidance(md, report)

	// Footer
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with session information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.SessionReport) {
	md.H1("Exam Watch Report")
	md.PlainText("")

	// Basic info table
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Target URL", "`" + report.TargetURL + "`"},
			{"Page Title", report.PageTitle},
			{"Session ID", "`" + report.SessionID + "`"},
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", formatOffset(report.DurationSeconds)},
			{"Status", w.getStatusText(report)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.SessionReport) string {
	if report.Error != "" {
		return "❌ Error - " + report.Error
	}
	if report.Interrupted {
		return "⚠️ Interrupted (partial results)"
	}
	if report.EndedAt.IsZero() {
		return "⏳ In Progress"
	}
	return "✅ Complete"
}

// writeSummary writes the suspicion summary section.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.SessionReport) {
	md.H2("Suspicion Summary")
	md.PlainText("")

	// Counter table. The suspicious total deliberately excludes devtools
	// detections, matching the count the page itself exposes.
	md.Table(markdown.TableSet{
		Header: []string{"Observation", "Count"},
		Rows: [][]string{
			{severityEmoji(model.SeverityWarning) + " Tab Switches", strconv.Itoa(report.TabSwitches)},
			{severityEmoji(model.SeverityWarning) + " Focus Losses", strconv.Itoa(report.FocusLosses)},
			{severityEmoji(model.SeverityAlert) + " Devtools Detections", strconv.Itoa(report.DevtoolsDetections)},
			{"**Suspicious Events**", "**" + strconv.Itoa(report.SuspiciousEvents) + "**"},
		},
	})
	md.PlainText("")

	// Add pie chart if there are findings
	if report.HasFindings() {
		w.writePieChart(md, report)
	}

	// Add alert based on what was observed
	w.writeAlert(md, report)
}

// writePieChart writes a mermaid pie chart for event kind distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.SessionReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Event Kind Distribution"),
		piechart.WithShowData(true),
	)

	for _, kind := range reportKinds {
		count := len(report.FindingsByKind(kind))
		if count == 0 {
			continue
		}
		chart.LabelAndIntValue(model.GetKindInfo(kind).Title, uint64(count))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on what the session recorded.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.SessionReport) {
	switch {
	case report.AlertCount > 0:
		md.Cautionf(
			"Developer tools were suspected %d time(s). Verify with the candidate before acting on this heuristic.",
			report.AlertCount,
		)
	case report.SuspiciousEvents > 0:
		md.Warningf(
			"%d suspicious event(s) recorded. Review the timeline for clusters.",
			report.SuspiciousEvents,
		)
	case report.TotalFindings() > 0:
		md.Note("Only informational events were recorded.")
	default:
		md.Tip("No suspicious events were recorded during this session.")
	}
	md.PlainText("")
}

// writeTimeline writes every finding in order of occurrence.
func (w *MarkdownWriter) writeTimeline(md *markdown.Markdown, report *model.SessionReport) {
	md.H2("Event Timeline")
	md.PlainText("")

	if !report.HasFindings() {
		md.PlainText("No suspicious events recorded.")
		md.PlainText("")
		return
	}

	headers := []string{"Offset", "Event", "Severity", "Details", "Evidence"}

	rows := make([][]string, len(report.Findings))
	for i, f := range report.Findings {
		details := f.Message
		if f.Kind == model.KindDevtools {
			details = fmt.Sprintf("%s (window delta %dx%d px)", details, f.DeltaW, f.DeltaH)
		}
		if details == "" {
			details = "-"
		}
		evidence := "-"
		if f.EvidenceHash != "" {
			evidence = "`" + truncateString(f.EvidenceHash, 12) + "`"
		}

		rows[i] = []string{
			"+" + formatOffset(f.OffsetSeconds),
			severityEmoji(f.Severity) + " " + f.Title,
			f.SeverityText,
			truncateString(details, 60),
			evidence,
		}
	}

	md.Table(markdown.TableSet{
		Header: headers,
		Rows:   rows,
	})
	md.PlainText("")
}

// writeGuidance writes review guidance for every event kind the session hit.
func (w *MarkdownWriter) writeGuidance(md *markdown.Markdown, report *model.SessionReport) {
	if !report.HasFindings() {
		return
	}

	md.H2("Review Guidance")
	md.PlainText("")

	for _, kind := range reportKinds {
		findings := report.FindingsByKind(kind)
		if len(findings) == 0 {
			continue
		}

		info := model.GetKindInfo(kind)
		md.PlainTextf("### %s %s (%d)", severityEmoji(info.Severity), info.Title, len(findings))
		md.PlainText("")
		md.PlainText(info.Impact)
		md.PlainText("")
		md.Details("How to review", info.Guidance)
	}
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [examwatch](https://github.com/examwatch/examwatch)*")
}

// reportKinds orders event kinds for summary sections, most severe first.
var reportKinds = []model.EventKind{
	model.KindDevtools,
	model.KindTabSwitch,
	model.KindFocusLoss,
}

// severityEmoji returns a colored dot for the severity level.
func severityEmoji(severity model.Severity) string {
	switch severity {
	case model.SeverityAlert:
		return "🔴"
	case model.SeverityWarning:
		return "🟡"
	default:
		return "⚪"
	}
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
