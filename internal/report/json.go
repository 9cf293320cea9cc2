package report

import (
	"encoding/json"
	"io"

	"github.com/examwatch/examwatch/internal/model"
)

// JSONWriter outputs reports in JSON format.
// This format is designed for tool integration and programmatic processing.
//
// Design decision: We use standard encoding/json rather than a third-party
// JSON library because:
// 1. It's part of the standard library (no extra dependencies)
// 2. It's sufficient for our needs
// 3. It provides consistent behavior across Go versions
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = ""
		w.indentString = "  "
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter:   newBaseWriter(output),
		indent:       false,
		indentPrefix: "",
		indentString: "",
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write builds a report from the session and outputs it in JSON format.
func (w *JSONWriter) Write(session *model.Session) (int, error) {
	return w.writeJSON(model.NewSessionReport(session))
}

// WriteReport outputs the report in JSON format.
func (w *JSONWriter) WriteReport(report *model.SessionReport) (int, error) {
	return w.writeJSON(report)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}

// JSONReport is a wrapper that carries the raw session alongside the
// summarized report, plus output metadata.
//
// Design decision: We wrap the report rather than modifying SessionReport
// because this allows us to add output-specific fields without polluting
// the core data structure.
type JSONReport struct {
	// Version is the examwatch version that generated this report.
	Version string `json:"version"`

	// Session is the raw session with its full event journal.
	Session *model.Session `json:"session"`

	// Report is the summarized report for quick access.
	Report *model.SessionReport `json:"report"`
}

// NewJSONReport creates a JSONReport wrapper with version information.
func NewJSONReport(session *model.Session, version string) *JSONReport {
	return &JSONReport{
		Version: version,
		Session: session,
		Report:  model.NewSessionReport(session),
	}
}

// FullJSONWriter outputs complete sessions with metadata wrapper.
type FullJSONWriter struct {
	*JSONWriter

	// version is the examwatch version string.
	version string
}

// NewFullJSONWriter creates a writer for complete sessions with metadata.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs the session and its report wrapped with metadata.
func (w *FullJSONWriter) Write(session *model.Session) (int, error) {
	return w.writeJSON(NewJSONReport(session, w.version))
}
