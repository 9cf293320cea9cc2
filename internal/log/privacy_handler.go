package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// identityKeys contains attribute keys that should always be masked.
// Proctoring logs are shared with graders and may be archived alongside
// grade appeals, so student identifiers must never appear in them.
var identityKeys = map[string]bool{
	// Student identity
	"student":        true,
	"student_id":     true,
	"student_name":   true,
	"student_email":  true,
	"candidate":      true,
	"candidate_id":   true,
	"candidate_name": true,
	"matriculation":  true,
	"enrollment_id":  true,

	// Contact details
	"email":   true,
	"phone":   true,
	"address": true,

	// Exam platform credentials
	"password":     true,
	"passwd":       true,
	"secret":       true,
	"token":        true,
	"api_key":      true,
	"apikey":       true,
	"api-key":      true,
	"access_token": true,
	"exam_token":   true,

	// HTTP headers
	"authorization": true,
	"cookie":        true,
	"set-cookie":    true,
	"x-api-key":     true,
	"x-auth-token":  true,
}

// identityPatterns contains regex patterns that indicate identifying values.
// Values matching these patterns will be masked regardless of key name.
var identityPatterns = []*regexp.Regexp{
	// Email addresses (the most common student identifier in exam URLs)
	regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`),

	// JWT tokens (exam platform session tokens)
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),

	// Bearer tokens
	regexp.MustCompile(`(?i)^bearer\s+.+`),

	// Basic auth
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),
}

// MaskValue is the string used to replace masked values.
const MaskValue = "***REDACTED***"

// PrivacyHandler wraps an slog.Handler to mask student-identifying information.
// It intercepts log records and masks attribute values that match identifying
// key names or value patterns before passing them to the underlying handler.
//
// Design decision: We use a handler wrapper rather than a custom logger
// because:
//  1. It integrates seamlessly with standard slog APIs
//  2. It works with any underlying handler (text, JSON, etc.)
//  3. Masking happens in one place regardless of which package logs
type PrivacyHandler struct {
	// handler is the underlying slog handler that receives masked records.
	handler slog.Handler
}

// NewPrivacyHandler creates a new PrivacyHandler wrapping the given handler.
// All log attributes will be masked before being passed to the underlying handler.
// If handler is nil, the returned PrivacyHandler will use slog.Default().Handler().
func NewPrivacyHandler(handler slog.Handler) *PrivacyHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &PrivacyHandler{handler: handler}
}

// Enabled reports whether the handler handles records at the given level.
// It delegates to the underlying handler.
func (h *PrivacyHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle masks the record's attributes and passes it to the underlying handler.
func (h *PrivacyHandler) Handle(ctx context.Context, r slog.Record) error {
	// Create a new record with masked attributes
	masked := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)

	// Mask each attribute
	r.Attrs(func(a slog.Attr) bool {
		masked.AddAttrs(h.maskAttr(a))
		return true
	})

	return h.handler.Handle(ctx, masked)
}

// WithAttrs returns a new handler with the given attributes added.
// Attributes are masked before being added.
func (h *PrivacyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	maskedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		maskedAttrs[i] = h.maskAttr(a)
	}
	return &PrivacyHandler{handler: h.handler.WithAttrs(maskedAttrs)}
}

// WithGroup returns a new handler with the given group name.
func (h *PrivacyHandler) WithGroup(name string) slog.Handler {
	return &PrivacyHandler{handler: h.handler.WithGroup(name)}
}

// maskAttr masks a single attribute, recursively handling groups.
func (h *PrivacyHandler) maskAttr(a slog.Attr) slog.Attr {
	// Handle groups recursively
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		maskedAttrs := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			maskedAttrs[i] = h.maskAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(maskedAttrs...)}
	}

	// Check if the key indicates identifying data
	keyLower := strings.ToLower(a.Key)
	if identityKeys[keyLower] || containsIdentityKeyword(keyLower) {
		return slog.String(a.Key, MaskValue)
	}

	// Check if the value matches identifying patterns
	if a.Value.Kind() == slog.KindString {
		strVal := a.Value.String()
		if isIdentifyingValue(strVal) {
			return slog.String(a.Key, MaskValue)
		}
	}

	return a
}

// containsIdentityKeyword checks if the key contains identifying keywords.
// Note: We intentionally exclude the bare "id" keyword as it causes false
// positives (e.g., "session_id", "event_id" are examwatch's own identifiers,
// not student data). Specific identity keys are covered by the identityKeys map.
func containsIdentityKeyword(key string) bool {
	identityKeywords := []string{
		"password", "passwd", "secret", "token", "auth",
		"credential", "student", "candidate", "email",
	}

	for _, keyword := range identityKeywords {
		if strings.Contains(key, keyword) {
			return true
		}
	}
	return false
}

// isIdentifyingValue checks if a value matches identifying patterns.
func isIdentifyingValue(value string) bool {
	for _, pattern := range identityPatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// NewPrivacyLogger creates a new slog.Logger with identity masking.
// The logger masks student-identifying information in all log output.
//
// Parameters:
//   - w: The io.Writer to write log output to (typically os.Stderr)
//   - verbose: If true, sets log level to Debug; otherwise Warn
//
// Returns a *slog.Logger that can be used with slog.SetDefault() or passed
// to components that accept *slog.Logger.
func NewPrivacyLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	textHandler := slog.NewTextHandler(w, opts)
	privacyHandler := NewPrivacyHandler(textHandler)

	return slog.New(privacyHandler)
}

// NewPrivacyJSONLogger creates a new slog.Logger with identity masking
// that outputs JSON format. Useful for structured log aggregation.
//
// Parameters:
//   - w: The io.Writer to write log output to
//   - verbose: If true, sets log level to Debug; otherwise Warn
//
// Returns a *slog.Logger configured for JSON output with masking.
func NewPrivacyJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	jsonHandler := slog.NewJSONHandler(w, opts)
	privacyHandler := NewPrivacyHandler(jsonHandler)

	return slog.New(privacyHandler)
}
