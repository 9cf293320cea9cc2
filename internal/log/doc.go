// Package log provides privacy-aware logging with automatic masking of
// student-identifying information, built on top of the standard slog package.
//
// This package extends slog to provide:
//   - Automatic masking of identifying values (student IDs, names, emails)
//   - Configurable log levels with verbose mode support
//   - Consistent log formatting across the application
//
// # Privacy Features
//
// The PrivacyHandler automatically masks identifying information in log output:
//   - Student and candidate identifiers (IDs, names, matriculation numbers)
//   - Email addresses detected by pattern matching, regardless of key
//   - Exam platform credentials (tokens, cookies, Authorization headers)
//
// Even in verbose mode, identifying values are masked. Proctoring logs are
// routinely attached to grading records and appeals, so they must be safe
// to share as written.
//
// # Usage
//
//	// Create a privacy-aware logger
//	logger := log.NewPrivacyLogger(os.Stderr, true) // verbose=true
//
//	// Use as a standard slog.Logger
//	logger.Info("session started",
//	    "candidate", "Jordan Miller",  // Will be masked to "***REDACTED***"
//	    "url", "https://exam.example.edu",
//	)
//
//	// Set as default logger
//	slog.SetDefault(logger)
package log
