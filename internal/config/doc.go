// Package config provides configuration structures and utilities for examwatch.
// It defines the main options for watching an exam page, detection thresholds,
// warning messages, and report generation preferences.
package config
