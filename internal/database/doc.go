// Package database provides SQLite-based storage for examwatch.
//
// This package implements the SessionDB, which stores:
//   - Watch session summaries with per-kind event counters
//   - The event journal, one row per observed event
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the journal is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
//
// Events are written row by row as they are observed, separately from the
// session summary. An interrupted watch therefore still leaves a complete
// event journal behind.
package database
