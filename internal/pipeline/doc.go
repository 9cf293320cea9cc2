// Package pipeline provides a framework for processing observed events
// through a sequence of steps.
//
// Every event the monitor records passes through the same stages: evidence
// capture, journaling, and audit logging. Each stage is implemented as a
// Step that receives the event and can enrich it.
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because:
// 1. It allows easy addition/removal of steps without modifying core logic
// 2. It provides consistent error handling and logging across steps
// 3. It supports cancellation via context mid-event
// 4. It keeps the monitor ignorant of storage and evidence concerns
package pipeline
