// Package main provides the entry point for the examwatch CLI.
//
// Examwatch is a proctoring aid for browser-based exams. It drives a Chrome
// or Chromium tab over the DevTools protocol, counts tab switches and focus
// losses, warns the candidate on the exam page itself, and journals every
// observation for review.
//
// Usage:
//
//	examwatch watch <exam-page-url>
//	examwatch watch --attach http://127.0.0.1:9222 <exam-page-url>
//	examwatch demo
//
// See --help for all available options.
package main

// main is the entry point for examwatch.
func main() {
	Execute()
}
