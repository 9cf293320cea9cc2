// Package browser drives a Chrome or Chromium browser over the DevTools
// protocol. It launches a local browser or attaches to a running one, opens
// the exam page in a tab, injects the sentinel script that observes tab
// switches and focus losses, renders warning notices, and samples window
// geometry for the devtools heuristic.
//
// The Page type satisfies the monitor package's Presenter and ViewportSource
// interfaces, so the detection logic never touches the DevTools protocol
// directly.
package browser
