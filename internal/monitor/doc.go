// Package monitor implements the proctoring state machine for one watched
// exam page. It owns the suspicious-event counter and the devtools suspicion
// flag, turns observations into events, and requests warning notices through
// a Presenter. It knows nothing about browsers; the browser package feeds it
// observations and renders its warnings.
package monitor
