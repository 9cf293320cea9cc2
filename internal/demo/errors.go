package demo

import "errors"

// ErrServerRunning is returned when Start is called on a server that is
// already listening.
var ErrServerRunning = errors.New("demo server already running")
