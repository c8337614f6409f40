package freeplay

import "errors"

// Sentinel error kinds for this package.
var (
	ErrSessionActive = errors.New("a capture session is already running")
	ErrNoSession     = errors.New("no capture session is running")
	ErrNoBands       = errors.New("at least one wristband is required")
	ErrInvalidAxes   = errors.New("invalid axis selection")
)
