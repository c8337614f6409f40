package telemetry

import "errors"

// Sentinel error kinds for this package.
var (
	// ErrReadFailed reports a readout where no axis could be fetched.
	ErrReadFailed = errors.New("score readout failed")
)
