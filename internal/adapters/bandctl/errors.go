package bandctl

import "errors"

// Sentinel error kinds for this package.
var (
	// ErrCommandRejected reports a non-success status from the entity API.
	ErrCommandRejected = errors.New("capture command rejected")

	// ErrNoDeviceRegistry reports a device listing without a registry URL.
	ErrNoDeviceRegistry = errors.New("no device registry configured")
)
