package matchstore

import "errors"

// Sentinel error kinds for this package.
var (
	// ErrMatchInProgress rejects creation while a match is still running.
	// The caller must wait for the current match to reach a terminal phase.
	ErrMatchInProgress = errors.New("a match is already in progress")

	// ErrNoMatch signals a patch against an empty store.
	ErrNoMatch = errors.New("no match record exists")

	// ErrRoundRegression guards the forward-only round index invariant.
	ErrRoundRegression = errors.New("round index may only advance")
)
