package ledger

import "errors"

// Sentinel error kinds for this package.
var (
	ErrInvalidLink       = errors.New("invalid link")
	ErrBandAlreadyLinked = errors.New("wristband already linked")
	ErrBandNotLinked     = errors.New("wristband not linked")
	ErrUnknownIdentity   = errors.New("unknown identity")
	ErrInvalidCredit     = errors.New("invalid credit")
)
