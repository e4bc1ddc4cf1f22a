package smoke

import "errors"

// Sentinel kinds for smoke failures.
var (
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrMissingConfig    = errors.New("missing configuration")
)
