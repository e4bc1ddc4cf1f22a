package postgres

import "errors"

// Sentinel errors for statements the store refuses to run.
var (
	ErrNoFilter  = errors.New("refusing to write without a filter")
	ErrNoColumns = errors.New("no columns to update")
)
