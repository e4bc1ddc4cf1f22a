package supabase

import "errors"

// Sentinel kinds for client errors.
var (
	ErrNotConfigured  = errors.New("supabase client not configured")
	ErrRequest        = errors.New("supabase request failed")
	ErrSessionStorage = errors.New("session storage failed")
	ErrNoFilter       = errors.New("refusing to write without a filter")
)
