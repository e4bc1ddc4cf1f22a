package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBodyTooLarge = errors.New("request entity too large")
)

// notLoggedIn is the message returned when a protected route has no session.
const notLoggedIn = "Not logged in"
