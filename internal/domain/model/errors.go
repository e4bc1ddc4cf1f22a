package model

import (
	"errors"
	"fmt"
)

// UpstreamError is an error reported by the hosted backend.
type UpstreamError struct {
	Status  int    `json:"-"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return fmt.Sprintf("upstream error %s", e.Code)
	}
	return fmt.Sprintf("upstream error (status %d)", e.Status)
}

// AsUpstream reports whether err carries an UpstreamError.
func AsUpstream(err error) (*UpstreamError, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}
