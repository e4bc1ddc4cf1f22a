package smoke

import "time"

// Config holds configuration for a smoke run.
type Config struct {
	BaseURL         string        // Base URL of the deployed API, including any function prefix
	Email           string        // Account used for POST /login
	Password        string        // Password for Email
	LocationID      string        // Existing location to read and update when the create returns no row
	DeleteRequestID string        // Location request to delete; the delete step is skipped when empty
	SkipProbe       bool          // Skip the unauthenticated probe (another caller may already be signed in)
	Timeout         time.Duration // Per-request timeout
	Verbose         bool          // Log response bodies
}

// StepResult is the outcome of one request.
type StepResult struct {
	Name     string
	Method   string
	Path     string
	Status   int
	Expected int
	Duration time.Duration
	Skipped  bool
	Reason   string
}

// Report summarizes a run.
type Report struct {
	Steps     []StepResult
	StartTime time.Time
	EndTime   time.Time
}

// Passed counts the steps that ran and returned the expected status.
func (r *Report) Passed() int {
	n := 0
	for _, s := range r.Steps {
		if !s.Skipped && s.Status == s.Expected {
			n++
		}
	}
	return n
}

// Skipped counts steps that were not run.
func (r *Report) Skipped() int {
	n := 0
	for _, s := range r.Steps {
		if s.Skipped {
			n++
		}
	}
	return n
}
