// Package smoke walks every route of a deployed location API once and
// checks the status codes.
package smoke

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/okian/locapi/pkg/logger"
)

type step struct {
	name     string
	method   string
	path     string
	body     any
	expected int
	skip     string
	onBody   func([]byte)
}

type runner struct {
	cfg    *Config
	client *HTTPClient
	log    logger.Logger
	report *Report

	locationID string
}

// Run executes the smoke sequence and stops at the first unexpected status.
// The report is returned even when the run fails.
func Run(ctx context.Context, cfg *Config) (*Report, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base url", ErrMissingConfig)
	}
	if cfg.Email == "" || cfg.Password == "" {
		return nil, fmt.Errorf("%w: email and password", ErrMissingConfig)
	}

	r := &runner{
		cfg:        cfg,
		client:     newHTTPClient(cfg.BaseURL, cfg.Timeout),
		log:        logger.Get().Named("smoke"),
		report:     &Report{StartTime: time.Now()},
		locationID: cfg.LocationID,
	}
	defer func() { r.report.EndTime = time.Now() }()

	r.log.Info(ctx, "starting smoke run", logger.String("baseURL", cfg.BaseURL))

	marker := "smoke-" + uuid.NewString()
	for _, build := range []func() step{
		r.probe,
		r.login,
		r.list,
		func() step { return r.create(marker) },
		r.get,
		func() step { return r.update(marker) },
		r.remove,
	} {
		if err := r.run(ctx, build()); err != nil {
			return r.report, err
		}
	}

	r.log.Info(ctx, "smoke run passed",
		logger.Int("passed", r.report.Passed()),
		logger.Int("skipped", r.report.Skipped()),
		logger.String("duration", time.Since(r.report.StartTime).String()))
	return r.report, nil
}

func (r *runner) run(ctx context.Context, s step) error {
	res := StepResult{Name: s.name, Method: s.method, Path: s.path, Expected: s.expected}
	if s.skip != "" {
		res.Skipped, res.Reason = true, s.skip
		r.report.Steps = append(r.report.Steps, res)
		r.log.Info(ctx, "step skipped", logger.String("step", s.name), logger.String("reason", s.skip))
		return nil
	}

	start := time.Now()
	status, body, err := r.client.Do(ctx, s.method, s.path, s.body)
	res.Duration = time.Since(start)
	res.Status = status
	r.report.Steps = append(r.report.Steps, res)
	if err != nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}

	fields := []logger.Field{
		logger.String("step", s.name),
		logger.Int("status", status),
		logger.String("duration", res.Duration.String()),
	}
	if r.cfg.Verbose {
		fields = append(fields, logger.String("body", string(body)))
	}
	if status != s.expected {
		r.log.Error(ctx, "step failed", append(fields, logger.String("body", string(body)))...)
		return fmt.Errorf("%w: %s %s returned %d, want %d", ErrUnexpectedStatus, s.method, s.path, status, s.expected)
	}
	r.log.Info(ctx, "step passed", fields...)
	if s.onBody != nil {
		s.onBody(body)
	}
	return nil
}

func (r *runner) probe() step {
	s := step{name: "probe", method: http.MethodGet, path: "/api/data", expected: http.StatusUnauthorized}
	if r.cfg.SkipProbe {
		s.skip = "disabled"
	}
	return s
}

func (r *runner) login() step {
	return step{
		name:     "login",
		method:   http.MethodPost,
		path:     "/login",
		body:     map[string]string{"email": r.cfg.Email, "password": r.cfg.Password},
		expected: http.StatusOK,
	}
}

func (r *runner) list() step {
	return step{name: "list", method: http.MethodGet, path: "/api/data", expected: http.StatusOK}
}

func (r *runner) create(marker string) step {
	return step{
		name:     "create",
		method:   http.MethodPost,
		path:     "/api/data",
		body:     map[string]any{"name": marker, "security": false},
		expected: http.StatusOK,
		onBody: func(body []byte) {
			if id := firstID(body); id != "" {
				r.locationID = id
			}
		},
	}
}

func (r *runner) get() step {
	s := step{name: "get", method: http.MethodGet, path: "/api/location/" + r.locationID, expected: http.StatusOK}
	if r.locationID == "" {
		s.skip = "no location id"
	}
	return s
}

func (r *runner) update(marker string) step {
	s := step{
		name:     "update",
		method:   http.MethodPut,
		path:     "/api/data/" + r.locationID,
		body:     map[string]any{"name": marker + "-updated"},
		expected: http.StatusOK,
	}
	if r.locationID == "" {
		s.skip = "no location id"
	}
	return s
}

func (r *runner) remove() step {
	s := step{
		name:     "delete",
		method:   http.MethodDelete,
		path:     "/api/location/" + r.cfg.DeleteRequestID,
		expected: http.StatusOK,
	}
	if r.cfg.DeleteRequestID == "" {
		s.skip = "no location request id"
	}
	return s
}

// firstID pulls the id of the first row out of a write result.
func firstID(body []byte) string {
	var rows []map[string]json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil || len(rows) == 0 {
		return ""
	}
	raw, ok := rows[0]["id"]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
