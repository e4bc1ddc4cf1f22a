// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/okian/locapi/internal/domain/model"
	"github.com/okian/locapi/pkg/logger"
	"github.com/okian/locapi/pkg/metrics"
)

// ErrNotConfigured is returned when an operation needs a dependency that was
// never supplied.
var ErrNotConfigured = errors.New("service dependency not configured")

// Authenticator signs users in and reports the current session.
type Authenticator interface {
	SignInWithPassword(ctx context.Context, creds model.Credentials) (*model.AuthResponse, error)
	GetSession(ctx context.Context) (*model.Session, error)
}

// Store reads and writes rows of the hosted tables.
type Store interface {
	Select(ctx context.Context, table string, filters ...model.Filter) ([]model.Record, error)
	Insert(ctx context.Context, table string, rec model.Record) ([]model.Record, error)
	Update(ctx context.Context, table string, rec model.Record, filters ...model.Filter) ([]model.Record, error)
	Delete(ctx context.Context, table string, filters ...model.Filter) ([]model.Record, error)
}

// Service implements the API dependencies for location management.
type Service struct {
	auth   Authenticator
	store  Store
	logger logger.Logger

	startedAt time.Time

	logins         atomic.Int64
	loginFailures  atomic.Int64
	upstreamCalls  atomic.Int64
	upstreamErrors atomic.Int64
	overrides      atomic.Int64
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithAuth sets the authenticator used for sign-in and session lookups.
func WithAuth(a Authenticator) Option {
	return func(s *Service) {
		if a != nil {
			s.auth = a
		}
	}
}

// WithStore sets the table store.
func WithStore(st Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service.
func New(opts ...Option) *Service {
	s := &Service{startedAt: time.Now()}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Nop()
	}
	return s
}

// Login signs in with email and password.
func (s *Service) Login(ctx context.Context, creds model.Credentials) (*model.AuthResponse, error) {
	if s.auth == nil {
		return nil, ErrNotConfigured
	}
	res, err := s.auth.SignInWithPassword(ctx, creds)
	if err != nil {
		s.loginFailures.Add(1)
		metrics.RecordLogin(metrics.OutcomeError)
		s.logger.Warn(ctx, "sign-in failed", logger.String("email", creds.Email), logger.Error(err))
		return nil, err
	}
	s.logins.Add(1)
	metrics.RecordLogin(metrics.OutcomeOK)
	return res, nil
}

// Session returns the active session or nil.
func (s *Service) Session(ctx context.Context) (*model.Session, error) {
	if s.auth == nil {
		return nil, ErrNotConfigured
	}
	sess, err := s.auth.GetSession(ctx)
	switch {
	case err != nil:
		metrics.RecordSessionCheck(metrics.SessionError)
	case sess == nil:
		metrics.RecordSessionCheck(metrics.SessionMissing)
	default:
		metrics.RecordSessionCheck(metrics.SessionActive)
	}
	return sess, err
}

// ListLocationRequests returns every pending location request.
func (s *Service) ListLocationRequests(ctx context.Context) ([]model.Record, error) {
	return s.call(ctx, "select", model.TableLocationRequests, func(st Store) ([]model.Record, error) {
		return st.Select(ctx, model.TableLocationRequests)
	})
}

// CreateLocation inserts a location stamped with the session's reviewer.
func (s *Service) CreateLocation(ctx context.Context, sess *model.Session, rec model.Record) ([]model.Record, error) {
	clean := s.sanitize(ctx, model.WriteInsert, rec, sess)
	return s.call(ctx, "insert", model.TableLocation, func(st Store) ([]model.Record, error) {
		return st.Insert(ctx, model.TableLocation, clean)
	})
}

// UpdateLocation updates the location with the given id. The id and latlon
// fields of rec are ignored.
func (s *Service) UpdateLocation(ctx context.Context, sess *model.Session, id string, rec model.Record) ([]model.Record, error) {
	clean := s.sanitize(ctx, model.WriteUpdate, rec, sess)
	return s.call(ctx, "update", model.TableLocation, func(st Store) ([]model.Record, error) {
		return st.Update(ctx, model.TableLocation, clean, model.Eq(model.FieldID, id))
	})
}

// GetLocation returns the first location with the given id, or nil.
func (s *Service) GetLocation(ctx context.Context, id string) (model.Record, error) {
	rows, err := s.call(ctx, "select", model.TableLocation, func(st Store) ([]model.Record, error) {
		return st.Select(ctx, model.TableLocation, model.Eq(model.FieldID, id))
	})
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// DeleteLocationRequest removes the location request with the given id.
func (s *Service) DeleteLocationRequest(ctx context.Context, id string) ([]model.Record, error) {
	return s.call(ctx, "delete", model.TableLocationRequests, func(st Store) ([]model.Record, error) {
		return st.Delete(ctx, model.TableLocationRequests, model.Eq(model.FieldID, id))
	})
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"uptimeSeconds":  int64(time.Since(s.startedAt).Seconds()),
		"logins":         s.logins.Load(),
		"loginFailures":  s.loginFailures.Load(),
		"upstreamCalls":  s.upstreamCalls.Load(),
		"upstreamErrors": s.upstreamErrors.Load(),
		"fieldOverrides": s.overrides.Load(),
		"authConfigured": s.auth != nil,
		"storeAttached":  s.store != nil,
	}
}

func (s *Service) sanitize(ctx context.Context, kind model.WriteKind, rec model.Record, sess *model.Session) model.Record {
	clean, overrides := model.Sanitize(kind, rec, sess)
	for _, o := range overrides {
		s.overrides.Add(1)
		metrics.RecordSanitizedField(o.Field)
		s.logger.Debug(ctx, "field overridden", logger.String("field", o.Field))
	}
	return clean
}

// call runs one store operation and records its outcome.
func (s *Service) call(ctx context.Context, op, table string, fn func(Store) ([]model.Record, error)) ([]model.Record, error) {
	if s.store == nil {
		return nil, ErrNotConfigured
	}
	start := time.Now()
	rows, err := fn(s.store)
	latency := float64(time.Since(start).Nanoseconds()) / 1e6

	s.upstreamCalls.Add(1)
	if err != nil {
		s.upstreamErrors.Add(1)
		metrics.RecordUpstreamCall(op, table, metrics.OutcomeError, latency)
		s.logger.Error(ctx, "store call failed",
			logger.String("operation", op),
			logger.String("table", table),
			logger.Error(err),
		)
		return nil, err
	}
	metrics.RecordUpstreamCall(op, table, metrics.OutcomeOK, latency)
	return rows, nil
}
