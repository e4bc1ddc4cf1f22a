// Package postgres reads and writes tables over a direct pgx connection
// instead of the hosted REST endpoint.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/okian/locapi/internal/domain/model"
	"github.com/okian/locapi/pkg/logger"
)

// querier is the subset of *pgxpool.Pool the store uses.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store implements table access on a pgx pool.
type Store struct {
	db         querier
	pool       *pgxpool.Pool
	returnRows bool
	timeout    time.Duration
	logger     logger.Logger
}

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithReturnRows makes writes return the affected rows.
func WithReturnRows(enabled bool) Option {
	return func(s *Store) {
		s.returnRows = enabled
	}
}

// WithTimeout caps every statement. Zero disables the cap.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d >= 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New opens a pool on databaseURL and checks it with a ping.
func New(ctx context.Context, databaseURL string, opts ...Option) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := newStore(pool, opts...)
	s.pool = pool
	return s, nil
}

func newStore(db querier, opts ...Option) *Store {
	s := &Store{db: db, logger: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close releases the pool.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// Select returns every column of the rows matching all filters.
func (s *Store) Select(ctx context.Context, table string, filters ...model.Filter) ([]model.Record, error) {
	sql, args := buildSelect(table, filters)
	rows, err := s.query(ctx, sql, args)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []model.Record{}
	}
	return rows, nil
}

// Insert writes one row.
func (s *Store) Insert(ctx context.Context, table string, rec model.Record) ([]model.Record, error) {
	sql, args := buildInsert(table, rec, s.returnRows)
	return s.write(ctx, sql, args)
}

// Update applies rec to the rows matching all filters.
func (s *Store) Update(ctx context.Context, table string, rec model.Record, filters ...model.Filter) ([]model.Record, error) {
	if len(filters) == 0 {
		return nil, ErrNoFilter
	}
	sql, args, err := buildUpdate(table, rec, filters, s.returnRows)
	if err != nil {
		return nil, err
	}
	return s.write(ctx, sql, args)
}

// Delete removes the rows matching all filters.
func (s *Store) Delete(ctx context.Context, table string, filters ...model.Filter) ([]model.Record, error) {
	if len(filters) == 0 {
		return nil, ErrNoFilter
	}
	sql, args := buildDelete(table, filters, s.returnRows)
	return s.write(ctx, sql, args)
}

func (s *Store) write(ctx context.Context, sql string, args []any) ([]model.Record, error) {
	if s.returnRows {
		return s.query(ctx, sql, args)
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	tag, err := s.db.Exec(ctx, sql, args...)
	if err != nil {
		return nil, translate(err)
	}
	s.logger.Debug(ctx, "statement executed",
		logger.String("command", tag.String()),
		logger.Int("rows", int(tag.RowsAffected())),
	)
	return nil, nil
}

func (s *Store) query(ctx context.Context, sql string, args []any) ([]model.Record, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, translate(err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, translate(err)
	}
	out := make([]model.Record, len(maps))
	for i, m := range maps {
		out[i] = normalizeRow(m)
	}
	return out, nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return ctx, func() {}
}

// translate turns server errors into *model.UpstreamError so the HTTP layer
// reports them the same way as REST errors.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	return &model.UpstreamError{
		Status:  statusForSQLState(pgErr.Code),
		Code:    pgErr.Code,
		Message: pgErr.Message,
		Details: pgErr.Detail,
		Hint:    pgErr.Hint,
	}
}

func statusForSQLState(code string) int {
	switch {
	case code == "23505":
		return http.StatusConflict
	case code == "42P01":
		return http.StatusNotFound
	case code == "42501":
		return http.StatusForbidden
	case len(code) >= 2 && (code[:2] == "22" || code[:2] == "23" || code[:2] == "42"):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
