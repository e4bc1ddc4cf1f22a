// Package bootstrap builds the service graph from configuration. Both the
// HTTP server and the function entrypoint start from here.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/locapi/internal/adapters/http/api"
	"github.com/okian/locapi/internal/adapters/postgres"
	"github.com/okian/locapi/internal/adapters/supabase"
	service "github.com/okian/locapi/internal/app"
	"github.com/okian/locapi/internal/config"
	"github.com/okian/locapi/pkg/logger"
)

// App is the wired service graph.
type App struct {
	Service *service.Service
	API     *api.Server

	closers []func() error
}

// Build wires the client, store, session storage, service and API server.
// Call Close when done.
func Build(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	a := &App{}
	timeout := time.Duration(cfg.UpstreamTimeoutMS) * time.Millisecond

	sessions, err := a.sessionStore(ctx, cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	client := supabase.New(cfg.SupabaseURL, cfg.SupabaseKey,
		supabase.WithSessionStore(sessions),
		supabase.WithTimeout(timeout),
		supabase.WithReturnRows(cfg.ReturnRows),
		supabase.WithLogger(log.Named("supabase")),
	)

	var store service.Store = client
	if cfg.StoreBackend == config.BackendPostgres {
		pg, err := postgres.New(ctx, cfg.DatabaseURL,
			postgres.WithReturnRows(cfg.ReturnRows),
			postgres.WithTimeout(timeout),
			postgres.WithLogger(log.Named("postgres")),
		)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("postgres store: %w", err)
		}
		a.closers = append(a.closers, pg.Close)
		store = pg
	}

	a.Service = service.New(
		service.WithAuth(client),
		service.WithStore(store),
		service.WithLogger(log.Named("service")),
	)
	a.API = api.NewServer(a.Service, a.Service,
		api.WithRoutePrefix(cfg.RoutePrefix),
		api.WithMaxBodyBytes(cfg.MaxBodyBytes),
		api.WithLogger(log.Named("api")),
	)

	log.Info(ctx, "service graph built",
		logger.String("store", cfg.StoreBackend),
		logger.String("sessions", cfg.SessionStore),
		logger.String("routePrefix", cfg.RoutePrefix),
		logger.Bool("returnRows", cfg.ReturnRows),
		logger.Bool("supabaseConfigured", cfg.SupabaseURL != ""),
	)
	return a, nil
}

func (a *App) sessionStore(ctx context.Context, cfg *config.Config) (supabase.SessionStore, error) {
	if cfg.SessionStore != config.SessionRedis {
		return supabase.NewMemoryStore(), nil
	}
	rs, err := supabase.NewRedisStoreFromURL(cfg.RedisURL, time.Duration(cfg.SessionTTLSeconds)*time.Second)
	if err != nil {
		return nil, fmt.Errorf("redis session store: %w", err)
	}
	a.closers = append(a.closers, rs.Close)
	if err := rs.Ping(ctx); err != nil {
		return nil, fmt.Errorf("redis session store: %w", err)
	}
	return rs, nil
}

// Close releases pools and connections in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
