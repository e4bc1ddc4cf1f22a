package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variable names.
const (
	envPrefix    = "LOCAPI_"
	envConfig    = "LOCAPI_CONFIG"
	envDotEnv    = "LOCAPI_ENV_FILE"
	envSupabase  = "SUPABASE_"
	defaultEnvFn = ".env"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if LOCAPI_CONFIG is set
//  3. SUPABASE_URL / SUPABASE_KEY
//  4. env (prefix LOCAPI_)
//
// A .env file (or LOCAPI_ENV_FILE) is read into the process environment
// first; variables already set win over the file.
func Load(ctx context.Context) (*Config, error) {
	if err := loadDotEnv(ctx); err != nil {
		return nil, err
	}

	base := New()
	k := koanf.New(".")

	if path := os.Getenv(envConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// SUPABASE_URL -> supabase_url, SUPABASE_KEY -> supabase_key
	supabaseProvider := env.Provider(envSupabase, ".", strings.ToLower)
	if err := k.Load(supabaseProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// LOCAPI_ADDR -> addr, LOCAPI_STORE_BACKEND -> store_backend, ...
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadDotEnv mirrors dotenv.config(): a missing default file is fine, an
// explicitly named one must exist.
func loadDotEnv(_ context.Context) error {
	path, explicit := os.LookupEnv(envDotEnv)
	if !explicit || path == "" {
		path = defaultEnvFn
	}
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
}

// Validate checks field combinations. Supabase URL and key are deliberately
// left unchecked.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.RoutePrefix != "" && !strings.HasPrefix(c.RoutePrefix, "/") {
		return fmt.Errorf("%w: route_prefix must start with /", ErrInvalidConfig)
	}
	switch c.StoreBackend {
	case BackendREST:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: database_url is required for the postgres backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_backend %q", ErrInvalidConfig, c.StoreBackend)
	}
	switch c.SessionStore {
	case SessionMemory:
	case SessionRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("%w: redis_url is required for the redis session store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown session_store %q", ErrInvalidConfig, c.SessionStore)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("%w: max_body_bytes must be positive", ErrInvalidConfig)
	}
	return nil
}
