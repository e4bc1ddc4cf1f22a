// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - All loading functions accept context.Context as the first parameter.
// - Validation failures wrap ErrInvalidConfig; load failures wrap ErrLoadConfig.
package config

// Store backends.
const (
	BackendREST     = "rest"
	BackendPostgres = "postgres"
)

// Session storage kinds.
const (
	SessionMemory = "memory"
	SessionRedis  = "redis"
)

// DefaultRoutePrefix is the function-gateway path the API is also mounted under.
const DefaultRoutePrefix = "/.netlify/functions/api"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log lines.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// RoutePrefix mirrors every API route under this path. Empty disables it.
	RoutePrefix string `koanf:"route_prefix"`

	// SupabaseURL and SupabaseKey address the hosted backend. Their absence
	// is not validated; calls fail at request time instead.
	SupabaseURL string `koanf:"supabase_url"`
	SupabaseKey string `koanf:"supabase_key"`

	// StoreBackend selects how table operations reach the store: rest or postgres.
	StoreBackend string `koanf:"store_backend"`

	// DatabaseURL is the Postgres DSN used by the postgres backend.
	DatabaseURL string `koanf:"database_url"`

	// ReturnRows asks the store to return written rows instead of null.
	ReturnRows bool `koanf:"return_rows"`

	// SessionStore selects where the current session is kept: memory or redis.
	SessionStore string `koanf:"session_store"`

	// RedisURL addresses the redis session store.
	RedisURL string `koanf:"redis_url"`

	// SessionTTLSeconds bounds how long a stored session lives in redis.
	SessionTTLSeconds int `koanf:"session_ttl_seconds"`

	// UpstreamTimeoutMS caps each call to the hosted backend.
	UpstreamTimeoutMS int `koanf:"upstream_timeout_ms"`

	// MaxBodyBytes caps JSON request bodies.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		RoutePrefix:       DefaultRoutePrefix,
		StoreBackend:      BackendREST,
		SessionStore:      SessionMemory,
		SessionTTLSeconds: 7 * 24 * 60 * 60,
		UpstreamTimeoutMS: 10_000,
		MaxBodyBytes:      100 << 10,
	}
}
