// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/okian/locapi/internal/domain/model"
	"github.com/okian/locapi/pkg/logger"
)

// DefaultMaxBodyBytes caps JSON request bodies.
const DefaultMaxBodyBytes = 100 << 10

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SessionResolver

	Login(ctx context.Context, creds model.Credentials) (*model.AuthResponse, error)

	ListLocationRequests(ctx context.Context) ([]model.Record, error)
	CreateLocation(ctx context.Context, sess *model.Session, rec model.Record) ([]model.Record, error)
	UpdateLocation(ctx context.Context, sess *model.Session, id string, rec model.Record) ([]model.Record, error)
	GetLocation(ctx context.Context, id string) (model.Record, error)
	DeleteLocationRequest(ctx context.Context, id string) ([]model.Record, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps         Dependencies
	prefix       string
	maxBodyBytes int64
	logger       logger.Logger

	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	handler       http.Handler
}

// ServerOption applies a configuration option to the Server.
type ServerOption func(*Server)

// WithRoutePrefix mounts every API route a second time under prefix.
func WithRoutePrefix(prefix string) ServerOption {
	return func(s *Server) {
		s.prefix = strings.TrimRight(prefix, "/")
	}
}

// WithMaxBodyBytes caps request bodies.
func WithMaxBodyBytes(n int64) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithLogger sets a custom logger for the handlers.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{
		deps:          deps,
		maxBodyBytes:  DefaultMaxBodyBytes,
		logger:        logger.Nop(),
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.handler = RequestID(s.router())
	return s
}

// Handler returns the API routes without the operational endpoints. It is
// what the serverless entrypoint serves.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.Handle("/", s.handler)
}

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()
	s.mount(r)
	if s.prefix != "" {
		s.mount(r.PathPrefix(s.prefix).Subrouter())
	}
	return r
}

// mount registers the API routes on r. Every router, the prefixed one
// included, answers misses with the same JSON 404 and 405 handlers.
func (s *Server) mount(r *mux.Router) {
	r.NotFoundHandler = MetricsMiddleware(handleNotFound, "not_found")
	r.MethodNotAllowedHandler = MetricsMiddleware(handleMethodNotAllowed, "method_not_allowed")

	r.HandleFunc("/login", s.route("login", false, s.handleLogin)).Methods(http.MethodPost)
	r.HandleFunc("/api/data", s.route("data_list", true, s.handleListData)).Methods(http.MethodGet)
	r.HandleFunc("/api/data", s.route("data_create", true, s.handleCreateData)).Methods(http.MethodPost)
	r.HandleFunc("/api/data/{id}", s.route("data_update", true, s.handleUpdateData)).Methods(http.MethodPut)
	r.HandleFunc("/api/location/{id}", s.route("location_get", false, s.handleGetLocation)).Methods(http.MethodGet)
	r.HandleFunc("/api/location/{id}", s.route("location_delete", true, s.handleDeleteLocation)).Methods(http.MethodDelete)
}

// route builds the per-route chain: metrics, then the session check for
// protected routes, then panic recovery around the handler.
func (s *Server) route(endpoint string, protected bool, h http.HandlerFunc) http.HandlerFunc {
	h = Recover(s.logger, h)
	if protected {
		h = RequireSession(s.deps, s.logger, h)
	}
	return MetricsMiddleware(h, endpoint)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	msg := http.StatusText(status)
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps request body failures to their status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, errors.New("Cannot "+r.Method+" "+r.URL.Path))
}

func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("Cannot "+r.Method+" "+r.URL.Path))
}
