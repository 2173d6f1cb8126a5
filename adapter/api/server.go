// Package api provides the HTTP API for the users and tasks collections.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/taskhub/pkg/observability"
)

// Server is the HTTP API server.
type Server struct {
	mux       *http.ServeMux
	server    *http.Server
	logger    *slog.Logger
	resources []*ResourceHandler
	health    *observability.HealthRegistry
	metrics   *observability.InMemoryMetrics
}

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultServerConfig returns the default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:         "0.0.0.0:3000",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// ServerDeps holds what the server routes to.
type ServerDeps struct {
	// Resources are mounted at /{collection} and /api/{collection}.
	Resources []*ResourceHandler
	// Health backs GET /health. Nil reports healthy with no checks.
	Health *observability.HealthRegistry
	// Metrics records per-request counters and backs GET /metrics. Optional.
	Metrics *observability.InMemoryMetrics
	Logger  *slog.Logger
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Health == nil {
		deps.Health = observability.NewHealthRegistry()
	}

	s := &Server{
		mux:       http.NewServeMux(),
		logger:    deps.Logger,
		resources: deps.Resources,
		health:    deps.Health,
		metrics:   deps.Metrics,
	}

	s.registerRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// registerRoutes sets up the API routes.
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	if s.metrics != nil {
		s.mux.HandleFunc("GET /metrics", s.handleMetrics)
	}

	for _, prefix := range []string{"", "/api"} {
		for _, h := range s.resources {
			base := prefix + "/" + h.Collection()
			s.mux.HandleFunc("GET "+base, h.List)
			s.mux.HandleFunc("POST "+base, h.Create)
			s.mux.HandleFunc("GET "+base+"/{id}", h.Get)
			s.mux.HandleFunc("PUT "+base+"/{id}", h.Update)
			s.mux.HandleFunc("DELETE "+base+"/{id}", h.Delete)
		}
	}

	s.mux.HandleFunc("/", s.handleNotFound)
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	var metrics observability.Metrics = observability.NoopMetrics{}
	if s.metrics != nil {
		metrics = s.metrics
	}
	return requestLogger(s.logger, metrics, s.mux,
		recoverer(s.logger,
			cors(s.mux),
		),
	)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.health.GetOverallHealth(r.Context())
	status := http.StatusOK
	if health.Status == observability.HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeEnvelope(w, http.StatusNotFound, "Not found", nil)
}

// Start starts the API server. It returns http.ErrServerClosed after Shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting API server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	return s.server.Shutdown(ctx)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Log error but can't do much at this point
			slog.Error("failed to encode JSON response", "error", err)
		}
	}
}
