// Package api exposes the engine's session and workflow state over HTTP.
// The surface is read-only: workflows are started, cancelled and resumed
// through the CLI, which owns the process lifetime.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/ordo-ai/ordo/internal/engine"
	"github.com/ordo-ai/ordo/internal/events"
	"github.com/ordo-ai/ordo/internal/logging"
	"github.com/ordo-ai/ordo/internal/session"
)

// Server serves the HTTP API.
type Server struct {
	router   chi.Router
	sessions *session.Store
	engine   *engine.Engine
	registry *engine.Registry
	bus      *events.Bus
	logger   *logging.Logger
	origins  []string
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *logging.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithAllowedOrigins restricts CORS origins. Default allows any origin.
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) {
		s.origins = origins
	}
}

// NewServer creates the API server over the session store, engine and
// workflow registry. bus may be nil, which disables the event stream.
func NewServer(sessions *session.Store, eng *engine.Engine, registry *engine.Registry, bus *events.Bus, opts ...ServerOption) *Server {
	s := &Server{
		sessions: sessions,
		engine:   eng,
		registry: registry,
		bus:      bus,
		logger:   logging.NewNop(),
		origins:  []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.setupRouter()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(s.loggingMiddleware)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: false,
		MaxAge:           300,
	})
	r.Use(corsHandler.Handler)

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", s.handleListSessions)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Get("/logs", s.handleSessionLogs)
				r.Get("/usage", s.handleSessionUsage)
			})
		})
		r.Get("/workflows", s.handleListWorkflows)
		r.Get("/events", s.handleSSE)
	})

	return r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"bytes", ww.BytesWritten(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondError sends a JSON error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
