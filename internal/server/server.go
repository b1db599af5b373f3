// Package server provides the HTTP server and routing for VolGuard.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/voltlab/volguard/internal/config"
	"github.com/voltlab/volguard/internal/di"
	calculatorhandlers "github.com/voltlab/volguard/internal/modules/calculator/handlers"
	decisionhandlers "github.com/voltlab/volguard/internal/modules/decision/handlers"
	markethandlers "github.com/voltlab/volguard/internal/modules/market/handlers"
	streamhandlers "github.com/voltlab/volguard/internal/modules/stream/handlers"
	systemhandlers "github.com/voltlab/volguard/internal/modules/system/handlers"
	watchlisthandlers "github.com/voltlab/volguard/internal/modules/watchlist/handlers"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Port      int
	DevMode   bool
	Container *di.Container
}

// Server represents the HTTP server
type Server struct {
	router    *chi.Mux
	server    *http.Server
	log       zerolog.Logger
	cfg       *config.Config
	container *di.Container
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log,
		cfg:       cfg.Config,
		container: cfg.Container,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout. The websocket stream opts back out via its own context.
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	c := s.container

	system := systemhandlers.NewHandler(c.Registry.Active, c.StartedAt, s.log)
	calculator := calculatorhandlers.NewHandler(s.log)
	watchlist := watchlisthandlers.NewHandler(c.Watchlist, s.log)
	market := markethandlers.NewHandler(c.Provider, c.Registry, c.Indicators, c.FearGreed, s.log)
	decision := decisionhandlers.NewHandler(c.Engine, c.Reviews, c.Regimes, s.log)
	stream := streamhandlers.NewHandler(c.Provider, s.log)

	s.router.Route("/api", func(r chi.Router) {
		system.RegisterRoutes(r)
		calculator.RegisterRoutes(r)
		watchlist.RegisterRoutes(r)
		market.RegisterRoutes(r)
		decision.RegisterRoutes(r)
		stream.RegisterRoutes(r)
	})
}

// Start starts the HTTP server (blocking)
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Router exposes the configured router, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
