// internal/api/server.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihandler "github.com/quantkit/helix/internal/api/handler/api"
	"github.com/quantkit/helix/internal/api/job"
	"github.com/quantkit/helix/internal/api/middleware"
	"github.com/quantkit/helix/internal/app"
	"github.com/quantkit/helix/internal/metrics"
	"github.com/quantkit/helix/internal/strategy"
)

// Config holds server configuration
type Config struct {
	Host        string
	Port        int
	APIKey      string
	MetricsPath string
}

// Dependencies holds the wired services the server exposes.
type Dependencies struct {
	App        *app.App
	Jobs       *job.Store
	Strategies *strategy.Engine
	Metrics    *metrics.Registry
}

// Server represents the HELIX HTTP server
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Jobs == nil || deps.Strategies == nil {
		return nil, fmt.Errorf("server needs a job store and a strategy engine")
	}

	mux := http.NewServeMux()

	// Request logging and HTTP metrics wrap the whole mux. Tests that hit
	// the mux directly bypass them.
	var handler http.Handler = mux
	if deps.Metrics != nil {
		handler = metrics.HTTPMiddleware(deps.Metrics)(handler)
	}
	handler = metrics.LoggingMiddleware(logger)(handler)

	s := &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
		mux:    mux,
	}

	s.setupRoutes(cfg, deps)
	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config, deps Dependencies) {
	auth := middleware.APIKeyAuth(cfg.APIKey)

	backtests := apihandler.NewBacktestHandler(deps.Jobs, deps.App, deps.Strategies, deps.Metrics)
	optimizes := apihandler.NewOptimizeHandler(deps.Jobs, deps.App, deps.Strategies, deps.Metrics)
	jobs := apihandler.NewJobsHandler(deps.Jobs)
	strategies := apihandler.NewStrategiesHandler(deps.Strategies)

	s.mux.Handle("POST /api/backtest", auth(http.HandlerFunc(backtests.Create)))
	s.mux.Handle("POST /api/optimize", auth(http.HandlerFunc(optimizes.Create)))
	s.mux.Handle("GET /api/jobs", auth(http.HandlerFunc(jobs.List)))
	s.mux.Handle("GET /api/jobs/{id}", auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jobs.Get(w, r, r.PathValue("id"))
	})))
	s.mux.Handle("GET /api/strategies", auth(http.HandlerFunc(strategies.List)))

	// Health and metrics stay outside auth so probes and scrapers need no key
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	if deps.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		s.mux.Handle("GET "+path, promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
