// Package server exposes the scanner over HTTP and websocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/server/handler"
	"github.com/alanyoungcy/crossarb/internal/server/middleware"
	"github.com/alanyoungcy/crossarb/internal/server/ws"
)

// Config holds the HTTP server settings.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // empty disables auth
	RateLimit   int    // requests per RateWindow and client; 0 disables
	RateWindow  time.Duration
}

// Handlers groups the route handlers.
type Handlers struct {
	Health    *handler.HealthHandler
	Report    *handler.ReportHandler
	Scan      *handler.ScanHandler
	Snapshots *handler.SnapshotHandler
}

// Server is the HTTP and websocket API.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers the routes and builds the middleware chain. hub and
// limiter may be nil.
func NewServer(cfg Config, h Handlers, hub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	logger = logger.With(slog.String("component", "server"))
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      Routes(cfg, h, hub, limiter, logger),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// Routes returns the API handler with middleware applied.
func Routes(cfg Config, h Handlers, hub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", h.Health.HealthCheck)

	mux.HandleFunc("GET /api/report", h.Report.Latest)
	mux.HandleFunc("GET /api/report/text", h.Report.Text)
	mux.HandleFunc("GET /api/report/matches", h.Report.Matches)

	mux.HandleFunc("POST /api/scan", h.Scan.Trigger)
	mux.HandleFunc("GET /api/scans", h.Scan.History)

	mux.HandleFunc("GET /api/snapshots", h.Snapshots.List)
	mux.HandleFunc("GET /api/snapshots/{date}/{id}", h.Snapshots.Get)

	if hub != nil {
		mux.HandleFunc("GET /ws", hub.HandleWS)
	}

	var handler http.Handler = mux
	handler = middleware.Auth(cfg.APIKey, "/api/health")(handler)
	handler = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateWindow, logger)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.CORS(cfg.CORSOrigins)(handler)
	return handler
}

// Start listens until the server fails or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown waits for in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
