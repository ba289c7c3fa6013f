// Package server exposes the portfolio over HTTP: a health probe and a
// token-authenticated JSON API the presentation layer calls.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"portfolio/internal/auth"
	"portfolio/internal/config"
	"portfolio/internal/export"
	"portfolio/internal/importer"
	"portfolio/internal/report"
	"portfolio/internal/storage"
	"portfolio/internal/version"
)

// Server is the HTTP API over one open store.
type Server struct {
	config    *config.Config
	store     *storage.Store
	reporter  *report.Reporter
	exporter  *export.Exporter
	importer  *importer.Importer
	auth      *auth.Manager
	logger    *slog.Logger
	startedAt time.Time

	httpServer *http.Server
}

// New wires a server over an open database.
func New(cfg *config.Config, db *storage.DB, logger *slog.Logger) (*Server, error) {
	store := storage.NewStore(db)

	authManager, err := auth.NewManager(db, cfg.Auth.AllowedUsers, logger)
	if err != nil {
		return nil, fmt.Errorf("init auth: %w", err)
	}

	s := &Server{
		config:    cfg,
		store:     store,
		reporter:  report.NewReporter(store),
		exporter:  export.NewExporter(store),
		importer:  importer.NewImporter(store, logger),
		auth:      authManager,
		logger:    logger,
		startedAt: time.Now(),
	}
	s.httpServer = s.setupServer()
	return s, nil
}

// setupServer creates and configures the HTTP server
func (s *Server) setupServer() *http.Server {
	mux := http.NewServeMux()

	// Health endpoint (no auth required)
	mux.HandleFunc("/health", s.handleHealth)

	// API endpoints (auth required)
	mux.Handle("/api/v1/", s.withAuth(s.apiRouter()))

	addr := fmt.Sprintf("%s:%d", s.config.Server.Bind, s.config.Server.Port)

	return &http.Server{
		Addr:         addr,
		Handler:      s.withRequestContext(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// apiRouter returns the router for API endpoints
func (s *Server) apiRouter() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/dashboard", s.handleDashboard)
	mux.HandleFunc("/api/v1/overlaps", s.handleOverlaps)
	mux.HandleFunc("/api/v1/audit", s.handleAudit)

	mux.HandleFunc("/api/v1/units", s.handleUnits)
	mux.HandleFunc("/api/v1/units/", s.handleUnitByID)
	mux.HandleFunc("/api/v1/applications", s.handleApplications)
	mux.HandleFunc("/api/v1/applications/", s.handleApplicationByID)
	mux.HandleFunc("/api/v1/infrastructure", s.handleInfrastructure)
	mux.HandleFunc("/api/v1/infrastructure/", s.handleInfrastructureByID)
	mux.HandleFunc("/api/v1/services", s.handleServices)
	mux.HandleFunc("/api/v1/services/", s.handleServiceByID)

	mux.HandleFunc("/api/v1/lookups/", s.handleLookups)

	mux.HandleFunc("/api/v1/import/", s.handleImport)

	return mux
}

// Handler exposes the configured handler chain, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server stopping")
	return s.httpServer.Shutdown(ctx)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Uptime   string `json:"uptime"`
	Database string `json:"database"`
}

// handleHealth handles GET /health (no auth required)
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}

	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:   "healthy",
		Version:  version.Version,
		Uptime:   time.Since(s.startedAt).Round(time.Second).String(),
		Database: s.store.DB.Path(),
	})
}
