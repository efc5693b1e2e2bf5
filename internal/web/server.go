// Package web provides the HTTP presentation layer for the inventory engine.
// It is a thin JSON API: every route delegates to one engine operation and
// maps the engine's typed errors onto status codes. No business logic lives
// here.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stocktally/engine/internal/config"
	"github.com/stocktally/engine/internal/core"
	"github.com/stocktally/engine/internal/web/middleware"
)

// Server is the HTTP server binding the engine's operations.
type Server struct {
	service *core.Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a Server for the given engine service.
func NewServer(service *core.Service, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(&s.cfg.Security))

		// File ingestion and registry
		r.Post("/files", s.handleIngest)
		r.Get("/files", s.handleListFiles)
		r.Get("/files/{path}", s.handleGetCompany)
		r.Delete("/files/{path}", s.handleDeleteFile)
		r.Get("/files/{path}/workbook", s.handleDownloadWorkbook)

		// Stock mutation
		r.Post("/files/{path}/stock", s.handleUpdateStock)

		// Cross-file queries
		r.Get("/search", s.handleSearch)
		r.Get("/low-stock", s.handleLowStock)
		r.Get("/export", s.handleExport)

		// Lifecycle and monitoring
		r.Post("/cleanup", s.handleCleanup)
		r.Get("/activity", s.handleActivity)
		r.Get("/status", s.handleStatus)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok","time":"` + time.Now().UTC().Format(time.RFC3339) + `"}`))
}
