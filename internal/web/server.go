// Package web provides the JSON API over the ingestion pipeline.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/engagehub/submission/internal/auth"
	"github.com/engagehub/submission/internal/core"
)

// AuditLog is the read side of the audit trail, exposed to admins.
type AuditLog interface {
	ListRecent(ctx context.Context, limit int) ([]core.AuditLogEntry, error)
}

// Server is the HTTP server for the submission API.
type Server struct {
	service  *core.Service
	auth     *auth.Service
	auditLog AuditLog
	router   *chi.Mux
	server   *http.Server
}

// Timeouts carries the listener timeouts applied by Start.
type Timeouts struct {
	Read  time.Duration
	Write time.Duration
	Idle  time.Duration
}

// NewServer wires the API routes over the pipeline and auth services.
func NewServer(service *core.Service, authSvc *auth.Service, auditLog AuditLog) *Server {
	s := &Server{
		service:  service,
		auth:     authSvc,
		auditLog: auditLog,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(5 * time.Minute))
	s.router.Use(requestMetadata)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/refresh", s.handleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/register", s.handleRegister)
			r.Get("/me", s.handleCurrentUser)
			r.Post("/change-password", s.handleChangePassword)
		})
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Post("/upload", s.handleUpload)
		r.Get("/uploads", s.handleListUploads)
		r.Get("/uploads/{fileID}", s.handleGetUpload)
		r.Get("/uploads/{fileID}/records", s.handleListRecords)
		r.Delete("/uploads/{fileID}", s.handleDeleteUpload)

		r.Get("/templates", s.handleListTemplates)
		r.Get("/templates/{templateID}", s.handleGetTemplate)
		r.Get("/templates/{templateID}/download", s.handleDownloadTemplate)

		r.Get("/audit", s.handleAuditLog)
	})
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the listener and blocks until it stops.
func (s *Server) Start(addr string, t Timeouts) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  t.Read,
		WriteTimeout: t.Write,
		IdleTimeout:  t.Idle,
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

// handleHealth reports liveness and the upload limiter state.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"uploads": s.service.Limiter().Status(),
	})
}
