// Package http exposes the internship workflow as a JSON REST API under
// /api/v1, plus unauthenticated health, readiness and metrics endpoints.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/internhub/internhub/internal/application/command"
	"github.com/internhub/internhub/internal/application/query"
	"github.com/internhub/internhub/internal/interface/http/handlers"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	// Host - address to bind (default: "0.0.0.0").
	Host string

	// Port - port to listen on (default: 8080).
	Port int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// RequestTimeout bounds the handler context of API requests.
	RequestTimeout time.Duration

	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64

	// RateLimitPerSecond and RateLimitBurst throttle each caller
	// (0 disables rate limiting).
	RateLimitPerSecond float64
	RateLimitBurst     int

	// TrustProxyHeaders applies X-Forwarded-For / X-Real-IP to RemoteAddr.
	TrustProxyHeaders bool
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               8080,
		ReadTimeout:        15 * time.Second,
		WriteTimeout:       30 * time.Second,
		IdleTimeout:        60 * time.Second,
		RequestTimeout:     25 * time.Second,
		MaxBodyBytes:       1 << 20, // 1 MB
		RateLimitPerSecond: 20,
		RateLimitBurst:     40,
	}
}

// Address returns the server address string.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, fmt.Sprint(c.Port))
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Dependencies contains all dependencies required by HTTP handlers.
type Dependencies struct {
	// Commands
	SubmitApplication   *command.SubmitApplicationHandler
	AcceptApplication   *command.AcceptApplicationHandler
	RejectApplication   *command.RejectApplicationHandler
	WithdrawApplication *command.WithdrawApplicationHandler
	SignAgreement       *command.SignAgreementHandler
	GenerateDocument    *command.GenerateDocumentHandler
	ArchiveAgreement    *command.ArchiveAgreementHandler
	AssignTutor         *command.AssignTutorHandler
	UpdateProgress      *command.UpdateProgressHandler
	NotificationRead    *command.NotificationReadHandler

	// Queries
	Applications  *query.ApplicationQueries
	Agreements    *query.AgreementQueries
	Supervisions  *query.SupervisionQueries
	Notifications *query.NotificationQueries

	// Cross-cutting
	Auth    *handlers.Authenticator
	Health  handlers.HealthChecker
	Metrics MetricsExporter
	Logger  *slog.Logger
}

// MetricsExporter instruments requests and serves the scrape endpoint.
type MetricsExporter interface {
	Middleware(next http.Handler) http.Handler
	Handler() http.Handler
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server represents the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	httpServer *http.Server
	router     chi.Router
	logger     *slog.Logger

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates a new HTTP server with the given configuration and dependencies.
func NewServer(config Config, deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	s := &Server{
		config: config,
		deps:   deps,
		logger: deps.Logger.With("component", "http"),
	}
	s.router = s.routes()

	s.httpServer = &http.Server{
		Addr:              config.Address(),
		Handler:           s.router,
		ReadTimeout:       config.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      config.WriteTimeout,
		IdleTimeout:       config.IdleTimeout,
	}
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if s.config.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(handlers.AccessLog(s.logger))
	r.Use(handlers.Recoverer(s.logger))
	if s.deps.Metrics != nil {
		r.Use(s.deps.Metrics.Middleware)
	}
	r.Use(handlers.SecurityHeadersMiddleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteError(w, r, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	// ─────────────────────────────────────────────────────────────────────────
	// Health & Status Endpoints
	// ─────────────────────────────────────────────────────────────────────────
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())
	}

	// ─────────────────────────────────────────────────────────────────────────
	// API v1 - Authenticated Endpoints
	// ─────────────────────────────────────────────────────────────────────────
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(handlers.RequestSizeLimitMiddleware(s.config.MaxBodyBytes))
		if s.config.RequestTimeout > 0 {
			r.Use(middleware.Timeout(s.config.RequestTimeout))
		}
		r.Use(s.deps.Auth.Middleware)
		if s.config.RateLimitPerSecond > 0 {
			r.Use(handlers.NewRateLimiter(s.config.RateLimitPerSecond, s.config.RateLimitBurst).Middleware)
		}

		r.Route("/applications", func(r chi.Router) {
			r.Post("/", s.handleSubmitApplication)
			r.Get("/{id}", s.handleGetApplication)
			r.Delete("/{id}", s.handleWithdrawApplication)
			r.Post("/{id}/accept", s.handleAcceptApplication)
			r.Post("/{id}/reject", s.handleRejectApplication)
		})

		r.Route("/agreements", func(r chi.Router) {
			r.Get("/", s.handleListAgreements)
			r.Get("/{id}", s.handleGetAgreement)
			r.Post("/{id}/sign", s.handleSignAgreement)
			r.Post("/{id}/document", s.handleGenerateDocument)
			r.Post("/{id}/archive", s.handleArchiveAgreement)
			r.Post("/{id}/supervision", s.handleAssignTutor)
		})

		r.Route("/supervisions", func(r chi.Router) {
			r.Get("/", s.handleListSupervisions)
			r.Get("/{id}", s.handleGetSupervision)
			r.Patch("/{id}", s.handleUpdateProgress)
		})

		r.Get("/students/{id}/applications", s.handleListStudentApplications)
		r.Get("/students/{id}/agreements", s.handleListStudentAgreements)
		r.Get("/students/{id}/supervision", s.handleGetActiveSupervision)
		r.Get("/offers/{id}/applications", s.handleListOfferApplications)
		r.Get("/companies/{id}/agreements", s.handleListCompanyAgreements)
		r.Get("/tutors/{id}/supervisions", s.handleListTutorSupervisions)

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", s.handleListNotifications)
			r.Get("/unread-count", s.handleUnreadCount)
			r.Post("/read-all", s.handleMarkAllRead)
			r.Post("/{id}/read", s.handleMarkRead)
		})
	})

	return r
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", "address", s.config.Address())

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Uptime returns the server uptime.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}
