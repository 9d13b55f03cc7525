// Package main is the InternHub background worker.
//
// The worker runs periodic housekeeping against the same database as the
// API:
//   - render_pending_documents renders documents for signed agreements whose
//     render failed and was not recovered by the API's retry handler
//   - purge_read_notifications deletes read notifications past retention
//
// It also serves /metrics and a job status page on the metrics port.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/internhub/internhub/config"
	"github.com/internhub/internhub/internal/bootstrap"
	"github.com/internhub/internhub/internal/infrastructure/scheduler"
	"github.com/internhub/internhub/internal/infrastructure/scheduler/jobs"
	"github.com/internhub/internhub/internal/interface/http/handlers"
	"github.com/internhub/internhub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := logger.New(logger.Options{
		Level:   cfg.Observability.LogLevel,
		Format:  logger.Format(cfg.Observability.LogFormat),
		Service: "internhub-worker",
		Version: cfg.App.Version,
	})
	log.Info("starting InternHub worker",
		"env", cfg.App.Environment,
		"timezone", cfg.App.Timezone,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. INFRASTRUCTURE AND HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.New(scheduler.Config{
		Logger:   log,
		Timezone: cfg.App.Location,
		Observer: app.Metrics,
	})
	if err := registerJobs(sched, app); err != nil {
		return err
	}

	if cfg.Scheduler.Enabled {
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	} else {
		log.Warn("scheduler disabled, jobs will not run")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. OPS SERVER (/metrics, /jobs)
	// ─────────────────────────────────────────────────────────────────────────
	var opsErr <-chan error
	var ops *http.Server
	if cfg.Observability.MetricsEnabled {
		ops = &http.Server{
			Addr:              net.JoinHostPort(cfg.HTTP.Host, strconv.Itoa(cfg.Observability.MetricsPort)),
			Handler:           opsRouter(app, sched, log),
			ReadHeaderTimeout: 5 * time.Second,
		}
		opsErr = serve(ops, log)
	}

	log.Info("InternHub worker is running", "jobs", len(sched.ListJobs()))

	// ─────────────────────────────────────────────────────────────────────────
	// 6. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	select {
	case <-ctx.Done():
		log.Info("received shutdown signal")
	case err := <-opsErr:
		if err != nil {
			log.Error("ops server stopped", "error", err)
		}
	}

	log.Info("starting graceful shutdown", "timeout", cfg.App.ShutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if sched.IsRunning() {
		if err := sched.Stop(); err != nil {
			log.Error("scheduler stop failed", "error", err)
		}
	}
	if ops != nil {
		if err := ops.Shutdown(shutdownCtx); err != nil {
			log.Error("ops server shutdown failed", "error", err)
		}
	}

	log.Info("shutdown completed")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func registerJobs(sched *scheduler.Scheduler, app *bootstrap.App) error {
	cfg := app.Config.Scheduler

	renderEvery, err := scheduler.NewIntervalSchedule(cfg.RenderInterval)
	if err != nil {
		return fmt.Errorf("render schedule: %w", err)
	}
	render := jobs.NewRenderPendingDocumentsJob(
		app.UoW.Repositories().Agreements,
		app.Commands.GenerateDocument,
		jobs.RenderPendingDocumentsConfig{BatchSize: cfg.RenderBatchSize, Timeout: cfg.JobTimeout},
		app.Logger,
	)
	if err := sched.Register(render, renderEvery); err != nil {
		return err
	}

	purgeAt, err := scheduler.ParseCron(cfg.PurgeCron)
	if err != nil {
		return fmt.Errorf("purge schedule: %w", err)
	}
	purge := jobs.NewPurgeReadNotificationsJob(app.Inbox, app.Config.Notifications.Retention, app.Logger)
	return sched.Register(purge, purgeAt)
}

func opsRouter(app *bootstrap.App, sched *scheduler.Scheduler, log *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(handlers.Recoverer(log))

	r.Method(http.MethodGet, "/metrics", app.Metrics.Handler())
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := app.DB.Ping(r.Context()); err != nil {
			handlers.WriteError(w, r, http.StatusServiceUnavailable, "not_ready", "database unreachable")
			return
		}
		handlers.WriteJSON(w, r, http.StatusOK, map[string]any{
			"status":    "ok",
			"scheduler": sched.IsRunning(),
		})
	})
	r.Get("/jobs", func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteJSON(w, r, http.StatusOK, sched.ListJobs())
	})

	// Manual runs need a service key; without configured keys the route is absent.
	if len(app.Config.Auth.APIKeyHashes) == 0 {
		return r
	}
	keys := handlers.NewAPIKeyAuth(app.Config.Auth.APIKeyHeader, app.Config.Auth.APIKeyHashes)
	r.Post("/jobs/{name}/run", func(w http.ResponseWriter, r *http.Request) {
		if !keys.IsValid(r.Header.Get(keys.HeaderName())) {
			handlers.WriteError(w, r, http.StatusUnauthorized, "unauthorized", "a valid service key is required")
			return
		}
		result, err := sched.RunNow(r.Context(), chi.URLParam(r, "name"))
		if errors.Is(err, scheduler.ErrJobNotFound) {
			handlers.WriteError(w, r, http.StatusNotFound, "not_found", err.Error())
			return
		}
		body := map[string]any{
			"job":         result.JobName,
			"duration_ms": result.Duration.Milliseconds(),
			"success":     result.Success(),
		}
		if result.Error != nil {
			body["error"] = result.Error.Error()
		}
		handlers.WriteJSON(w, r, http.StatusOK, body)
	})
	return r
}

func serve(srv *http.Server, log *slog.Logger) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		log.Info("ops server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	return errCh
}
