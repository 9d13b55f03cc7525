// Package main is the InternHub API process.
//
// It serves the internship workflow over HTTP: applications, agreements
// and their signatures, tutor supervision and the in-app inbox. Document
// renders that fail are retried in the background and later swept up by
// the worker.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/internhub/internhub/config"
	"github.com/internhub/internhub/internal/bootstrap"
	apihttp "github.com/internhub/internhub/internal/interface/http"
	"github.com/internhub/internhub/internal/interface/http/handlers"
	"github.com/internhub/internhub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
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
		Service: "internhub-api",
		Version: cfg.App.Version,
	})
	log.Info("starting InternHub API",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
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
	// 4. EVENT HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	if err := app.SubscribeEventHandlers(); err != nil {
		return err
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. AUTHENTICATION AND HEALTH
	// ─────────────────────────────────────────────────────────────────────────
	var apiKeys *handlers.APIKeyAuth
	if len(cfg.Auth.APIKeyHashes) > 0 {
		apiKeys = handlers.NewAPIKeyAuth(cfg.Auth.APIKeyHeader, cfg.Auth.APIKeyHashes)
	}
	auth := handlers.NewAuthenticator(handlers.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer), apiKeys, log)

	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	health.AddCheck("postgres", handlers.NewPingCheck(app.DB))
	if app.Cache != nil {
		health.AddOptionalCheck("redis", handlers.NewPingCheck(app.Cache))
	}
	if app.RendererClient != nil {
		health.AddOptionalCheck("renderer", handlers.NewExternalAPICheck(app.RendererClient))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	var exporter apihttp.MetricsExporter
	if cfg.Observability.MetricsEnabled {
		exporter = app.Metrics
	}

	server := apihttp.NewServer(serverConfig(cfg), apihttp.Dependencies{
		SubmitApplication:   app.Commands.SubmitApplication,
		AcceptApplication:   app.Commands.AcceptApplication,
		RejectApplication:   app.Commands.RejectApplication,
		WithdrawApplication: app.Commands.WithdrawApplication,
		SignAgreement:       app.Commands.SignAgreement,
		GenerateDocument:    app.Commands.GenerateDocument,
		ArchiveAgreement:    app.Commands.ArchiveAgreement,
		AssignTutor:         app.Commands.AssignTutor,
		UpdateProgress:      app.Commands.UpdateProgress,
		NotificationRead:    app.Commands.NotificationRead,
		Applications:        app.Queries.Applications,
		Agreements:          app.Queries.Agreements,
		Supervisions:        app.Queries.Supervisions,
		Notifications:       app.Queries.Notifications,
		Auth:                auth,
		Health:              health,
		Metrics:             exporter,
		Logger:              log,
	})
	serverErr := server.StartAsync()

	log.Info("InternHub API is running", "address", serverConfig(cfg).Address())

	// ─────────────────────────────────────────────────────────────────────────
	// 7. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	select {
	case <-ctx.Done():
		log.Info("received shutdown signal")
	case err := <-serverErr:
		if err != nil {
			return err
		}
	}

	log.Info("starting graceful shutdown", "timeout", cfg.App.ShutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("http server shutdown failed", "error", err)
	}

	log.Info("shutdown completed")
	return nil
}

func serverConfig(cfg *config.Config) apihttp.Config {
	sc := apihttp.DefaultConfig()
	sc.Host = cfg.HTTP.Host
	sc.Port = cfg.HTTP.Port
	sc.ReadTimeout = cfg.HTTP.ReadTimeout
	sc.WriteTimeout = cfg.HTTP.WriteTimeout
	sc.IdleTimeout = cfg.HTTP.IdleTimeout
	sc.RequestTimeout = cfg.HTTP.RequestTimeout
	sc.MaxBodyBytes = cfg.HTTP.MaxBodyBytes
	sc.RateLimitPerSecond = cfg.HTTP.RateLimitPerSecond
	sc.RateLimitBurst = cfg.HTTP.RateLimitBurst
	sc.TrustProxyHeaders = cfg.HTTP.TrustProxyHeaders
	return sc
}
