// Package bootstrap wires the infrastructure shared by the api and worker
// processes: storage, cache, event bus, renderer and the application
// handlers that sit on top of them.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/internhub/internhub/config"
	"github.com/internhub/internhub/internal/application/command"
	"github.com/internhub/internhub/internal/application/eventhandler"
	"github.com/internhub/internhub/internal/application/query"
	"github.com/internhub/internhub/internal/domain/agreement"
	"github.com/internhub/internhub/internal/domain/notification"
	"github.com/internhub/internhub/internal/domain/shared"
	"github.com/internhub/internhub/internal/infrastructure/external/renderer"
	"github.com/internhub/internhub/internal/infrastructure/messaging"
	"github.com/internhub/internhub/internal/infrastructure/metrics"
	"github.com/internhub/internhub/internal/infrastructure/persistence/postgres"
	"github.com/internhub/internhub/internal/infrastructure/persistence/redis"
	"github.com/internhub/internhub/internal/infrastructure/service"
	"github.com/internhub/internhub/pkg/logger"
	"github.com/internhub/internhub/pkg/retry"
)

// EventBus is a bus that owns background workers.
type EventBus interface {
	shared.EventBus
	Close() error
}

// Commands groups the workflow command handlers.
type Commands struct {
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
}

// Queries groups the read handlers.
type Queries struct {
	Applications  *query.ApplicationQueries
	Agreements    *query.AgreementQueries
	Supervisions  *query.SupervisionQueries
	Notifications *query.NotificationQueries
}

// App holds everything a process needs after boot.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	DB    *postgres.Connection
	UoW   *postgres.UnitOfWork
	Inbox *postgres.NotificationRepository

	// Cache and Counter are nil when Redis is disabled or unreachable.
	Cache   *redis.Cache
	Counter notification.UnreadCounter

	Bus EventBus

	Renderer agreement.DocumentRenderer
	// RendererClient is nil when no renderer URL is configured.
	RendererClient *renderer.Client

	Sink     *service.NotificationService
	Commands Commands
	Queries  Queries

	closers []func()
}

// New connects every dependency and builds the handlers. On error the
// resources opened so far are released.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (_ *App, err error) {
	app := &App{
		Config:  cfg,
		Logger:  log,
		Metrics: metrics.New(),
	}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// PostgreSQL
	// ─────────────────────────────────────────────────────────────────────────
	if err := app.connectPostgres(ctx); err != nil {
		return nil, err
	}
	if cfg.Database.MigrateOnStart {
		applied, err := postgres.NewMigrator(app.DB).Migrate(ctx)
		if err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		log.Info("database schema is up to date", "applied", len(applied))
	}
	app.UoW = postgres.NewUnitOfWork(app.DB)
	app.Inbox = postgres.NewNotificationRepository(app.DB)

	// ─────────────────────────────────────────────────────────────────────────
	// Redis (optional)
	// ─────────────────────────────────────────────────────────────────────────
	app.connectRedis(ctx)

	// ─────────────────────────────────────────────────────────────────────────
	// Event bus
	// ─────────────────────────────────────────────────────────────────────────
	if err := app.buildEventBus(); err != nil {
		return nil, err
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Document renderer
	// ─────────────────────────────────────────────────────────────────────────
	app.buildRenderer()

	// ─────────────────────────────────────────────────────────────────────────
	// Application handlers
	// ─────────────────────────────────────────────────────────────────────────
	app.buildHandlers()

	return app, nil
}

func (a *App) connectPostgres(ctx context.Context) error {
	log := logger.Component(a.Logger, "postgres")
	db := a.Config.Database

	retrier := retry.StartupRetrier(func(attempt int, err error, delay time.Duration) {
		log.Warn("database not reachable yet", "attempt", attempt, "retry_in", delay.String(), "error", err)
	})
	err := retrier.Do(ctx, func(ctx context.Context) error {
		conn, err := postgres.NewConnectionFromURL(ctx, db.URL, postgres.PoolLimits{
			MaxConns:        int32(db.MaxOpenConns),
			MinConns:        int32(db.MaxIdleConns),
			MaxConnLifetime: db.ConnMaxLifetime,
			MaxConnIdleTime: db.ConnMaxIdleTime,
		})
		if err != nil {
			return err
		}
		a.DB = conn
		return nil
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	a.onClose(func() {
		log.Info("closing database connection")
		a.DB.Close()
	})
	log.Info("database connection established")
	return nil
}

func (a *App) connectRedis(ctx context.Context) {
	log := logger.Component(a.Logger, "redis")
	rc := a.Config.Redis
	if rc.Disabled {
		log.Info("redis disabled, unread counts fall back to postgres")
		return
	}

	cfg := redis.DefaultConfig()
	cfg.Host = rc.Host
	cfg.Port = rc.Port
	cfg.Password = rc.Password
	cfg.DB = rc.DB
	if rc.PoolSize > 0 {
		cfg.PoolSize = rc.PoolSize
	}
	if rc.MinIdleConns > 0 {
		cfg.MinIdleConns = rc.MinIdleConns
	}
	if rc.DialTimeout > 0 {
		cfg.DialTimeout = rc.DialTimeout
	}
	if rc.ReadTimeout > 0 {
		cfg.ReadTimeout = rc.ReadTimeout
	}
	if rc.WriteTimeout > 0 {
		cfg.WriteTimeout = rc.WriteTimeout
	}

	cache, err := redis.NewCache(cfg)
	if err == nil {
		err = cache.Ping(ctx)
		if err != nil {
			_ = cache.Close()
		}
	}
	if err != nil {
		log.Warn("redis unavailable, continuing without it", "addr", cfg.Addr(), "error", err)
		return
	}

	a.Cache = cache
	a.Counter = redis.NewNotificationCounter(cache)
	a.onClose(func() { _ = cache.Close() })
	log.Info("redis connection established", "addr", cfg.Addr())
}

func (a *App) buildEventBus() error {
	local := messaging.DefaultInMemoryEventBusConfig()
	local.Logger = a.Logger
	local.Observer = a.Metrics
	if a.Config.Notifications.Workers > 0 {
		local.WorkerPoolSize = a.Config.Notifications.Workers
	}

	if a.Cache == nil {
		bus := messaging.NewInMemoryEventBus(local)
		a.Bus = bus
		a.onClose(func() { _ = bus.Close() })
		return nil
	}

	bus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
		Client:         messaging.NewGoRedisClient(a.Cache.Client()),
		ChannelName:    a.Config.Redis.EventChannel,
		LocalBusConfig: local,
		Logger:         a.Logger,
	})
	if err != nil {
		return fmt.Errorf("start redis event bus: %w", err)
	}
	a.Bus = bus
	a.onClose(func() { _ = bus.Close() })
	return nil
}

func (a *App) buildRenderer() {
	rc := a.Config.Renderer
	if rc.BaseURL == "" {
		a.Logger.Warn("RENDERER_BASE_URL is not set, agreement documents stay pending")
		a.Renderer = renderer.Unconfigured{}
		return
	}

	cfg := renderer.DefaultClientConfig(rc.BaseURL)
	cfg.APIKey = rc.APIKey
	if rc.Timeout > 0 {
		cfg.Timeout = rc.Timeout
	}
	if rc.RequestsPerSecond > 0 {
		cfg.RequestsPerSecond = rc.RequestsPerSecond
	}
	if rc.Burst > 0 {
		cfg.Burst = rc.Burst
	}
	cfg.Logger = a.Logger
	cfg.OnBreakerStateChange = a.Metrics.BreakerStateChanged

	a.RendererClient = renderer.NewClient(cfg)
	a.Renderer = a.RendererClient
}

func (a *App) buildHandlers() {
	ids := service.NewIDGenerator()
	clock := command.Clock(command.SystemClock)

	deps := command.Deps{
		UoW:       a.UoW,
		Publisher: a.Bus,
		IDs:       ids,
		Clock:     clock,
		Metrics:   a.Metrics,
		Logger:    a.Logger,
	}

	a.Commands = Commands{
		SubmitApplication:   command.NewSubmitApplicationHandler(deps),
		AcceptApplication:   command.NewAcceptApplicationHandler(deps, command.NewAgreementProvisioner(ids, clock)),
		RejectApplication:   command.NewRejectApplicationHandler(deps),
		WithdrawApplication: command.NewWithdrawApplicationHandler(deps),
		SignAgreement:       command.NewSignAgreementHandler(deps, a.Renderer),
		GenerateDocument:    command.NewGenerateDocumentHandler(deps, a.Renderer),
		ArchiveAgreement:    command.NewArchiveAgreementHandler(deps),
		AssignTutor:         command.NewAssignTutorHandler(deps),
		UpdateProgress:      command.NewUpdateProgressHandler(deps),
		NotificationRead:    command.NewNotificationReadHandler(a.Inbox, a.Counter, clock, a.Logger),
	}
	a.Queries = Queries{
		Applications:  query.NewApplicationQueries(a.UoW),
		Agreements:    query.NewAgreementQueries(a.UoW),
		Supervisions:  query.NewSupervisionQueries(a.UoW),
		Notifications: query.NewNotificationQueries(a.Inbox, a.Counter, a.Logger),
	}
	a.Sink = service.NewNotificationService(a.Inbox, a.Counter, ids, a.Logger)
}

// SubscribeEventHandlers attaches the notification fan-out and the render
// retry to the bus. Both only react to events published by this process.
func (a *App) SubscribeEventHandlers() error {
	notify := eventhandler.NewNotifyParties(a.Sink, a.Logger)
	var errs []error
	for _, eventType := range notify.EventTypes() {
		errs = append(errs, a.Bus.Subscribe(eventType, messaging.LocalOnly(notify.Handle)))
	}

	retryRender := eventhandler.NewRetryDocumentRender(a.Commands.GenerateDocument, eventhandler.DefaultRetryConfig(), a.Logger)
	errs = append(errs, a.Bus.Subscribe(shared.EventDocumentRenderFailed, messaging.LocalOnly(retryRender.Handle)))
	// Closers run in reverse, so the loops are cancelled before the bus drains.
	a.onClose(retryRender.Stop)

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("subscribe event handlers: %w", err)
	}
	return nil
}

func (a *App) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
