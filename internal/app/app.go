// Package app provides the main application lifecycle management for the
// social auto-posting engine.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/dealwire/social-engine/internal/api"
	"github.com/dealwire/social-engine/internal/config"
	"github.com/dealwire/social-engine/internal/database"
	"github.com/dealwire/social-engine/internal/engine"
	"github.com/dealwire/social-engine/internal/logger"
	"github.com/dealwire/social-engine/internal/metrics"
	"github.com/dealwire/social-engine/internal/orchestrator"
	"github.com/dealwire/social-engine/internal/redisclient"
	"github.com/dealwire/social-engine/internal/render"
	"github.com/dealwire/social-engine/internal/scheduler"
	"github.com/dealwire/social-engine/internal/varcache"
)

const (
	// DefaultShutdownTimeout is the default timeout for graceful shutdown
	DefaultShutdownTimeout = 30 * time.Second

	cycleTimeout = 5 * time.Minute
)

// App represents the engine application with all its dependencies.
type App struct {
	config      *config.Config
	logger      logger.Logger
	redisClient *redis.Client
	repo        *database.Repository
	engine      *engine.Engine
	scheduler   *scheduler.Scheduler
	httpServer  *http.Server
	version     string
}

// Options contains configuration for creating a new App.
type Options struct {
	ConfigPath string
	Version    string

	// WithScheduler controls whether the cron loop runs. The api command
	// serves HTTP only; the engine command runs both.
	WithScheduler bool
}

// New creates a new App instance with all dependencies initialized.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	appLogger, err := logger.NewLogger(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	appLogger = appLogger.With(
		logger.String("service", "social-engine"),
		logger.String("version", opts.Version),
	)

	redisClient, err := redisclient.New(cfg.Redis)
	if err != nil {
		_ = appLogger.Sync()
		return nil, err
	}

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		_ = appLogger.Sync()
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	repo := database.NewRepository(db)

	store, err := newObjectStore(ctx, cfg)
	if err != nil {
		_ = appLogger.Sync()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	loc, err := time.LoadLocation(cfg.Engine.Timezone)
	if err != nil {
		_ = appLogger.Sync()
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Engine.Timezone, err)
	}

	cache := varcache.New(redisClient, cfg.Engine.VariantCacheTTL, appLogger)
	captioner := render.NewCaptioner(cfg.Engine.SiteBaseURL, cache)
	flyers := render.NewFlyerRenderer(cfg.Engine.ImageTimeout, appLogger)

	publishers := buildPublishers(cfg, appLogger)

	orch := orchestrator.New(publishers, store, repo, m, orchestrator.Config{
		PublishTimeout: cfg.Engine.PublishTimeout,
		RateLimit:      cfg.Engine.PublishRateLimit,
	}, appLogger)

	eng := engine.New(repo, flyers, captioner, orch, m, engine.Config{
		Lookback: time.Duration(cfg.Engine.LookbackHours) * time.Hour,
		Dedupe:   time.Duration(cfg.Engine.DedupeHours) * time.Hour,
		Location: loc,
	}, appLogger)

	a := &App{
		config:      cfg,
		logger:      appLogger,
		redisClient: redisClient,
		repo:        repo,
		engine:      eng,
		version:     opts.Version,
	}

	if opts.WithScheduler {
		a.scheduler = scheduler.New(eng, loc, cycleTimeout, appLogger)
	}

	router := api.NewRouter(repo, redisClient, eng, registry, cfg, appLogger)
	a.httpServer = &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return a, nil
}

// Run starts the application and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		a.logger.Info("HTTP server starting",
			logger.String("address", a.httpServer.Addr),
			logger.Bool("debug", a.config.Debug),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	if a.scheduler != nil {
		if err := a.scheduler.Start(a.config.Engine.CronSpec); err != nil {
			a.shutdownHTTPServer()
			return err
		}
	}

	return a.waitForShutdown(ctx, serverErr)
}

// RunCycleOnce executes a single manual cycle and exits. Used by the
// run-once CLI mode.
func (a *App) RunCycleOnce(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, cycleTimeout)
	defer cancel()

	outcome, err := a.engine.RunCycle(ctx, engine.TriggerManual)
	if err != nil {
		return err
	}

	a.logger.Info("one-shot cycle finished",
		logger.String("status", string(outcome.Status)),
		logger.String("reason", outcome.Reason),
	)
	return nil
}

// waitForShutdown handles graceful shutdown.
func (a *App) waitForShutdown(ctx context.Context, serverErr chan error) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var shutdownErr error

	select {
	case sig := <-sigChan:
		a.logger.Info("Shutting down gracefully",
			logger.String("signal", sig.String()),
		)

	case <-ctx.Done():
		a.logger.Info("Shutting down: context cancelled")

	case err := <-serverErr:
		a.logger.Error("HTTP server error", logger.Error(err))
		shutdownErr = err
	}

	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	a.shutdownHTTPServer()

	a.logger.Info("Service stopped")
	return shutdownErr
}

// shutdownHTTPServer gracefully shuts down the HTTP server.
func (a *App) shutdownHTTPServer() {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("Server shutdown error", logger.Error(err))
	} else {
		a.logger.Info("HTTP server stopped")
	}
}

// Close cleans up resources.
func (a *App) Close() error {
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("Failed to close Redis client", logger.Error(err))
		}
	}
	return a.logger.Sync()
}

// Logger returns the application logger.
func (a *App) Logger() logger.Logger {
	return a.logger
}
