package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arnegaenz/SIS-sub001/config"
	httpdelivery "github.com/arnegaenz/SIS-sub001/delivery/http"
	"github.com/arnegaenz/SIS-sub001/delivery/http/handlers"
	"github.com/arnegaenz/SIS-sub001/domain/service"
	"github.com/arnegaenz/SIS-sub001/infrastructure/cache"
	"github.com/arnegaenz/SIS-sub001/infrastructure/middleware"
	"github.com/arnegaenz/SIS-sub001/infrastructure/storage"
	"github.com/arnegaenz/SIS-sub001/pkg/logging"
	"github.com/arnegaenz/SIS-sub001/pkg/metrics"
	"github.com/arnegaenz/SIS-sub001/usecase"
)

// Application holds the insights server and everything it owns
type Application struct {
	config     *config.Config
	logger     *logging.Logger
	metrics    *metrics.Collector
	httpServer *http.Server
	router     *gin.Engine

	// Data and cache
	store       cache.Store
	redis       *cache.RedisStore
	dataCache   *cache.DataCache
	raw         *storage.RawStore
	snapshots   *storage.SnapshotStore
	registry    *storage.RegistryStore
	rateLimiter *middleware.RateLimitMiddleware

	// Use cases
	sessions *usecase.RawSessionSource
	outcomes *usecase.PlacementOutcomeUseCase
	runner   *usecase.OutcomeReportRunner
	reports  *usecase.ReportUseCase

	shutdown chan os.Signal
}

func main() {
	configPath := flag.String("config", "", "directory containing config.yaml")
	flag.Parse()

	app, err := NewApplication(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Start(); err != nil {
		app.logger.Fatal("Insights server failed to start", zap.Error(err))
	}

	app.WaitForShutdown()

	if err := app.Stop(); err != nil {
		app.logger.Error("Insights server did not stop cleanly", zap.Error(err))
		app.logger.Cleanup()
		os.Exit(1)
	}

	app.logger.Info("Insights server stopped")
	app.logger.Cleanup()
}

// NewApplication loads config from configPath and builds the server.
func NewApplication(configPath string) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logCfg := cfg.Logging
	if logCfg.ServiceName == "" {
		logCfg.ServiceName = cfg.Service.Name
	}
	logger, err := logging.NewLogger(logCfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logging.SetGlobalLogger(logger)

	logger.Info("Starting insights service",
		zap.String("service", cfg.Service.Name),
		zap.String("version", cfg.Service.Version),
		zap.String("environment", cfg.Service.Environment),
	)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	app := &Application{
		config:   cfg,
		logger:   logger,
		shutdown: shutdown,
	}

	if err := app.initDependencies(); err != nil {
		return nil, fmt.Errorf("init dependencies: %w", err)
	}
	app.initUseCases()
	app.initRouter()

	app.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      app.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return app, nil
}

// initDependencies initializes storage, cache and metrics
func (app *Application) initDependencies() error {
	cfg := app.config
	zl := app.logger.Logger

	if cfg.Metrics.Enabled {
		app.metrics = metrics.NewCollector(cfg.Metrics.Namespace)
	}

	app.raw = storage.NewRawStore(cfg.Data.RawDir, zl)
	app.snapshots = storage.NewSnapshotStore(cfg.Data.DailyDir, zl)
	app.registry = storage.NewRegistryStore(cfg.Data.RegistryFile, zl)

	ctx := context.Background()
	switch cfg.Cache.Backend {
	case "redis":
		redisStore, err := cache.NewRedisStore(ctx, cache.RedisOptions{
			Addr:       cfg.Cache.Redis.Addr(),
			Password:   cfg.Cache.Redis.Password,
			DB:         cfg.Cache.Redis.Database,
			MaxRetries: cfg.Cache.Redis.MaxRetries,
			PoolSize:   cfg.Cache.Redis.PoolSize,
			TTL:        cfg.Cache.Redis.TTL,
			Namespace:  cfg.Service.Name + ":",
		}, zl)
		if err != nil {
			return fmt.Errorf("init %s cache: %w", cfg.Cache.Backend, err)
		}
		app.redis = redisStore
		app.store = redisStore
	default:
		app.store = cache.NewMemoryStore(cfg.Cache.QuotaBytes)
	}

	app.dataCache = cache.NewDataCache(ctx, app.store, zl,
		cache.WithMaxEntryBytes(cfg.Cache.MaxEntryBytes),
		cache.WithMetrics(app.metrics))
	versions := cache.VersionFunc(func(context.Context) (string, error) {
		return app.snapshots.DataVersion()
	})
	if err := app.dataCache.Sync(ctx, versions); err != nil {
		app.logger.Warn("Initial cache sync failed", zap.Error(err))
	}

	if cfg.RateLimit.Enabled {
		app.rateLimiter = middleware.NewRateLimitMiddleware(zl, app.metrics, middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RPS,
			BurstSize:         cfg.RateLimit.Burst,
		})
	}
	return nil
}

// initUseCases initializes the report use cases
func (app *Application) initUseCases() {
	zl := app.logger.Logger
	sso := service.NewKeySet(app.config.Reports.SSOFIKeys...)

	app.sessions = usecase.NewRawSessionSource(app.raw, app.dataCache, zl)
	app.outcomes = usecase.NewPlacementOutcomeUseCase(app.sessions, sso, zl, app.metrics)
	app.runner = usecase.NewOutcomeReportRunner(app.outcomes)
	app.reports = usecase.NewReportUseCase(app.sessions, app.raw, sso, zl, app.metrics)
}

// initRouter mounts the API, health, metrics and static routes
func (app *Application) initRouter() {
	cfg := app.config
	zl := app.logger.Logger

	if cfg.Service.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	var pinger handlers.Pinger
	if app.redis != nil {
		pinger = app.redis
	}

	app.router = httpdelivery.NewRouter(httpdelivery.RouterConfig{
		Logger:      zl,
		Metrics:     app.metrics,
		MetricsPath: cfg.Metrics.Path,
		RateLimiter: app.rateLimiter,
		Health: handlers.NewHealthHandler(zl,
			handlers.ServiceInfo{
				Name:        cfg.Service.Name,
				Version:     cfg.Service.Version,
				Environment: cfg.Service.Environment,
			},
			app.dataCache, pinger,
			map[string]string{
				"public": cfg.Data.PublicDir,
				"daily":  cfg.Data.DailyDir,
			},
			cfg.Data.RegistryFile),
		Data:    handlers.NewDataHandler(app.snapshots, app.registry, app.sessions, app.dataCache, zl),
		Reports: handlers.NewReportHandler(app.outcomes, app.runner, app.reports, cfg.Reports.MerchantTopN, zl),
		Static:  handlers.NewStaticHandler(cfg.Data.PublicDir, zl),
	})
}

// Start listens in the background. A listen failure is fatal.
func (app *Application) Start() error {
	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.logger.Fatal("Listen failed", zap.String("address", app.httpServer.Addr), zap.Error(err))
		}
	}()

	app.logger.Info("Insights service running",
		zap.String("url", fmt.Sprintf("http://localhost:%d", app.config.Server.Port)),
		zap.String("public_dir", app.config.Data.PublicDir),
	)
	return nil
}

// WaitForShutdown blocks until SIGINT or SIGTERM
func (app *Application) WaitForShutdown() {
	<-app.shutdown
	app.logger.Info("Stopping insights server")
}

// Stop drains in-flight requests, then releases the limiter and cache.
func (app *Application) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
	defer cancel()

	if err := app.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("drain http server: %w", err)
	}

	if app.rateLimiter != nil {
		app.rateLimiter.Close()
	}

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn("Redis close failed", zap.Error(err))
		}
	}

	return nil
}
