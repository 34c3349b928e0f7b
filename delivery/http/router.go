package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arnegaenz/SIS-sub001/delivery/http/handlers"
	"github.com/arnegaenz/SIS-sub001/infrastructure/middleware"
	"github.com/arnegaenz/SIS-sub001/pkg/metrics"
)

// RouterConfig holds everything the router mounts
type RouterConfig struct {
	Logger      *zap.Logger
	Metrics     *metrics.Collector
	MetricsPath string
	// RateLimiter is optional; nil serves without a limit
	RateLimiter *middleware.RateLimitMiddleware

	Health  *handlers.HealthHandler
	Data    *handlers.DataHandler
	Reports *handlers.ReportHandler
	Static  *handlers.StaticHandler
}

// NewRouter builds the gin engine with global middleware and all routes.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()

	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(logger.Named("http")))
	router.Use(middleware.CORS())
	if cfg.Metrics != nil {
		router.Use(middleware.Metrics(cfg.Metrics))
	}

	health := router.Group("/health")
	{
		health.GET("", cfg.Health.Health)
		health.GET("/live", cfg.Health.Liveness)
		health.GET("/ready", cfg.Health.Readiness)
	}

	if cfg.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(cfg.Metrics.CreateHandler()))
	}

	limited := router.Group("")
	if cfg.RateLimiter != nil {
		limited.Use(cfg.RateLimiter.Handler())
	}

	limited.GET("/troubleshoot/day", cfg.Data.TroubleshootDay)
	limited.GET("/list-daily", cfg.Data.ListDaily)
	limited.GET("/daily", cfg.Data.Daily)
	limited.GET("/fi-registry", cfg.Data.FIRegistry)

	api := limited.Group("/api")
	{
		api.GET("/data-version", cfg.Data.DataVersion)

		reports := api.Group("/reports")
		reports.GET("/sessions", cfg.Reports.Sessions)
		reports.GET("/merchants", cfg.Reports.Merchants)
		reports.GET("/placement-outcomes", cfg.Reports.PlacementOutcomes)
		reports.GET("/placement-outcomes/state", cfg.Reports.OutcomeState)
		reports.POST("/placement-outcomes/run", cfg.Reports.RunOutcomes)
		reports.GET("/placement-outcomes/export", cfg.Reports.ExportOutcomes)
	}

	router.NoRoute(cfg.Static.Serve)
	return router
}
