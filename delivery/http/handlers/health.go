package handlers

import (
	"context"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arnegaenz/SIS-sub001/infrastructure/cache"
)

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
)

// Pinger is implemented by cache backends behind a network connection
type Pinger interface {
	Ping(ctx context.Context) error
}

// ServiceInfo identifies the running service in health responses
type ServiceInfo struct {
	Name        string
	Version     string
	Environment string
}

// HealthHandler serves /health and the liveness and readiness probes
type HealthHandler struct {
	logger    *zap.Logger
	info      ServiceInfo
	cache     *cache.DataCache
	pinger    Pinger
	dataDirs  map[string]string
	registry  string
	startTime time.Time
}

// NewHealthHandler creates a new health handler. dataCache and pinger may be
// nil; dataDirs names the directories that must exist for the service to
// serve data.
func NewHealthHandler(logger *zap.Logger, info ServiceInfo, dataCache *cache.DataCache, pinger Pinger, dataDirs map[string]string, registryFile string) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{
		logger:    logger.Named("health"),
		info:      info,
		cache:     dataCache,
		pinger:    pinger,
		dataDirs:  dataDirs,
		registry:  registryFile,
		startTime: time.Now(),
	}
}

type HealthResponse struct {
	Status      string                 `json:"status"`
	Timestamp   time.Time              `json:"timestamp"`
	Service     string                 `json:"service"`
	Version     string                 `json:"version"`
	Environment string                 `json:"environment"`
	Uptime      string                 `json:"uptime"`
	Checks      map[string]HealthCheck `json:"checks,omitempty"`
}

// HealthCheck is the result of one probe
type HealthCheck struct {
	Status     string      `json:"status"`
	Message    string      `json:"message,omitempty"`
	DurationMS int64       `json:"duration_ms"`
	Timestamp  time.Time   `json:"timestamp"`
	Details    interface{} `json:"details,omitempty"`
}

func (h *HealthHandler) response(status string, checks map[string]HealthCheck) HealthResponse {
	return HealthResponse{
		Status:      status,
		Timestamp:   time.Now(),
		Service:     h.info.Name,
		Version:     h.info.Version,
		Environment: h.info.Environment,
		Uptime:      time.Since(h.startTime).Round(time.Second).String(),
		Checks:      checks,
	}
}

// Health checks the cache and data directories
func (h *HealthHandler) Health(c *gin.Context) {
	h.respond(c, statusHealthy, statusUnhealthy, map[string]HealthCheck{
		"cache": h.checkCache(c.Request.Context()),
		"data":  h.checkData(),
	})
}

// Liveness reports that the process is serving requests
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, h.response("alive", nil))
}

// Readiness additionally requires the FI registry to be present
func (h *HealthHandler) Readiness(c *gin.Context) {
	h.respond(c, "ready", "not_ready", map[string]HealthCheck{
		"cache":    h.checkCache(c.Request.Context()),
		"data":     h.checkData(),
		"registry": h.checkRegistry(),
	})
}

func (h *HealthHandler) respond(c *gin.Context, okStatus, failStatus string, checks map[string]HealthCheck) {
	var failed []string
	for name, check := range checks {
		if check.Status != statusHealthy {
			failed = append(failed, name)
		}
	}
	sort.Strings(failed)

	status, code := okStatus, http.StatusOK
	if len(failed) > 0 {
		status, code = failStatus, http.StatusServiceUnavailable
		h.logger.Warn("Health probe failing", zap.String("path", c.FullPath()), zap.Strings("failed", failed))
	}
	c.JSON(code, h.response(status, checks))
}

// probe stamps a check result with the time spent since start.
func probe(start time.Time, ok bool, message string, details interface{}) HealthCheck {
	status := statusHealthy
	if !ok {
		status = statusUnhealthy
	}
	now := time.Now()
	return HealthCheck{
		Status:     status,
		Message:    message,
		DurationMS: now.Sub(start).Milliseconds(),
		Timestamp:  now,
		Details:    details,
	}
}

// checkCache pings the cache backend and reports occupancy. A service
// running without a cache is healthy.
func (h *HealthHandler) checkCache(ctx context.Context) HealthCheck {
	start := time.Now()
	if h.cache == nil {
		return probe(start, true, "Cache disabled", nil)
	}
	if h.pinger != nil {
		if err := h.pinger.Ping(ctx); err != nil {
			return probe(start, false, "Cache connection failed: "+err.Error(), nil)
		}
	}

	stats := h.cache.Stats(ctx)
	if stats.Error != "" {
		return probe(start, false, "Cache listing failed: "+stats.Error, stats)
	}
	return probe(start, true, "Cache available", stats)
}

// checkData verifies the data directories exist
func (h *HealthHandler) checkData() HealthCheck {
	start := time.Now()

	names := make([]string, 0, len(h.dataDirs))
	for name := range h.dataDirs {
		names = append(names, name)
	}
	sort.Strings(names)

	var missing []string
	for _, name := range names {
		if info, err := os.Stat(h.dataDirs[name]); err != nil || !info.IsDir() {
			missing = append(missing, name+" directory missing: "+h.dataDirs[name])
		}
	}
	if len(missing) > 0 {
		return probe(start, false, "Data directories missing", map[string][]string{"issues": missing})
	}
	return probe(start, true, "Data directories present", nil)
}

func (h *HealthHandler) checkRegistry() HealthCheck {
	start := time.Now()
	if _, err := os.Stat(h.registry); err != nil {
		return probe(start, false, "FI registry not readable", map[string]string{"path": h.registry})
	}
	return probe(start, true, "FI registry present", nil)
}
