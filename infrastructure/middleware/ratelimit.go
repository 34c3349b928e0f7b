package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/arnegaenz/SIS-sub001/pkg/metrics"
	"github.com/arnegaenz/SIS-sub001/shared/common"
)

// RateLimitConfig configures the per-client token bucket
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	IdleTimeout       time.Duration
	CleanupInterval   time.Duration
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware limits requests per client IP.
type RateLimitMiddleware struct {
	logger  *zap.Logger
	metrics *metrics.Collector
	config  RateLimitConfig

	limiters   map[string]*clientLimiter
	limitersMu sync.Mutex

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewRateLimitMiddleware creates the middleware and starts its cleanup
// loop. Call Close to stop it.
func NewRateLimitMiddleware(logger *zap.Logger, collector *metrics.Collector, config RateLimitConfig) *RateLimitMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = 20
	}
	if config.BurstSize <= 0 {
		config.BurstSize = int(config.RequestsPerSecond * 2)
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = 10 * time.Minute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}

	m := &RateLimitMiddleware{
		logger:   logger.Named("ratelimit"),
		metrics:  collector,
		config:   config,
		limiters: make(map[string]*clientLimiter),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go m.cleanupLimiters()
	return m
}

// Handler returns the gin middleware
func (m *RateLimitMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		limiter := m.limiterFor(ip, time.Now())

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Burst()))
		if !limiter.Allow() {
			retryAfter := time.Duration(float64(time.Second) / m.config.RequestsPerSecond)
			if retryAfter < time.Second {
				retryAfter = time.Second
			}
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))

			m.logger.Warn("Request blocked by rate limit",
				zap.String("client_ip", ip),
				zap.String("path", c.Request.URL.Path))
			m.metrics.RecordError("rate_limited", "http")

			appErr := common.ErrRateLimited()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":        appErr.Code,
				"message":     appErr.Message,
				"retry_after": int(retryAfter.Seconds()),
			})
			return
		}
		c.Header("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))
		c.Next()
	}
}

func (m *RateLimitMiddleware) limiterFor(key string, now time.Time) *rate.Limiter {
	m.limitersMu.Lock()
	defer m.limitersMu.Unlock()

	cl, ok := m.limiters[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(m.config.RequestsPerSecond), m.config.BurstSize)}
		m.limiters[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// ActiveLimiters returns the number of tracked clients
func (m *RateLimitMiddleware) ActiveLimiters() int {
	m.limitersMu.Lock()
	defer m.limitersMu.Unlock()
	return len(m.limiters)
}

// evictIdle drops limiters not used since before now-IdleTimeout.
func (m *RateLimitMiddleware) evictIdle(now time.Time) int {
	m.limitersMu.Lock()
	defer m.limitersMu.Unlock()

	evicted := 0
	for key, cl := range m.limiters {
		if now.Sub(cl.lastSeen) > m.config.IdleTimeout {
			delete(m.limiters, key)
			evicted++
		}
	}
	return evicted
}

func (m *RateLimitMiddleware) cleanupLimiters() {
	defer close(m.done)
	ticker := time.NewTicker(m.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case now := <-ticker.C:
			if n := m.evictIdle(now); n > 0 {
				m.logger.Debug("Rate limiter cleanup",
					zap.Int("evicted", n),
					zap.Int("active_limiters", m.ActiveLimiters()))
			}
		}
	}
}

// Close stops the cleanup loop and waits for it to exit.
func (m *RateLimitMiddleware) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
	<-m.done
}
