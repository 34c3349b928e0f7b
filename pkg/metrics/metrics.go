package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Config struct {
	Enabled   bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Namespace string `json:"namespace" yaml:"namespace" mapstructure:"namespace"`
	Path      string `json:"path" yaml:"path" mapstructure:"path"`
}

// Collector owns a private registry with the HTTP, aggregation, cache and
// upstream series. All Record methods are no-ops on a nil Collector, so
// components built without metrics can still call them.
type Collector struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInFlight *prometheus.GaugeVec
	errors       *prometheus.CounterVec

	aggregations        *prometheus.CounterVec
	aggregationDuration *prometheus.HistogramVec
	recordsProcessed    *prometheus.CounterVec
	registryAdded       prometheus.Counter

	cacheOps *prometheus.CounterVec
	upstream *prometheus.CounterVec
}

func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: namespace}),
	)
	f := promauto.With(reg)

	f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "start_time_seconds",
		Help:      "Unix time the service started.",
	}).SetToCurrentTime()

	return &Collector{
		registry: reg,
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "endpoint", "status_code"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "endpoint", "status_code"}),
		httpInFlight: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "HTTP requests being served.",
		}, []string{"method", "endpoint"}),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors by type and component.",
		}, []string{"error_type", "component"}),
		aggregations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregation_runs_total",
			Help:      "Report, rollup and reconcile runs by outcome.",
		}, []string{"aggregation", "status"}),
		aggregationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregation_duration_seconds",
			Help:      "Wall time of one aggregation run.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 9),
		}, []string{"aggregation"}),
		recordsProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_processed_total",
			Help:      "Sessions, placements or snapshot entries fed into aggregations.",
		}, []string{"aggregation"}),
		registryAdded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registry_entries_added_total",
			Help:      "FI registry entries added by reconciliation.",
		}),
		cacheOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Data cache operations by result.",
		}, []string{"operation", "result"}),
		upstream: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Calls to GA and the troubleshoot API.",
		}, []string{"upstream", "status"}),
	}
}

func (c *Collector) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if c == nil {
		return
	}
	status := strconv.Itoa(statusCode)
	c.httpRequests.WithLabelValues(method, endpoint, status).Inc()
	c.httpDuration.WithLabelValues(method, endpoint, status).Observe(duration.Seconds())
}

func (c *Collector) RecordHTTPRequestInFlight(method, endpoint string, delta float64) {
	if c == nil {
		return
	}
	c.httpInFlight.WithLabelValues(method, endpoint).Add(delta)
}

func (c *Collector) RecordError(errorType, component string) {
	if c == nil {
		return
	}
	c.errors.WithLabelValues(errorType, component).Inc()
}

// RecordAggregation counts one run of aggregation over records inputs.
func (c *Collector) RecordAggregation(aggregation, status string, records int, duration time.Duration) {
	if c == nil {
		return
	}
	c.aggregations.WithLabelValues(aggregation, status).Inc()
	c.aggregationDuration.WithLabelValues(aggregation).Observe(duration.Seconds())
	if records > 0 {
		c.recordsProcessed.WithLabelValues(aggregation).Add(float64(records))
	}
}

func (c *Collector) RecordRegistryAdditions(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.registryAdded.Add(float64(n))
}

func (c *Collector) RecordCacheOperation(operation, result string) {
	if c == nil {
		return
	}
	c.cacheOps.WithLabelValues(operation, result).Inc()
}

// RecordUpstreamRequest counts a call to upstream ("ga", "ga_realtime" or
// "troubleshoot") by status.
func (c *Collector) RecordUpstreamRequest(upstream, status string) {
	if c == nil {
		return
	}
	c.upstream.WithLabelValues(upstream, status).Inc()
}

func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}

// CreateHandler serves the collector's registry in the Prometheus text or
// OpenMetrics format.
func (c *Collector) CreateHandler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
