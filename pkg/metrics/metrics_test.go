package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordHTTPRequest("GET", "/health", 200, time.Millisecond)
		c.RecordHTTPRequestInFlight("GET", "/health", 1)
		c.RecordError("rate_limited", "http")
		c.RecordAggregation("sessions", "ok", 3, time.Millisecond)
		c.RecordRegistryAdditions(2)
		c.RecordCacheOperation("get", "hit")
		c.RecordUpstreamRequest("ga", "ok")
	})
}

func TestRecordAggregation(t *testing.T) {
	c := NewCollector("insights")

	c.RecordAggregation("placement_outcomes", "ok", 10, 20*time.Millisecond)
	c.RecordAggregation("placement_outcomes", "error", 0, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.aggregations.WithLabelValues("placement_outcomes", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.aggregations.WithLabelValues("placement_outcomes", "error")))
	assert.Equal(t, 10.0, testutil.ToFloat64(c.recordsProcessed.WithLabelValues("placement_outcomes")))
}

func TestRegistryAdditionsIgnoresZero(t *testing.T) {
	c := NewCollector("insights")
	c.RecordRegistryAdditions(0)
	c.RecordRegistryAdditions(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(c.registryAdded))
}

func TestCreateHandlerExposesSeries(t *testing.T) {
	c := NewCollector("insights")
	c.RecordCacheOperation("get", "miss")
	c.RecordUpstreamRequest("troubleshoot", "ok")

	w := httptest.NewRecorder()
	c.CreateHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `insights_cache_operations_total{operation="get",result="miss"} 1`)
	assert.Contains(t, body, `insights_upstream_requests_total{status="ok",upstream="troubleshoot"} 1`)
	assert.Contains(t, body, "insights_start_time_seconds")
}
