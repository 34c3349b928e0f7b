package upstream

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/arnegaenz/SIS-sub001/domain/service"
	"github.com/arnegaenz/SIS-sub001/pkg/metrics"
	"github.com/arnegaenz/SIS-sub001/shared/common"
)

const maxErrorBody = 4 << 10

func queryValues(q service.SessionQuery) url.Values {
	q = q.WithDefaults()
	v := url.Values{}
	v.Set("start", q.Start)
	v.Set("end", q.End)
	v.Set("includeTests", strconv.FormatBool(q.IncludeTests))
	v.Set("fi", q.FI)
	v.Set("partner", q.Partner)
	v.Set("integration", q.Integration)
	v.Set("instance", q.Instance)
	return v
}

// DayResponse is the body of GET /troubleshoot/day
type DayResponse struct {
	Sessions []interface{} `json:"sessions"`
	FIName   string        `json:"fiName,omitempty"`
}

// TroubleshootClient calls a remote insights service.
type TroubleshootClient struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
	metrics *metrics.Collector
}

// NewTroubleshootClient creates a client for baseURL. Trailing slashes are
// dropped.
func NewTroubleshootClient(baseURL string, timeout time.Duration, logger *zap.Logger, collector *metrics.Collector) *TroubleshootClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	logger = logger.Named("troubleshoot-client")

	return &TroubleshootClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "troubleshoot-api",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.Info("Circuit breaker state changed",
					zap.String("name", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		}),
		logger:  logger,
		metrics: collector,
	}
}

// FetchSessions returns the sessions matching q from GET /troubleshoot/day.
func (c *TroubleshootClient) FetchSessions(ctx context.Context, q service.SessionQuery) ([]interface{}, error) {
	var resp DayResponse
	if err := c.getJSON(ctx, "/troubleshoot/day", queryValues(q), &resp); err != nil {
		return nil, err
	}
	if resp.Sessions == nil {
		return []interface{}{}, nil
	}
	return resp.Sessions, nil
}

// DataVersion returns the remote data version.
func (c *TroubleshootClient) DataVersion(ctx context.Context) (string, error) {
	var resp struct {
		Version string `json:"version"`
	}
	if err := c.getJSON(ctx, "/api/data-version", nil, &resp); err != nil {
		return "", err
	}
	return resp.Version, nil
}

func (c *TroubleshootClient) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			return nil, errors.Errorf("Failed to fetch sessions: %d %s %s",
				resp.StatusCode, http.StatusText(resp.StatusCode), strings.TrimSpace(string(body)))
		}
		return nil, json.NewDecoder(resp.Body).Decode(out)
	})
	if err != nil {
		c.metrics.RecordUpstreamRequest("troubleshoot", "error")
		c.logger.Warn("Upstream request failed", zap.String("path", path), zap.Error(err))
		appErr := common.ErrExternalService("troubleshoot", err)
		appErr.Details = err.Error()
		return appErr
	}
	c.metrics.RecordUpstreamRequest("troubleshoot", "ok")
	return nil
}
