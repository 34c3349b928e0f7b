package analytics

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	analyticsdata "google.golang.org/api/analyticsdata/v1beta"
	"google.golang.org/api/option"

	"github.com/arnegaenz/SIS-sub001/pkg/metrics"
)

// ReportRequest describes one GA4 report
type ReportRequest struct {
	StartDate  string
	EndDate    string
	Dimensions []string
	Metrics    []string
	Limit      int64
}

// ReportRow holds one row's dimension and metric values in request order
type ReportRow struct {
	Dimensions []string
	Metrics    []string
}

// Reporter runs GA4 Data API reports.
type Reporter interface {
	RunReport(ctx context.Context, req ReportRequest) ([]ReportRow, error)
	RunRealtimeReport(ctx context.Context, req ReportRequest) ([]ReportRow, error)
}

// GoogleReporter is a Reporter over the GA4 Data API.
type GoogleReporter struct {
	service    *analyticsdata.Service
	propertyID string
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
	metrics    *metrics.Collector
}

// NewGoogleReporter authenticates with the service account key file in cfg.
func NewGoogleReporter(ctx context.Context, cfg Config, logger *zap.Logger, collector *metrics.Collector) (*GoogleReporter, error) {
	if cfg.PropertyID == "" {
		return nil, errors.New("analytics property id is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("ga-reporter")

	opts := []option.ClientOption{option.WithScopes(analyticsdata.AnalyticsReadonlyScope)}
	if cfg.KeyFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.KeyFile))
	}
	svc, err := analyticsdata.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create analytics data client")
	}

	return &GoogleReporter{
		service:    svc,
		propertyID: cfg.PropertyID,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "ga-data-api",
			MaxRequests: 1,
			Interval:    5 * time.Minute,
			Timeout:     time.Minute,
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
	}, nil
}

func (r *GoogleReporter) property() string {
	return "properties/" + r.propertyID
}

// RunReport runs a standard report over the request's date range.
func (r *GoogleReporter) RunReport(ctx context.Context, req ReportRequest) ([]ReportRow, error) {
	body := &analyticsdata.RunReportRequest{
		DateRanges: []*analyticsdata.DateRange{{StartDate: req.StartDate, EndDate: req.EndDate}},
		Dimensions: dimensions(req.Dimensions),
		Metrics:    metricList(req.Metrics),
		Limit:      req.Limit,
	}
	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.service.Properties.RunReport(r.property(), body).Context(ctx).Do()
	})
	if err != nil {
		r.metrics.RecordUpstreamRequest("ga", "error")
		return nil, errors.Wrapf(err, "GA report %s..%s failed", req.StartDate, req.EndDate)
	}
	r.metrics.RecordUpstreamRequest("ga", "ok")
	return convertRows(result.(*analyticsdata.RunReportResponse).Rows), nil
}

// RunRealtimeReport runs a report over the last 30 minutes; dates are ignored.
func (r *GoogleReporter) RunRealtimeReport(ctx context.Context, req ReportRequest) ([]ReportRow, error) {
	body := &analyticsdata.RunRealtimeReportRequest{
		Dimensions: dimensions(req.Dimensions),
		Metrics:    metricList(req.Metrics),
		Limit:      req.Limit,
	}
	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.service.Properties.RunRealtimeReport(r.property(), body).Context(ctx).Do()
	})
	if err != nil {
		r.metrics.RecordUpstreamRequest("ga_realtime", "error")
		return nil, errors.Wrap(err, "GA realtime report failed")
	}
	r.metrics.RecordUpstreamRequest("ga_realtime", "ok")
	return convertRows(result.(*analyticsdata.RunRealtimeReportResponse).Rows), nil
}

func dimensions(names []string) []*analyticsdata.Dimension {
	out := make([]*analyticsdata.Dimension, len(names))
	for i, n := range names {
		out[i] = &analyticsdata.Dimension{Name: n}
	}
	return out
}

func metricList(names []string) []*analyticsdata.Metric {
	out := make([]*analyticsdata.Metric, len(names))
	for i, n := range names {
		out[i] = &analyticsdata.Metric{Name: n}
	}
	return out
}

func convertRows(rows []*analyticsdata.Row) []ReportRow {
	out := make([]ReportRow, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		r := ReportRow{
			Dimensions: make([]string, len(row.DimensionValues)),
			Metrics:    make([]string, len(row.MetricValues)),
		}
		for i, v := range row.DimensionValues {
			if v != nil {
				r.Dimensions[i] = v.Value
			}
		}
		for i, v := range row.MetricValues {
			if v != nil {
				r.Metrics[i] = v.Value
			}
		}
		out = append(out, r)
	}
	return out
}
