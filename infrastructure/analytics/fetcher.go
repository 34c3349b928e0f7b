package analytics

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arnegaenz/SIS-sub001/domain/entity"
)

// Default report shape
var (
	DefaultDimensions = []string{"date", "hostName", "pagePath", "hour"}
	DefaultMetrics    = []string{"screenPageViews", "activeUsers"}
)

// DefaultLimit caps the rows of one report
const DefaultLimit = 10000

// Config selects the GA4 property and the report shape
type Config struct {
	PropertyID string
	KeyFile    string
	Dimensions []string
	Metrics    []string
	Limit      int64
	Timeout    time.Duration
}

func (c Config) withDefaults() Config {
	if len(c.Dimensions) == 0 {
		c.Dimensions = DefaultDimensions
	}
	if len(c.Metrics) == 0 {
		c.Metrics = DefaultMetrics
	}
	if c.Limit <= 0 {
		c.Limit = DefaultLimit
	}
	return c
}

// Fetcher turns GA4 reports into GA rows keyed by FI and instance.
type Fetcher struct {
	reporter Reporter
	cfg      Config
	logger   *zap.Logger
}

// NewFetcher creates a Fetcher using reporter
func NewFetcher(reporter Reporter, cfg Config, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{reporter: reporter, cfg: cfg.withDefaults(), logger: logger.Named("ga-fetcher")}
}

func (f *Fetcher) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if f.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, f.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

// FetchRows fetches every row between start and end inclusive. Rows with
// neither host nor page are skipped; row dates fall back to start when GA
// reports none.
func (f *Fetcher) FetchRows(ctx context.Context, start, end string) ([]entity.GARow, error) {
	ctx, cancel := f.withTimeout(ctx)
	defer cancel()

	report, err := f.reporter.RunReport(ctx, ReportRequest{
		StartDate:  start,
		EndDate:    end,
		Dimensions: f.cfg.Dimensions,
		Metrics:    f.cfg.Metrics,
		Limit:      f.cfg.Limit,
	})
	if err != nil {
		return nil, err
	}

	cols := newColumns(f.cfg.Dimensions, f.cfg.Metrics)
	rows := make([]entity.GARow, 0, len(report))
	for _, r := range report {
		host := cols.dim(r, "hostName")
		page := cols.dim(r, "pagePath")
		if host == "" && page == "" {
			continue
		}

		row := entity.GARow{
			Date:         NormalizeGADate(cols.dim(r, "date"), start),
			Host:         host,
			Page:         page,
			Hour:         cols.dim(r, "hour"),
			Views:        cols.metric(r, "screenPageViews"),
			ActiveUsers:  cols.metric(r, "activeUsers"),
			IsFunnelPage: IsFunnelPage(page),
		}
		if fi := ResolveFIFromHost(host); fi != nil {
			row.FIKey = strings.ToLower(fi.FIKey)
			row.Instance = fi.Instance
			row.IsCardUpdatr = fi.IsCardUpdatr
		}
		rows = append(rows, row)
	}

	f.logger.Debug("GA rows fetched",
		zap.String("start", start),
		zap.String("end", end),
		zap.Int("report_rows", len(report)),
		zap.Int("rows", len(rows)))
	return rows, nil
}

// FetchDay fetches one day and attributes every row to it.
func (f *Fetcher) FetchDay(ctx context.Context, day string) ([]entity.GARow, error) {
	rows, err := f.FetchRows(ctx, day, day)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Date = day
	}
	return rows, nil
}

// RealtimeRow is one screen seen in the last 30 minutes
type RealtimeRow struct {
	Screen     string `json:"screen"`
	MinutesAgo string `json:"minutesAgo"`
	Views      int64  `json:"views"`
}

// Freshness describes how much of a day GA has processed
type Freshness struct {
	Date          string         `json:"date"`
	Rows          int            `json:"rows"`
	Hosts         []string       `json:"hosts"`
	HourCounts    map[string]int `json:"hourCounts"`
	Realtime      []RealtimeRow  `json:"realtime"`
	RealtimeError string         `json:"realtimeError,omitempty"`
}

// CheckFreshness reports the hosts and per-hour row counts GA has for day,
// plus the realtime activity of the last 30 minutes. A failing realtime
// report is recorded on the result instead of failing the check.
func (f *Fetcher) CheckFreshness(ctx context.Context, day string) (*Freshness, error) {
	ctx, cancel := f.withTimeout(ctx)
	defer cancel()

	dims := []string{"hostName", "pagePath", "hour"}
	report, err := f.reporter.RunReport(ctx, ReportRequest{
		StartDate:  day,
		EndDate:    day,
		Dimensions: dims,
		Metrics:    []string{"screenPageViews"},
		Limit:      1000,
	})
	if err != nil {
		return nil, err
	}

	cols := newColumns(dims, []string{"screenPageViews"})
	out := &Freshness{Date: day, Rows: len(report), Hosts: []string{}, HourCounts: map[string]int{}}
	seen := make(map[string]struct{})
	for _, r := range report {
		host := cols.dim(r, "hostName")
		if _, ok := seen[host]; !ok && host != "" {
			seen[host] = struct{}{}
			out.Hosts = append(out.Hosts, host)
		}
		out.HourCounts[cols.dim(r, "hour")]++
	}
	sort.Strings(out.Hosts)

	rtDims := []string{"unifiedScreenName", "minutesAgo"}
	realtime, err := f.reporter.RunRealtimeReport(ctx, ReportRequest{
		Dimensions: rtDims,
		Metrics:    []string{"screenPageViews"},
		Limit:      1000,
	})
	if err != nil {
		f.logger.Warn("Realtime check failed", zap.Error(err))
		out.RealtimeError = err.Error()
		return out, nil
	}
	rtCols := newColumns(rtDims, []string{"screenPageViews"})
	for _, r := range realtime {
		out.Realtime = append(out.Realtime, RealtimeRow{
			Screen:     rtCols.dim(r, "unifiedScreenName"),
			MinutesAgo: rtCols.dim(r, "minutesAgo"),
			Views:      rtCols.metric(r, "screenPageViews"),
		})
	}
	return out, nil
}

// columns maps dimension and metric names to their position in a row
type columns struct {
	dims    map[string]int
	metrics map[string]int
}

func newColumns(dims, metrics []string) columns {
	c := columns{dims: make(map[string]int), metrics: make(map[string]int)}
	for i, d := range dims {
		c.dims[d] = i
	}
	for i, m := range metrics {
		c.metrics[m] = i
	}
	return c
}

func (c columns) dim(r ReportRow, name string) string {
	i, ok := c.dims[name]
	if !ok || i >= len(r.Dimensions) {
		return ""
	}
	return r.Dimensions[i]
}

func (c columns) metric(r ReportRow, name string) int64 {
	i, ok := c.metrics[name]
	if !ok || i >= len(r.Metrics) {
		return 0
	}
	v, err := strconv.ParseFloat(r.Metrics[i], 64)
	if err != nil {
		return 0
	}
	return int64(v)
}
