package usecase

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/arnegaenz/SIS-sub001/domain/service"
	"github.com/arnegaenz/SIS-sub001/pkg/metrics"
	"github.com/arnegaenz/SIS-sub001/shared/common"
)

// Runner status lines
const (
	StatusNoReport     = "No report run yet."
	StatusInvalidDates = "Please select a valid start and end date."
	StatusLoading      = "Loading sessions..."
	StatusLoadFailed   = "Failed to load report."
)

// ErrReportInFlight is returned while a previous Run is still fetching.
var ErrReportInFlight = common.NewAppError(common.ErrCodeOperationInProgress, "a report is already loading")

// ErrNoReportRows is returned by exports before a report produced rows.
var ErrNoReportRows = common.NewAppError(common.ErrCodeInvalidState, "no report rows to export")

// OutcomeResult is one placement outcome report over a date range
type OutcomeResult struct {
	Start             string               `json:"start"`
	End               string               `json:"end"`
	ExcludeTests      bool                 `json:"excludeTests"`
	TotalSessions     int                  `json:"totalSessions"`
	PlacementsCounted int                  `json:"placementsCounted"`
	Rows              []service.OutcomeRow `json:"rows"`
}

// CSVFilename names the CSV export of the result
func (r *OutcomeResult) CSVFilename() string {
	return service.OutcomesCSVFilename(r.Start, r.End)
}

// PlacementOutcomeUseCase builds placement outcome reports from a session source.
type PlacementOutcomeUseCase struct {
	source  SessionSource
	sso     service.KeySet
	logger  *zap.Logger
	metrics *metrics.Collector
}

// NewPlacementOutcomeUseCase creates the use case
func NewPlacementOutcomeUseCase(source SessionSource, sso service.KeySet, logger *zap.Logger, collector *metrics.Collector) *PlacementOutcomeUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlacementOutcomeUseCase{
		source:  source,
		sso:     sso,
		logger:  logger.Named("placement-outcomes"),
		metrics: collector,
	}
}

// Build fetches every session between start and end, drops test traffic
// when excludeTests is set and rolls the placements up by month and segment.
func (uc *PlacementOutcomeUseCase) Build(ctx context.Context, start, end time.Time, excludeTests bool) (*OutcomeResult, error) {
	timer := metrics.NewTimer()
	startDay, endDay := start.Format(DayLayout), end.Format(DayLayout)

	sessions, err := uc.source.FetchSessions(ctx, service.AllSessions(startDay, endDay))
	if err != nil {
		uc.metrics.RecordAggregation("placement_outcomes", "error", 0, timer.Duration())
		return nil, err
	}
	if excludeTests {
		q := service.AllSessions(startDay, endDay)
		q.IncludeTests = false
		sessions = service.FilterSessions(sessions, q)
	}

	report := service.RollupPlacementOutcomes(sessions, uc.sso)
	uc.metrics.RecordAggregation("placement_outcomes", "ok", len(sessions), timer.Duration())
	uc.logger.Info("Placement outcomes built",
		zap.String("start", startDay),
		zap.String("end", endDay),
		zap.Bool("exclude_tests", excludeTests),
		zap.Int("sessions", len(sessions)),
		zap.Int("placements", report.PlacementsCounted),
		zap.Duration("duration", timer.Duration()))

	return &OutcomeResult{
		Start:             startDay,
		End:               endDay,
		ExcludeTests:      excludeTests,
		TotalSessions:     len(sessions),
		PlacementsCounted: report.PlacementsCounted,
		Rows:              report.Rows,
	}, nil
}

// ReportState is what the report page shows
type ReportState struct {
	Rows            []service.OutcomeRow `json:"rows"`
	Start           string               `json:"start"`
	End             string               `json:"end"`
	TotalSessions   int                  `json:"totalSessions"`
	TotalPlacements int                  `json:"totalPlacements"`
	Status          string               `json:"status"`
	Loading         bool                 `json:"loading"`
}

// Summary renders the summary line for the last completed run.
func (s ReportState) Summary() string {
	if s.Start == "" || s.End == "" {
		return StatusNoReport
	}
	return fmt.Sprintf("Sessions loaded: %s | Placements counted: %s | Range: %s to %s",
		humanize.Comma(int64(s.TotalSessions)),
		humanize.Comma(int64(s.TotalPlacements)),
		s.Start, s.End)
}

// OutcomeReportRunner holds the state of an interactive placement outcome
// report. One run may be loading at a time.
type OutcomeReportRunner struct {
	builder *PlacementOutcomeUseCase

	mu    sync.Mutex
	state ReportState
}

// NewOutcomeReportRunner creates a runner with no report
func NewOutcomeReportRunner(builder *PlacementOutcomeUseCase) *OutcomeReportRunner {
	return &OutcomeReportRunner{builder: builder, state: ReportState{Status: StatusNoReport}}
}

// State returns a copy of the current state
func (r *OutcomeReportRunner) State() ReportState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

func (r *OutcomeReportRunner) snapshot() ReportState {
	s := r.state
	s.Rows = append([]service.OutcomeRow(nil), r.state.Rows...)
	return s
}

// Run loads and aggregates the report for the range. Invalid dates only
// update the status. A failed fetch sets the status to the error message and
// clears rows and totals; the previous range is kept.
func (r *OutcomeReportRunner) Run(ctx context.Context, startValue, endValue string, excludeTests bool) (ReportState, error) {
	start, okStart := ParseDay(startValue)
	end, okEnd := ParseDay(endValue)

	r.mu.Lock()
	if r.state.Loading {
		r.mu.Unlock()
		return ReportState{}, ErrReportInFlight
	}
	if !okStart || !okEnd {
		r.state.Status = StatusInvalidDates
		s := r.snapshot()
		r.mu.Unlock()
		return s, common.NewAppError(common.ErrCodeInvalidInput, StatusInvalidDates)
	}
	r.state.Loading = true
	r.state.Status = StatusLoading
	r.mu.Unlock()

	result, err := r.builder.Build(ctx, start, end, excludeTests)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Loading = false
	if err != nil {
		r.state.Status = failureStatus(err)
		r.state.Rows = nil
		r.state.TotalSessions = 0
		r.state.TotalPlacements = 0
		return r.snapshot(), err
	}

	r.state.Rows = result.Rows
	r.state.Start = result.Start
	r.state.End = result.End
	r.state.TotalSessions = result.TotalSessions
	r.state.TotalPlacements = result.PlacementsCounted
	r.state.Status = r.state.Summary()
	return r.snapshot(), nil
}

func failureStatus(err error) string {
	if appErr := common.GetAppError(err); appErr != nil {
		if appErr.Details != "" {
			return appErr.Details
		}
		if appErr.Message != "" {
			return appErr.Message
		}
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return StatusLoadFailed
}

// CSVFilename names the CSV export of the current range
func (r *OutcomeReportRunner) CSVFilename() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return service.OutcomesCSVFilename(r.state.Start, r.state.End)
}

// ExportCSV writes the current rows as CSV.
func (r *OutcomeReportRunner) ExportCSV(w io.Writer) error {
	rows := r.State().Rows
	if len(rows) == 0 {
		return ErrNoReportRows
	}
	return service.WriteOutcomesCSV(w, rows)
}

// ExportXLSX writes the current rows as an xlsx workbook.
func (r *OutcomeReportRunner) ExportXLSX(w io.Writer) error {
	rows := r.State().Rows
	if len(rows) == 0 {
		return ErrNoReportRows
	}
	return service.WriteOutcomesXLSX(w, rows)
}
