package usecase

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/arnegaenz/SIS-sub001/domain/entity"
	"github.com/arnegaenz/SIS-sub001/domain/service"
	"github.com/arnegaenz/SIS-sub001/pkg/metrics"
	"github.com/arnegaenz/SIS-sub001/shared/common"
)

// MerchantReport bundles the merchant level views of a placement range
type MerchantReport struct {
	Start           string                          `json:"start"`
	End             string                          `json:"end"`
	Placements      int                             `json:"placements"`
	Merchants       []*service.MerchantSummary      `json:"merchants"`
	Health          *service.MerchantHealthReport   `json:"health"`
	PlacementHealth []*service.PlacementHealthStats `json:"placementHealth"`
	ByFI            *service.PlacementAggregate     `json:"byFi"`
}

// SessionReport is the session aggregate of a range
type SessionReport struct {
	Start    string                    `json:"start"`
	End      string                    `json:"end"`
	Sessions int                       `json:"sessions"`
	FIs      []*service.SessionBucket  `json:"fis"`
	Summary  *service.SessionAggregate `json:"summary"`
}

// ReportUseCase builds the session and merchant reports.
type ReportUseCase struct {
	sessions SessionSource
	raw      RawRecordReader
	sso      service.KeySet
	logger   *zap.Logger
	metrics  *metrics.Collector
}

// NewReportUseCase creates the use case. Placements are read from raw.
func NewReportUseCase(sessions SessionSource, raw RawRecordReader, sso service.KeySet, logger *zap.Logger, collector *metrics.Collector) *ReportUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportUseCase{
		sessions: sessions,
		raw:      raw,
		sso:      sso,
		logger:   logger.Named("reports"),
		metrics:  collector,
	}
}

// Sessions aggregates every session in the range per FI and SSO segment.
func (uc *ReportUseCase) Sessions(ctx context.Context, start, end time.Time) (*SessionReport, error) {
	timer := metrics.NewTimer()
	startDay, endDay := start.Format(DayLayout), end.Format(DayLayout)

	sessions, err := uc.sessions.FetchSessions(ctx, service.AllSessions(startDay, endDay))
	if err != nil {
		uc.metrics.RecordAggregation("sessions", "error", 0, timer.Duration())
		return nil, err
	}
	agg := service.AggregateSessions(sessions, uc.sso)
	uc.metrics.RecordAggregation("sessions", "ok", len(sessions), timer.Duration())

	return &SessionReport{
		Start:    startDay,
		End:      endDay,
		Sessions: len(sessions),
		FIs:      agg.SortedFIs(),
		Summary:  agg,
	}, nil
}

// Placements returns the raw placements of every day in the range.
func (uc *ReportUseCase) Placements(ctx context.Context, start, end time.Time) ([]interface{}, error) {
	days := EachDay(start, end)
	if len(days) > MaxRangeDays {
		return nil, common.NewAppErrorWithDetails(common.ErrCodeInvalidInput,
			"date range too long", "at most 400 days per request")
	}
	var out []interface{}
	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := uc.raw.ReadRecords(entity.RawPlacements, day)
		if common.HasErrorCode(err, common.ErrCodeNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

// Merchants summarizes the placements of the range per merchant.
func (uc *ReportUseCase) Merchants(ctx context.Context, start, end time.Time) (*MerchantReport, error) {
	timer := metrics.NewTimer()
	placements, err := uc.Placements(ctx, start, end)
	if err != nil {
		uc.metrics.RecordAggregation("merchants", "error", 0, timer.Duration())
		return nil, err
	}

	summaries := service.SummarizeMerchantFailures(placements, uc.sso)
	report := &MerchantReport{
		Start:           start.Format(DayLayout),
		End:             end.Format(DayLayout),
		Placements:      len(placements),
		Merchants:       summaries,
		Health:          service.BuildMerchantHealth(summaries),
		PlacementHealth: service.SummarizePlacementHealth(placements),
		ByFI:            service.AggregatePlacementsByFI(placements, uc.sso),
	}
	uc.metrics.RecordAggregation("merchants", "ok", len(placements), timer.Duration())
	return report, nil
}

// WriteConsoleReport prints the session, placement and merchant reports for
// the range. top limits the merchant outcome list; 0 prints every merchant.
func (uc *ReportUseCase) WriteConsoleReport(ctx context.Context, w io.Writer, start, end time.Time, top int) error {
	sessions, err := uc.Sessions(ctx, start, end)
	if err != nil {
		return err
	}
	merchants, err := uc.Merchants(ctx, start, end)
	if err != nil {
		return err
	}

	service.WriteSessionSummary(w, sessions.Summary)
	service.WritePlacementSummary(w, merchants.ByFI, merchants.Merchants)
	service.WriteMerchantReport(w, merchants.Merchants, top)
	service.WriteMerchantHealth(w, merchants.Health)
	service.WritePlacementHealth(w, merchants.PlacementHealth)

	uc.logger.Debug("Console report written",
		zap.String("start", sessions.Start),
		zap.String("end", sessions.End),
		zap.Int("sessions", sessions.Sessions),
		zap.Int("placements", merchants.Placements))
	return nil
}
