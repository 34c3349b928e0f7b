package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/arnegaenz/SIS-sub001/domain/entity"
	"github.com/arnegaenz/SIS-sub001/domain/service"
	"github.com/arnegaenz/SIS-sub001/pkg/metrics"
	"github.com/arnegaenz/SIS-sub001/shared/common"
)

// GADayFetcher fetches the GA rows of one day
type GADayFetcher interface {
	FetchDay(ctx context.Context, day string) ([]entity.GARow, error)
}

// RawDayReader reads raw day files
type RawDayReader interface {
	ReadRecords(t entity.RawType, day string) ([]interface{}, error)
	ReadGARows(day string) ([]entity.GARow, error)
}

// SnapshotWriter persists daily snapshots
type SnapshotWriter interface {
	Save(doc *entity.DailySnapshot) (string, error)
}

// DailyBuildOptions tunes DailyRollupBuilder
type DailyBuildOptions struct {
	// Concurrency bounds the days built in parallel
	Concurrency int
	// ForceGAToday fetches today's GA rows for every day and re-dates them.
	ForceGAToday bool
}

// DailyBuildResult lists what Build wrote
type DailyBuildResult struct {
	Days       []string `json:"days"`
	GAFailures []string `json:"gaFailures,omitempty"`
}

// DailyRollupBuilder writes one snapshot per day from GA rows and the raw
// session and placement files.
type DailyRollupBuilder struct {
	ga        GADayFetcher
	raw       RawDayReader
	snapshots SnapshotWriter
	opts      DailyBuildOptions
	logger    *zap.Logger
	metrics   *metrics.Collector
	now       func() time.Time
}

// NewDailyRollupBuilder creates a builder. When ga is nil GA rows are read
// from the raw GA files instead.
func NewDailyRollupBuilder(ga GADayFetcher, raw RawDayReader, snapshots SnapshotWriter, opts DailyBuildOptions, logger *zap.Logger, collector *metrics.Collector) *DailyRollupBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &DailyRollupBuilder{
		ga:        ga,
		raw:       raw,
		snapshots: snapshots,
		opts:      opts,
		logger:    logger.Named("daily-builder"),
		metrics:   collector,
		now:       time.Now,
	}
}

// Build writes the snapshot of every day from start to end inclusive. GA
// failures leave that day's GA section empty; any other failure stops the
// build.
func (b *DailyRollupBuilder) Build(ctx context.Context, start, end string) (*DailyBuildResult, error) {
	startDay, ok := ParseDay(start)
	if !ok {
		return nil, common.ErrInvalidInput("start")
	}
	endDay, ok := ParseDay(end)
	if !ok {
		return nil, common.ErrInvalidInput("end")
	}
	days := EachDay(startDay, endDay)
	timer := metrics.NewTimer()
	b.logger.Info("Building daily files",
		zap.String("start", startDay.Format(DayLayout)),
		zap.String("end", endDay.Format(DayLayout)),
		zap.Int("days", len(days)))

	result := &DailyBuildResult{Days: []string{}}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Concurrency)
	for _, day := range days {
		day := day
		g.Go(func() error {
			gaFailed, err := b.buildDay(gctx, day)
			if err != nil {
				return err
			}
			mu.Lock()
			result.Days = append(result.Days, day)
			if gaFailed {
				result.GAFailures = append(result.GAFailures, day)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		b.metrics.RecordAggregation("daily_rollup", "error", len(result.Days), timer.Duration())
		return nil, err
	}

	sort.Strings(result.Days)
	sort.Strings(result.GAFailures)
	b.metrics.RecordAggregation("daily_rollup", "ok", len(result.Days), timer.Duration())
	b.logger.Info("All daily roll-ups complete",
		zap.Int("days", len(result.Days)),
		zap.Int("ga_failures", len(result.GAFailures)),
		zap.Duration("duration", timer.Duration()))
	return result, nil
}

func (b *DailyRollupBuilder) buildDay(ctx context.Context, day string) (bool, error) {
	gaRows, gaErr := b.gaRows(ctx, day)
	if gaErr != nil {
		b.logger.Warn("GA fetch failed", zap.String("day", day), zap.Error(gaErr))
		gaRows = nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	sessions, err := b.readRaw(entity.RawSessions, day)
	if err != nil {
		return false, err
	}
	placements, err := b.readRaw(entity.RawPlacements, day)
	if err != nil {
		return false, err
	}

	doc := service.BuildDailySnapshot(day,
		service.BucketGARowsByFI(gaRows, day),
		service.BucketSessionsByFI(sessions),
		service.BucketPlacementsByFI(placements))

	path, err := b.snapshots.Save(doc)
	if err != nil {
		return false, err
	}
	b.logger.Info("Daily file written", zap.String("path", path), zap.Int("fis", len(doc.FI)))
	return gaErr != nil, nil
}

func (b *DailyRollupBuilder) gaRows(ctx context.Context, day string) ([]entity.GARow, error) {
	if b.ga == nil {
		rows, err := b.raw.ReadGARows(day)
		if common.HasErrorCode(err, common.ErrCodeNotFound) {
			return nil, nil
		}
		return rows, err
	}

	fetchDay := day
	if b.opts.ForceGAToday {
		fetchDay = b.now().UTC().Format(DayLayout)
	}
	rows, err := b.ga.FetchDay(ctx, fetchDay)
	if err != nil {
		return nil, err
	}
	if b.opts.ForceGAToday {
		for i := range rows {
			rows[i].Date = day
		}
	}
	return rows, nil
}

// readRaw returns the rows of a raw file; a missing file has none.
func (b *DailyRollupBuilder) readRaw(t entity.RawType, day string) ([]interface{}, error) {
	rows, err := b.raw.ReadRecords(t, day)
	if common.HasErrorCode(err, common.ErrCodeNotFound) {
		return nil, nil
	}
	return rows, err
}
