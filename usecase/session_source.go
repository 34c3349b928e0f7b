package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arnegaenz/SIS-sub001/domain/entity"
	"github.com/arnegaenz/SIS-sub001/domain/service"
	"github.com/arnegaenz/SIS-sub001/infrastructure/cache"
	"github.com/arnegaenz/SIS-sub001/infrastructure/storage"
	"github.com/arnegaenz/SIS-sub001/shared/common"
)

// MaxRangeDays bounds the days one session query may span
const MaxRangeDays = 400

// SessionSource returns the sessions matching a query.
type SessionSource interface {
	FetchSessions(ctx context.Context, q service.SessionQuery) ([]interface{}, error)
}

// RawRecordReader reads the rows of raw day files
type RawRecordReader interface {
	ReadRecords(t entity.RawType, day string) ([]interface{}, error)
}

// RawSessionSource serves sessions from the raw session files. Complete days
// are cached in the DataCache.
type RawSessionSource struct {
	raw    RawRecordReader
	cache  *cache.DataCache
	logger *zap.Logger
	now    func() time.Time
}

// NewRawSessionSource creates a source over raw. dataCache may be nil.
func NewRawSessionSource(raw RawRecordReader, dataCache *cache.DataCache, logger *zap.Logger) *RawSessionSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RawSessionSource{raw: raw, cache: dataCache, logger: logger.Named("session-source"), now: time.Now}
}

// FetchSessions loads every day of the query range and applies its filters.
// Days without a raw file contribute nothing.
func (s *RawSessionSource) FetchSessions(ctx context.Context, q service.SessionQuery) ([]interface{}, error) {
	start, ok := ParseDay(q.Start)
	if !ok {
		return nil, common.ErrInvalidInput("start")
	}
	end, ok := ParseDay(q.End)
	if !ok {
		return nil, common.ErrInvalidInput("end")
	}
	days := EachDay(start, end)
	if len(days) > MaxRangeDays {
		return nil, common.NewAppErrorWithDetails(common.ErrCodeInvalidInput,
			"date range too long", "at most 400 days per request")
	}

	var all []interface{}
	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sessions, err := s.loadDay(ctx, day)
		if err != nil {
			return nil, err
		}
		all = append(all, sessions...)
	}

	out := service.FilterSessions(all, q)
	s.logger.Debug("Sessions loaded",
		zap.String("start", q.Start),
		zap.String("end", q.End),
		zap.Int("days", len(days)),
		zap.Int("loaded", len(all)),
		zap.Int("matched", len(out)))
	return out, nil
}

func (s *RawSessionSource) loadDay(ctx context.Context, day string) ([]interface{}, error) {
	key := string(entity.RawSessions) + "_" + day
	if s.cache != nil {
		var cached []interface{}
		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("Dropping undecodable cache entry", zap.String("key", key), zap.Error(err))
			s.cache.Remove(ctx, key)
		} else if found {
			return cached, nil
		}
	}

	sessions, err := s.raw.ReadRecords(entity.RawSessions, day)
	if err != nil {
		if common.HasErrorCode(err, common.ErrCodeNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if s.cache != nil && storage.IsDayComplete(day, s.now()) {
		if _, err := s.cache.Set(ctx, key, sessions); err != nil {
			s.logger.Warn("Failed to cache sessions", zap.String("day", day), zap.Error(err))
		}
	}
	return sessions, nil
}
