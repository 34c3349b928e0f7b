package cache

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"

	"github.com/arnegaenz/SIS-sub001/domain/entity"
)

type DataCacheTestSuite struct {
	suite.Suite
	ctx   context.Context
	store *MemoryStore
	cache *DataCache
}

func (s *DataCacheTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewMemoryStore(0)
	s.cache = NewDataCache(s.ctx, s.store, zaptest.NewLogger(s.T()))
}

func TestDataCacheTestSuite(t *testing.T) {
	suite.Run(t, new(DataCacheTestSuite))
}

func (s *DataCacheTestSuite) TestSetAndGetRoundTrip() {
	doc := &entity.DailySnapshot{
		Date:    "2025-03-01",
		Sources: entity.SnapshotSources{GA: true},
		FI: map[string]*entity.FIDaily{
			"acme": {Sessions: entity.SessionCounts{Total: 3, WithJobs: 1, WithoutJobs: 2}},
		},
	}

	stored, err := s.cache.Set(s.ctx, "daily_2025-03-01", doc)
	s.Require().NoError(err)
	s.True(stored)

	has, err := s.store.Has(s.ctx, KeyPrefix+"daily_2025-03-01")
	s.Require().NoError(err)
	s.True(has)

	// a fresh cache over the same store reads through to the store
	fresh := NewDataCache(s.ctx, s.store, zaptest.NewLogger(s.T()))
	var out entity.DailySnapshot
	found, err := fresh.Get(s.ctx, "daily_2025-03-01", &out)
	s.Require().NoError(err)
	s.True(found)
	s.Equal(*doc.FI["acme"], *out.FI["acme"])
	s.Equal(doc.Sources, out.Sources)
}

func (s *DataCacheTestSuite) TestUntypedRecordsKeepNumbers() {
	sessions := []interface{}{
		map[string]interface{}{"fi_lookup_key": "acme", "total_jobs": float64(2), "successful_jobs": float64(0)},
	}
	_, err := s.cache.Set(s.ctx, "sessions", sessions)
	s.Require().NoError(err)

	var out []interface{}
	found, err := NewDataCache(s.ctx, s.store, nil).Get(s.ctx, "sessions", &out)
	s.Require().NoError(err)
	s.Require().True(found)

	rec, ok := entity.AsRecord(out[0])
	s.Require().True(ok)
	s.Equal(float64(2), rec.Number("total_jobs"))
	s.Equal("acme", rec.String("fi_lookup_key"))
}

func (s *DataCacheTestSuite) TestGetMiss() {
	var out map[string]interface{}
	found, err := s.cache.Get(s.ctx, "nope", &out)
	s.NoError(err)
	s.False(found)
	s.False(s.cache.Has(s.ctx, "nope"))
}

func (s *DataCacheTestSuite) TestTooLargeStaysInMemory() {
	c := NewDataCache(s.ctx, s.store, zaptest.NewLogger(s.T()), WithMaxEntryBytes(64))

	stored, err := c.Set(s.ctx, "big", strings.Repeat("x", 1024))
	s.Require().NoError(err)
	s.False(stored)

	has, _ := s.store.Has(s.ctx, KeyPrefix+"big")
	s.False(has)

	var out string
	found, err := c.Get(s.ctx, "big", &out)
	s.Require().NoError(err)
	s.True(found)
	s.Len(out, 1024)
}

func (s *DataCacheTestSuite) TestRemoveAndClearAll() {
	for _, k := range []string{"a", "b", "c"} {
		_, err := s.cache.Set(s.ctx, k, k)
		s.Require().NoError(err)
	}
	s.Require().NoError(s.store.Set(s.ctx, VersionKey, []byte("v1")))

	s.cache.Remove(s.ctx, "a")
	s.False(s.cache.Has(s.ctx, "a"))
	s.True(s.cache.Has(s.ctx, "b"))

	s.cache.ClearAll(s.ctx)
	keys, err := s.store.Keys(s.ctx, KeyPrefix)
	s.Require().NoError(err)
	s.Empty(keys)
	s.False(s.cache.Has(s.ctx, "b"))

	has, _ := s.store.Has(s.ctx, VersionKey)
	s.True(has, "version survives ClearAll")
}

func (s *DataCacheTestSuite) TestSyncClearsOnVersionMismatch() {
	_, err := s.cache.Set(s.ctx, "day", "payload")
	s.Require().NoError(err)

	s.Require().NoError(s.cache.Sync(s.ctx, VersionFunc(func(context.Context) (string, error) {
		return "2025-03-02T00:00:00Z", nil
	})))
	s.Equal("2025-03-02T00:00:00Z", s.cache.Version())
	s.False(s.cache.Has(s.ctx, "day"))

	stored, err := s.store.Get(s.ctx, VersionKey)
	s.Require().NoError(err)
	s.Equal("2025-03-02T00:00:00Z", string(stored))

	_, err = s.cache.Set(s.ctx, "day", "payload")
	s.Require().NoError(err)
	s.Require().NoError(s.cache.Sync(s.ctx, VersionFunc(func(context.Context) (string, error) {
		return "2025-03-02T00:00:00Z", nil
	})))
	s.True(s.cache.Has(s.ctx, "day"), "matching version keeps entries")
}

func (s *DataCacheTestSuite) TestSyncFailureKeepsCachedVersion() {
	s.Require().NoError(s.store.Set(s.ctx, VersionKey, []byte("v1")))
	c := NewDataCache(s.ctx, s.store, zaptest.NewLogger(s.T()))
	_, err := c.Set(s.ctx, "day", "payload")
	s.Require().NoError(err)

	err = c.Sync(s.ctx, VersionFunc(func(context.Context) (string, error) {
		return "", errors.New("connection refused")
	}))
	s.NoError(err)
	s.Equal("v1", c.Version())
	s.True(c.Has(s.ctx, "day"))
}

func (s *DataCacheTestSuite) TestStats() {
	_, err := s.cache.Set(s.ctx, "a", "one")
	s.Require().NoError(err)
	_, err = s.cache.Set(s.ctx, "b", "two")
	s.Require().NoError(err)

	stats := s.cache.Stats(s.ctx)
	s.Equal(2, stats.Entries)
	s.Equal(2, stats.MemoryEntries)
	s.Positive(stats.TotalSize)
	s.Empty(stats.Error)
}

func TestQuotaExceededClearsOlderHalfAndRetries(t *testing.T) {
	ctx := context.Background()

	payload, err := Marshal(strings.Repeat("z", 40))
	require.NoError(t, err)
	compressed, err := Compress(payload)
	require.NoError(t, err)
	entrySize := len(KeyPrefix) + 2 + len(compressed)

	store := NewMemoryStore(entrySize * 4)
	c := NewDataCache(ctx, store, zaptest.NewLogger(t))

	for _, k := range []string{"k1", "k2", "k3", "k4"} {
		stored, err := c.Set(ctx, k, strings.Repeat("z", 40))
		require.NoError(t, err)
		require.True(t, stored)
	}

	stored, err := c.Set(ctx, "k5", strings.Repeat("z", 40))
	require.NoError(t, err)
	assert.True(t, stored)

	keys, err := store.Keys(ctx, KeyPrefix)
	require.NoError(t, err)
	assert.Equal(t, []string{KeyPrefix + "k3", KeyPrefix + "k4", KeyPrefix + "k5"}, keys)
}

func TestQuotaRetryFailureReportsError(t *testing.T) {
	ctx := context.Background()
	c := NewDataCache(ctx, NewMemoryStore(16), zaptest.NewLogger(t))

	stored, err := c.Set(ctx, "k", strings.Repeat("payload", 10))
	assert.False(t, stored)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.True(t, c.Has(ctx, "k"), "value stays in memory")
}
