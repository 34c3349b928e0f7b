package cache

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/arnegaenz/SIS-sub001/pkg/metrics"
)

// Cache layout
const (
	KeyPrefix       = "sis_daily_cache_"
	VersionKey      = "sis_data_version"
	DefaultMaxEntry = 5 * 1024 * 1024
)

// VersionSource reports the current server data version.
type VersionSource interface {
	DataVersion(ctx context.Context) (string, error)
}

// VersionFunc adapts a function to VersionSource
type VersionFunc func(ctx context.Context) (string, error)

// DataVersion calls f
func (f VersionFunc) DataVersion(ctx context.Context) (string, error) {
	return f(ctx)
}

// Stats describes cache occupancy
type Stats struct {
	Entries       int    `json:"entries"`
	MemoryEntries int    `json:"memoryEntries"`
	TotalSize     int    `json:"totalSize"`
	Version       string `json:"version"`
	Error         string `json:"error,omitempty"`
}

// DataCache caches per-day data in front of a Store. Reads check an
// in-process map first; writes go to both. The cache is invalidated as a
// whole when the server data version changes.
type DataCache struct {
	mu       sync.Mutex
	store    Store
	memory   map[string][]byte
	version  string
	maxEntry int
	logger   *zap.Logger
	metrics  *metrics.Collector
}

// Option customizes a DataCache
type Option func(*DataCache)

// WithMaxEntryBytes sets the size above which values stay memory-only.
func WithMaxEntryBytes(n int) Option {
	return func(c *DataCache) {
		if n > 0 {
			c.maxEntry = n
		}
	}
}

// WithMetrics records cache operations on collector.
func WithMetrics(collector *metrics.Collector) Option {
	return func(c *DataCache) { c.metrics = collector }
}

// NewDataCache creates a DataCache over store and loads the stored version.
func NewDataCache(ctx context.Context, store Store, logger *zap.Logger, opts ...Option) *DataCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &DataCache{
		store:    store,
		memory:   make(map[string][]byte),
		maxEntry: DefaultMaxEntry,
		logger:   logger.Named("data-cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.version = c.storedVersion(ctx)
	return c
}

// Get decodes the value cached under key into out and reports whether it was found.
func (c *DataCache) Get(ctx context.Context, key string, out interface{}) (bool, error) {
	c.mu.Lock()
	payload, ok := c.memory[key]
	c.mu.Unlock()

	if !ok {
		stored, err := c.store.Get(ctx, KeyPrefix+key)
		switch {
		case errors.Is(err, ErrNotFound):
			c.metrics.RecordCacheOperation("get", "miss")
			return false, nil
		case err != nil:
			c.logger.Warn("Cache read error", zap.String("key", key), zap.Error(err))
			c.metrics.RecordCacheOperation("get", "error")
			return false, nil
		}
		payload = stored
		c.mu.Lock()
		c.memory[key] = payload
		c.mu.Unlock()
	}

	raw, err := Decompress(payload)
	if err != nil {
		return false, err
	}
	if err := Unmarshal(raw, out); err != nil {
		return false, err
	}
	c.metrics.RecordCacheOperation("get", "hit")
	return true, nil
}

// Set caches v under key. The value is always kept in memory; it returns
// false when it could not be persisted to the store, either because it is
// larger than the entry limit or because the store rejected it.
func (c *DataCache) Set(ctx context.Context, key string, v interface{}) (bool, error) {
	raw, err := Marshal(v)
	if err != nil {
		return false, err
	}
	payload, err := Compress(raw)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.memory[key] = payload

	if len(raw) > c.maxEntry {
		c.logger.Warn("Data too large to cache", zap.String("key", key), zap.Int("bytes", len(raw)))
		c.metrics.RecordCacheOperation("set", "too_large")
		return false, nil
	}

	err = c.store.Set(ctx, KeyPrefix+key, payload)
	if errors.Is(err, ErrQuotaExceeded) {
		c.logger.Warn("Cache quota exceeded, clearing old entries")
		c.clearOldest(ctx)
		err = c.store.Set(ctx, KeyPrefix+key, payload)
		if err != nil {
			c.logger.Error("Failed to cache after clearing", zap.String("key", key), zap.Error(err))
		}
	}
	if err != nil {
		c.metrics.RecordCacheOperation("set", "error")
		return false, err
	}
	c.metrics.RecordCacheOperation("set", "stored")
	return true, nil
}

// Has reports whether key is cached in memory or in the store.
func (c *DataCache) Has(ctx context.Context, key string) bool {
	c.mu.Lock()
	_, ok := c.memory[key]
	c.mu.Unlock()
	if ok {
		return true
	}
	found, err := c.store.Has(ctx, KeyPrefix+key)
	return err == nil && found
}

// Remove drops key from memory and the store.
func (c *DataCache) Remove(ctx context.Context, key string) {
	c.mu.Lock()
	delete(c.memory, key)
	c.mu.Unlock()

	if err := c.store.Remove(ctx, KeyPrefix+key); err != nil {
		c.logger.Warn("Cache remove error", zap.String("key", key), zap.Error(err))
	}
}

// ClearAll drops every cached entry. The stored version is kept.
func (c *DataCache) ClearAll(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearAll(ctx)
}

func (c *DataCache) clearAll(ctx context.Context) {
	c.memory = make(map[string][]byte)

	keys, err := c.store.Keys(ctx, KeyPrefix)
	if err == nil {
		err = c.store.Delete(ctx, keys...)
	}
	if err != nil {
		c.logger.Warn("Cache clear error", zap.Error(err))
		return
	}
	c.metrics.RecordCacheOperation("clear", "ok")
	c.logger.Info("Cache cleared", zap.Int("entries", len(keys)))
}

// clearOldest removes the older half of the persisted entries, rounding up.
func (c *DataCache) clearOldest(ctx context.Context) {
	keys, err := c.store.Keys(ctx, KeyPrefix)
	if err != nil {
		c.logger.Warn("Failed to clear oldest cache", zap.Error(err))
		return
	}
	toRemove := (len(keys) + 1) / 2
	if err := c.store.Delete(ctx, keys[:toRemove]...); err != nil {
		c.logger.Warn("Failed to clear oldest cache", zap.Error(err))
		return
	}
	c.metrics.RecordCacheOperation("evict", "ok")
	c.logger.Info("Cleared old cache entries", zap.Int("removed", toRemove))
}

// Sync compares the stored version with the one reported by src and clears
// the cache on mismatch. When src fails the cached version stays in effect.
func (c *DataCache) Sync(ctx context.Context, src VersionSource) error {
	serverVersion, err := src.DataVersion(ctx)
	if err != nil {
		c.logger.Warn("Failed to fetch data version, using cached version", zap.Error(err))
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cached := c.storedVersion(ctx)
	if cached == serverVersion {
		c.version = serverVersion
		c.logger.Debug("Cache version valid", zap.String("version", serverVersion))
		return nil
	}

	c.logger.Info("Data version mismatch, clearing cache",
		zap.String("cached", cached),
		zap.String("server", serverVersion))
	c.clearAll(ctx)
	c.version = serverVersion
	if err := c.store.Set(ctx, VersionKey, []byte(serverVersion)); err != nil {
		return errors.Wrap(err, "failed to store data version")
	}
	return nil
}

// Version returns the data version the cache contents belong to.
func (c *DataCache) Version() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// Stats reports persisted entries and their total size.
func (c *DataCache) Stats(ctx context.Context) Stats {
	c.mu.Lock()
	stats := Stats{MemoryEntries: len(c.memory), Version: c.version}
	c.mu.Unlock()

	keys, err := c.store.Keys(ctx, KeyPrefix)
	if err != nil {
		stats.Error = err.Error()
		return stats
	}
	for _, k := range keys {
		v, err := c.store.Get(ctx, k)
		if err != nil {
			continue
		}
		stats.Entries++
		stats.TotalSize += len(v)
	}
	return stats
}

func (c *DataCache) storedVersion(ctx context.Context) string {
	v, err := c.store.Get(ctx, VersionKey)
	if err != nil {
		return ""
	}
	return string(v)
}
