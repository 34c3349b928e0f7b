package cache

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned by Store.Get for keys that are not stored
	ErrNotFound = errors.New("cache: key not found")
	// ErrQuotaExceeded is returned by Store.Set when the backend is full
	ErrQuotaExceeded = errors.New("cache: quota exceeded")
)

// Store is the persistence layer behind DataCache.
//
// Keys returns the stored keys with the given prefix, oldest first where the
// backend tracks insertion order and lexically sorted otherwise.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Has(ctx context.Context, key string) (bool, error)
	Remove(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, keys ...string) error
}

// MemoryStore is an in-process Store with an optional byte quota.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
	order  []string
	size   int
	quota  int
}

// NewMemoryStore creates a MemoryStore. A quota of zero or less means unlimited;
// otherwise the summed size of keys and values may not exceed quota bytes.
func NewMemoryStore(quota int) *MemoryStore {
	return &MemoryStore{
		values: make(map[string][]byte),
		quota:  quota,
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.size + len(key) + len(value)
	if old, ok := m.values[key]; ok {
		next -= len(key) + len(old)
	}
	if m.quota > 0 && next > m.quota {
		return ErrQuotaExceeded
	}

	if _, ok := m.values[key]; !ok {
		m.order = append(m.order, key)
	}
	m.values[key] = append([]byte(nil), value...)
	m.size = next
	return nil
}

func (m *MemoryStore) Has(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.values[key]
	return ok, nil
}

func (m *MemoryStore) Remove(ctx context.Context, key string) error {
	return m.Delete(ctx, key)
}

func (m *MemoryStore) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for _, k := range m.order {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (m *MemoryStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		v, ok := m.values[key]
		if !ok {
			continue
		}
		m.size -= len(key) + len(v)
		delete(m.values, key)
		for i, k := range m.order {
			if k == key {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	}
	return nil
}

// Size returns the bytes currently held.
func (m *MemoryStore) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

func sortedCopy(keys []string) []string {
	out := append([]string(nil), keys...)
	sort.Strings(out)
	return out
}
