package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestMemoryStoreQuota(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(10)

	require.NoError(t, s.Set(ctx, "a", []byte("1234")))
	assert.Equal(t, 5, s.Size())
	assert.ErrorIs(t, s.Set(ctx, "b", []byte("123456")), ErrQuotaExceeded)

	// overwriting frees the old value first
	require.NoError(t, s.Set(ctx, "a", []byte("123456789")))
	assert.Equal(t, 10, s.Size())

	require.NoError(t, s.Remove(ctx, "a"))
	assert.Equal(t, 0, s.Size())
	_, err := s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreKeysKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	for _, k := range []string{"p_c", "other", "p_a", "p_b"} {
		require.NoError(t, s.Set(ctx, k, []byte(k)))
	}
	require.NoError(t, s.Set(ctx, "p_c", []byte("again")))

	keys, err := s.Keys(ctx, "p_")
	require.NoError(t, err)
	assert.Equal(t, []string{"p_c", "p_a", "p_b"}, keys)

	require.NoError(t, s.Delete(ctx, "p_a", "missing"))
	keys, _ = s.Keys(ctx, "p_")
	assert.Equal(t, []string{"p_c", "p_b"}, keys)
}

func TestCodecRoundTrip(t *testing.T) {
	type row struct {
		FIKey string `json:"fi_key"`
		Views int64  `json:"views"`
	}
	raw, err := Marshal([]row{{FIKey: "acme", Views: 12}})
	require.NoError(t, err)

	compressed, err := Compress(raw)
	require.NoError(t, err)
	plain, err := Decompress(compressed)
	require.NoError(t, err)

	var out []map[string]interface{}
	require.NoError(t, Unmarshal(plain, &out))
	assert.Equal(t, "acme", out[0]["fi_key"])
	assert.Equal(t, int64(12), out[0]["views"])
}

// TestRedisStore runs against a live Redis when SIS_TEST_REDIS_ADDR is set.
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("SIS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SIS_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()

	s, err := NewRedisStore(ctx, RedisOptions{Addr: addr, TTL: time.Minute, Namespace: "sis-test:"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Close()

	keys, err := s.Keys(ctx, KeyPrefix)
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, keys...))

	require.NoError(t, s.Set(ctx, KeyPrefix+"b", []byte("2")))
	require.NoError(t, s.Set(ctx, KeyPrefix+"a", []byte("1")))

	v, err := s.Get(ctx, KeyPrefix+"a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	_, err = s.Get(ctx, KeyPrefix+"missing")
	assert.ErrorIs(t, err, ErrNotFound)

	keys, err = s.Keys(ctx, KeyPrefix)
	require.NoError(t, err)
	assert.Equal(t, []string{KeyPrefix + "a", KeyPrefix + "b"}, keys)

	require.NoError(t, s.Remove(ctx, KeyPrefix+"a"))
	has, err := s.Has(ctx, KeyPrefix+"a")
	require.NoError(t, err)
	assert.False(t, has)
}
