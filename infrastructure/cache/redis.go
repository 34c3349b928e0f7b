package cache

import (
	"context"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const scanBatch = 200

// RedisOptions configures a RedisStore
type RedisOptions struct {
	Addr       string
	Password   string
	DB         int
	MaxRetries int
	PoolSize   int
	// TTL applies to every Set; zero keeps keys until removed
	TTL time.Duration
	// Namespace is prepended to every key
	Namespace string
}

// RedisStore is a Store backed by Redis. Calls go through a circuit breaker
// so an unreachable Redis fails fast instead of stalling requests.
type RedisStore struct {
	client    redis.UniversalClient
	breaker   *gobreaker.CircuitBreaker
	ttl       time.Duration
	namespace string
	logger    *zap.Logger
}

// NewRedisStore connects to Redis and verifies the connection with a ping.
func NewRedisStore(ctx context.Context, opts RedisOptions, logger *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:       opts.Addr,
		Password:   opts.Password,
		DB:         opts.DB,
		MaxRetries: opts.MaxRetries,
		PoolSize:   opts.PoolSize,
	})

	store := NewRedisStoreWithClient(client, opts, logger)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "failed to ping redis at %s", opts.Addr)
	}

	store.logger.Info("Redis cache store initialized",
		zap.String("addr", opts.Addr),
		zap.Int("db", opts.DB),
		zap.Duration("ttl", opts.TTL))
	return store, nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client redis.UniversalClient, opts RedisOptions, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("redis-store")

	return &RedisStore{
		client: client,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "redis-cache",
			MaxRequests: 3,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.Info("Circuit breaker state changed",
					zap.String("name", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		}),
		ttl:       opts.TTL,
		namespace: opts.Namespace,
		logger:    logger,
	}
}

// Ping checks connectivity
func (s *RedisStore) Ping(ctx context.Context) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.client.Ping(ctx).Err()
	})
	return err
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := s.breaker.Execute(func() (interface{}, error) {
		value, err := s.client.Get(ctx, s.namespace+key).Bytes()
		if err == redis.Nil {
			return nil, nil
		}
		return value, err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "redis get %s", key)
	}
	value, _ := result.([]byte)
	if value == nil {
		return nil, ErrNotFound
	}
	return value, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.client.Set(ctx, s.namespace+key, value, s.ttl).Err()
	})
	if err != nil {
		// maxmemory with a noeviction policy rejects writes with an OOM error
		if strings.HasPrefix(err.Error(), "OOM") {
			return ErrQuotaExceeded
		}
		return errors.Wrapf(err, "redis set %s", key)
	}
	return nil
}

func (s *RedisStore) Has(ctx context.Context, key string) (bool, error) {
	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.client.Exists(ctx, s.namespace+key).Result()
	})
	if err != nil {
		return false, errors.Wrapf(err, "redis exists %s", key)
	}
	return result.(int64) > 0, nil
}

func (s *RedisStore) Remove(ctx context.Context, key string) error {
	return s.Delete(ctx, key)
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.namespace + k
	}
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.client.Del(ctx, full...).Err()
	})
	return errors.Wrap(err, "redis del")
}

// Keys scans the namespace for keys with prefix. Redis keeps no insertion
// order, so keys come back sorted.
func (s *RedisStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	result, err := s.breaker.Execute(func() (interface{}, error) {
		var (
			keys   []string
			cursor uint64
		)
		for {
			batch, next, err := s.client.Scan(ctx, cursor, s.namespace+prefix+"*", scanBatch).Result()
			if err != nil {
				return nil, err
			}
			for _, k := range batch {
				keys = append(keys, strings.TrimPrefix(k, s.namespace))
			}
			if next == 0 {
				return keys, nil
			}
			cursor = next
		}
	})
	if err != nil {
		return nil, errors.Wrapf(err, "redis scan %s", prefix)
	}
	keys, _ := result.([]string)
	return sortedCopy(keys), nil
}

// Close releases the connection pool
func (s *RedisStore) Close() error {
	return s.client.Close()
}
