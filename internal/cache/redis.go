package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lggm33/DUAD/internal/metrics"
)

const (
	scanCount       = 100
	deleteBatchSize = 100
)

// RedisStore implements Store on a shared Redis client. The client is owned
// by the caller and may be shared with the revocation store.
type RedisStore struct {
	client  *redis.Client
	metrics *metrics.Metrics
}

// NewRedis wraps an existing client. metrics may be nil.
func NewRedis(client *redis.Client, m *metrics.Metrics) *RedisStore {
	return &RedisStore{client: client, metrics: m}
}

func (s *RedisStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	payload, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheOp(s.metrics, Namespace(key), "miss")
		return false, nil
	}
	if err != nil {
		metrics.RecordCacheOp(s.metrics, Namespace(key), "error")
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		metrics.RecordCacheOp(s.metrics, Namespace(key), "error")
		return false, fmt.Errorf("decode cached value at %s: %w", key, err)
	}
	metrics.RecordCacheOp(s.metrics, Namespace(key), "hit")
	return true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value for %s: %w", key, err)
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		metrics.RecordCacheOp(s.metrics, Namespace(key), "error")
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	metrics.RecordCacheOp(s.metrics, Namespace(key), "write")
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		metrics.RecordCacheOp(s.metrics, Namespace(keys[0]), "error")
		return fmt.Errorf("cache delete: %w", err)
	}
	metrics.RecordCacheOp(s.metrics, Namespace(keys[0]), "invalidate")
	return nil
}

// DeletePattern scans for matching keys and removes them in batches. SCAN is
// used instead of KEYS so invalidation never blocks the server.
func (s *RedisStore) DeletePattern(ctx context.Context, pattern string) error {
	iter := s.client.Scan(ctx, 0, pattern, scanCount).Iterator()

	batch := make([]string, 0, deleteBatchSize)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= deleteBatchSize {
			if err := s.client.Del(ctx, batch...).Err(); err != nil {
				metrics.RecordCacheOp(s.metrics, Namespace(pattern), "error")
				return fmt.Errorf("cache delete pattern %s: %w", pattern, err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		metrics.RecordCacheOp(s.metrics, Namespace(pattern), "error")
		return fmt.Errorf("cache scan %s: %w", pattern, err)
	}
	if len(batch) > 0 {
		if err := s.client.Del(ctx, batch...).Err(); err != nil {
			metrics.RecordCacheOp(s.metrics, Namespace(pattern), "error")
			return fmt.Errorf("cache delete pattern %s: %w", pattern, err)
		}
	}
	metrics.RecordCacheOp(s.metrics, Namespace(pattern), "invalidate")
	return nil
}
