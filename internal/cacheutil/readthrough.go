// Package cacheutil provides the read-through and invalidation patterns the
// cached services share. Cache failures degrade to direct fetches and are
// reported through the observability registry; they never fail the request.
package cacheutil

import (
	"context"
	"time"

	"github.com/lggm33/DUAD/internal/cache"
	"github.com/lggm33/DUAD/internal/logger"
	"github.com/lggm33/DUAD/internal/observability"
)

// ReadThrough returns the cached value at key when present, otherwise calls
// fetch, stores the result for ttl, and returns it. hooks may be nil.
//
// Usage:
//
//	func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
//	    return cacheutil.ReadThrough(ctx, s.cache, s.hooks, cache.ProductKey(id), s.ttl,
//	        func(ctx context.Context) (Product, error) {
//	            return s.repo.GetByID(ctx, id)
//	        })
//	}
func ReadThrough[T any](
	ctx context.Context,
	store cache.Store,
	hooks *observability.Registry,
	key string,
	ttl time.Duration,
	fetch func(ctx context.Context) (T, error),
) (T, error) {
	var cached T
	hit, err := store.Get(ctx, key, &cached)
	if err != nil {
		degrade(ctx, hooks, key, "get", err)
	}
	if hit {
		return cached, nil
	}

	value, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	if err := store.Set(ctx, key, value, ttl); err != nil {
		degrade(ctx, hooks, key, "set", err)
	}
	return value, nil
}

// WriteThrough executes a write operation and invalidates cache entries on
// success, keeping cached reads consistent with the database.
func WriteThrough(operation func() error, invalidate func()) error {
	if err := operation(); err != nil {
		return err
	}
	invalidate()
	return nil
}

// Invalidate removes keys and patterns, logging failures without returning
// them; a missed invalidation corrects itself when the entry's TTL expires.
func Invalidate(ctx context.Context, store cache.Store, hooks *observability.Registry, keys []string, patterns ...string) {
	if len(keys) > 0 {
		if err := store.Delete(ctx, keys...); err != nil {
			degrade(ctx, hooks, keys[0], "delete", err)
		}
	}
	for _, pattern := range patterns {
		if err := store.DeletePattern(ctx, pattern); err != nil {
			degrade(ctx, hooks, pattern, "delete_pattern", err)
		}
	}
}

func degrade(ctx context.Context, hooks *observability.Registry, key, op string, err error) {
	log := logger.FromContext(ctx)
	log.Warn().
		Str("key", key).
		Str("op", op).
		Err(err).
		Msg("cache.degraded")

	if hooks != nil {
		hooks.EmitCacheDegraded(ctx, observability.CacheDegradedEvent{
			Timestamp: time.Now(),
			Key:       key,
			Op:        op,
			Err:       err.Error(),
		})
	}
}
