package cache

import (
	"context"
	"time"

	"github.com/lggm33/DUAD/internal/circuitbreaker"
)

// Breakered wraps a Store with the shared Redis circuit breaker. Once the
// breaker opens, every operation fails fast with the breaker's error until
// the backend recovers; the read-through helpers already treat any cache
// error as a miss, so requests keep flowing against the database.
type Breakered struct {
	inner   Store
	breaker *circuitbreaker.Manager
}

// NewBreakered wraps inner with the cache breaker from manager.
func NewBreakered(inner Store, breaker *circuitbreaker.Manager) *Breakered {
	return &Breakered{inner: inner, breaker: breaker}
}

func (b *Breakered) Get(ctx context.Context, key string, dest any) (bool, error) {
	result, err := b.breaker.Execute(circuitbreaker.ServiceCache, func() (interface{}, error) {
		return b.inner.Get(ctx, key, dest)
	})
	if err != nil {
		return false, err
	}
	hit, _ := result.(bool)
	return hit, nil
}

func (b *Breakered) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	_, err := b.breaker.Execute(circuitbreaker.ServiceCache, func() (interface{}, error) {
		return nil, b.inner.Set(ctx, key, value, ttl)
	})
	return err
}

func (b *Breakered) Delete(ctx context.Context, keys ...string) error {
	_, err := b.breaker.Execute(circuitbreaker.ServiceCache, func() (interface{}, error) {
		return nil, b.inner.Delete(ctx, keys...)
	})
	return err
}

func (b *Breakered) DeletePattern(ctx context.Context, pattern string) error {
	_, err := b.breaker.Execute(circuitbreaker.ServiceCache, func() (interface{}, error) {
		return nil, b.inner.DeletePattern(ctx, pattern)
	})
	return err
}
