// Package cache provides the Redis-backed response cache shared by the
// catalog, cart, and reporting services. Values are stored as JSON. Cache
// failures are reported to callers but must never fail a request; services
// log them and fall through to the database.
package cache

import (
	"context"
	"strings"
	"time"
)

// Store is the cache surface used by services. Implementations must be safe
// for concurrent use.
type Store interface {
	// Get loads the value at key into dest. The bool reports whether the
	// key was present and decodable.
	Get(ctx context.Context, key string, dest any) (bool, error)

	// Set stores value at key for ttl. A non-positive ttl stores without
	// expiry.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// DeletePattern removes every key matching a Redis-style glob pattern.
	DeletePattern(ctx context.Context, pattern string) error
}

// Namespace extracts the metric namespace from a cache key, the segment
// before the first dot ("products.get_by_id:7" -> "products").
func Namespace(key string) string {
	if i := strings.IndexByte(key, '.'); i > 0 {
		return key[:i]
	}
	return key
}

// Disabled is the no-op store wired in when caching is turned off. Every
// read misses and writes vanish, so services behave as if each request were
// the first.
type Disabled struct{}

func (Disabled) Get(ctx context.Context, key string, dest any) (bool, error) { return false, nil }

func (Disabled) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return nil
}

func (Disabled) Delete(ctx context.Context, keys ...string) error { return nil }

func (Disabled) DeletePattern(ctx context.Context, pattern string) error { return nil }
