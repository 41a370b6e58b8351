package storage

import (
	"context"
	"time"
)

const (
	// DefaultQueryTimeout is the maximum time allowed for database queries
	// when none was configured. This prevents queries from hanging
	// indefinitely and causing cascading failures.
	DefaultQueryTimeout = 5 * time.Second
)

// withTimeout wraps the context with the given query timeout if one isn't
// already set. This ensures all database operations have a reasonable deadline
// while respecting any existing timeout that the caller may have set (request
// contexts already carry the route group deadline).
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		// Context already has timeout, don't override it
		return ctx, func() {}
	}
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
