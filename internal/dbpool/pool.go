// Package dbpool owns the single PostgreSQL connection pool shared by every
// repository in the process.
package dbpool

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lggm33/DUAD/internal/config"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// connectTimeout bounds the startup ping so a wedged database fails fast
// instead of hanging boot.
const connectTimeout = 10 * time.Second

// SharedPool wraps the process-wide *sql.DB.
type SharedPool struct {
	db *sql.DB
}

// NewSharedPool opens the pool, applies the configured sizing, and verifies
// connectivity with one bounded ping.
func NewSharedPool(connectionString string, poolConfig config.PostgresPoolConfig) (*SharedPool, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	config.ApplyPostgresPoolSettings(db, poolConfig)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &SharedPool{db: db}, nil
}

// DB returns the underlying *sql.DB for repositories.
func (p *SharedPool) DB() *sql.DB {
	return p.db
}

// Close closes the pool. Safe to call more than once.
func (p *SharedPool) Close() error {
	return p.db.Close()
}
