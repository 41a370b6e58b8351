// Package storage provides the shared PostgreSQL plumbing used by every
// repository: the connection handle, query deadlines, transaction scoping,
// schema bootstrap, and driver error classification.
package storage

import (
	"context"
	"database/sql"
)

// Querier is the subset of *sql.DB and *sql.Tx that repositories query
// through. Repositories bound to a transaction receive the *sql.Tx, all
// others the shared pool.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
