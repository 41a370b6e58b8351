package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Postgres bundles the shared connection pool with the query deadline policy
// applied by every repository. Repositories never open connections themselves;
// they are constructed around one Postgres handle so the whole service shares
// a single pool.
type Postgres struct {
	db           *sql.DB
	queryTimeout time.Duration
}

// New wraps an existing connection pool and ensures the schema exists.
// The pool remains owned by the caller (see dbpool.SharedPool for lifecycle).
func New(db *sql.DB, queryTimeout time.Duration) (*Postgres, error) {
	p := &Postgres{db: db, queryTimeout: queryTimeout}
	if err := p.ensureSchema(); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return p, nil
}

// DB returns the underlying pool for repositories that query outside a
// transaction.
func (p *Postgres) DB() *sql.DB {
	return p.db
}

// QueryCtx applies the configured per-query deadline unless the caller
// already set one.
func (p *Postgres) QueryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return withTimeout(ctx, p.queryTimeout)
}

// WithTransaction runs fn inside a single transaction. The transaction is
// committed when fn returns nil and rolled back when it returns an error or
// panics. Rollback errors after a failed fn are ignored so the original
// error reaches the caller.
func (p *Postgres) WithTransaction(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return WrapError("storage.begin_tx", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return WrapError("storage.commit_tx", err)
	}
	return nil
}
