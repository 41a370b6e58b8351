package users

import (
	"context"
	"database/sql"
	"errors"

	apperrors "github.com/lggm33/DUAD/internal/errors"
	"github.com/lggm33/DUAD/internal/metrics"
	"github.com/lggm33/DUAD/internal/storage"
)

// Repository is the persistence surface the service depends on.
type Repository interface {
	Create(ctx context.Context, u User) (User, error)
	GetByID(ctx context.Context, id int64) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	Update(ctx context.Context, u User) (User, error)
	Delete(ctx context.Context, id int64) (User, error)
}

// PostgresRepository stores accounts in PostgreSQL.
type PostgresRepository struct {
	pg *storage.Postgres
	q  storage.Querier
	m  *metrics.Metrics
}

// NewPostgresRepository creates a repository backed by the given handle.
func NewPostgresRepository(pg *storage.Postgres, m *metrics.Metrics) *PostgresRepository {
	return &PostgresRepository{pg: pg, q: pg.DB(), m: m}
}

// WithTx returns a copy of the repository that runs its queries on tx.
func (r *PostgresRepository) WithTx(tx *sql.Tx) *PostgresRepository {
	clone := *r
	clone.q = tx
	return &clone
}

const userColumns = `id, email, password_hash, role, is_active, name, phone, created_at, updated_at`

func scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.Name, &u.Phone, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *PostgresRepository) Create(ctx context.Context, u User) (User, error) {
	defer metrics.MeasureDBQuery(r.m, "users.create", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	row := r.q.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash, role, is_active, name, phone)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+userColumns,
		u.Email, u.PasswordHash, u.Role, u.IsActive, u.Name, u.Phone)

	created, err := scanUser(row)
	if err != nil {
		if storage.IsUniqueViolation(err, storage.ConstraintUsersEmail) {
			return User{}, apperrors.New(apperrors.ErrCodeEmailInUse, "Email already in use")
		}
		return User{}, storage.WrapError("users.create", err)
	}
	return created, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (User, error) {
	defer metrics.MeasureDBQuery(r.m, "users.get_by_id", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	row := r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, apperrors.New(apperrors.ErrCodeUserNotFound, "User not found")
		}
		return User{}, storage.WrapError("users.get_by_id", err)
	}
	return u, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	defer metrics.MeasureDBQuery(r.m, "users.get_by_email", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	row := r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, apperrors.New(apperrors.ErrCodeUserNotFound, "User not found")
		}
		return User{}, storage.WrapError("users.get_by_email", err)
	}
	return u, nil
}

// Update persists the mutable columns of u. Merging partial input onto the
// current row is the service's job.
func (r *PostgresRepository) Update(ctx context.Context, u User) (User, error) {
	defer metrics.MeasureDBQuery(r.m, "users.update", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	row := r.q.QueryRowContext(ctx, `
		UPDATE users
		SET name = $2, phone = $3, role = $4, is_active = $5, updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns,
		u.ID, u.Name, u.Phone, u.Role, u.IsActive)

	updated, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, apperrors.New(apperrors.ErrCodeUserNotFound, "User not found")
		}
		return User{}, storage.WrapError("users.update", err)
	}
	return updated, nil
}

// Delete removes the account and returns the deleted row.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) (User, error) {
	defer metrics.MeasureDBQuery(r.m, "users.delete", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	row := r.q.QueryRowContext(ctx, `DELETE FROM users WHERE id = $1 RETURNING `+userColumns, id)
	deleted, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, apperrors.New(apperrors.ErrCodeUserNotFound, "User not found")
		}
		return User{}, storage.WrapError("users.delete", err)
	}
	return deleted, nil
}
