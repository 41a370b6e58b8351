package addresses

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
	Create(ctx context.Context, a Address) (Address, error)
	GetByID(ctx context.Context, id int64) (Address, error)
	ListForUser(ctx context.Context, userID int64) ([]Address, error)
	Update(ctx context.Context, a Address) (Address, error)
	Delete(ctx context.Context, id int64) (Address, error)
}

// PostgresRepository stores delivery addresses in PostgreSQL.
type PostgresRepository struct {
	pg *storage.Postgres
	q  storage.Querier
	m  *metrics.Metrics
}

// NewPostgresRepository creates a repository backed by the given handle.
func NewPostgresRepository(pg *storage.Postgres, m *metrics.Metrics) *PostgresRepository {
	return &PostgresRepository{pg: pg, q: pg.DB(), m: m}
}

const addressColumns = `id, user_id, address, city, postal_code, country, created_at, updated_at`

func scanAddress(row *sql.Row) (Address, error) {
	var a Address
	err := row.Scan(&a.ID, &a.UserID, &a.Address, &a.City, &a.PostalCode, &a.Country, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *PostgresRepository) Create(ctx context.Context, a Address) (Address, error) {
	defer metrics.MeasureDBQuery(r.m, "addresses.create", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	row := r.q.QueryRowContext(ctx, `
		INSERT INTO delivery_addresses (user_id, address, city, postal_code, country)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+addressColumns,
		a.UserID, a.Address, a.City, a.PostalCode, a.Country)

	created, err := scanAddress(row)
	if err != nil {
		return Address{}, storage.WrapError("addresses.create", err)
	}
	return created, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (Address, error) {
	defer metrics.MeasureDBQuery(r.m, "addresses.get_by_id", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	row := r.q.QueryRowContext(ctx, `SELECT `+addressColumns+` FROM delivery_addresses WHERE id = $1`, id)
	a, err := scanAddress(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Address{}, apperrors.New(apperrors.ErrCodeAddressNotFound, "Delivery address not found")
		}
		return Address{}, storage.WrapError("addresses.get_by_id", err)
	}
	return a, nil
}

func (r *PostgresRepository) ListForUser(ctx context.Context, userID int64) ([]Address, error) {
	defer metrics.MeasureDBQuery(r.m, "addresses.list_for_user", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	rows, err := r.q.QueryContext(ctx, `
		SELECT `+addressColumns+`
		FROM delivery_addresses
		WHERE user_id = $1
		ORDER BY id`, userID)
	if err != nil {
		return nil, storage.WrapError("addresses.list_for_user", err)
	}
	defer rows.Close()

	list := make([]Address, 0)
	for rows.Next() {
		var a Address
		if err := rows.Scan(&a.ID, &a.UserID, &a.Address, &a.City, &a.PostalCode, &a.Country, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, storage.WrapError("addresses.list_for_user", err)
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.WrapError("addresses.list_for_user", err)
	}
	return list, nil
}

func (r *PostgresRepository) Update(ctx context.Context, a Address) (Address, error) {
	defer metrics.MeasureDBQuery(r.m, "addresses.update", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	row := r.q.QueryRowContext(ctx, `
		UPDATE delivery_addresses
		SET address = $2, city = $3, postal_code = $4, country = $5, updated_at = now()
		WHERE id = $1
		RETURNING `+addressColumns,
		a.ID, a.Address, a.City, a.PostalCode, a.Country)

	updated, err := scanAddress(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Address{}, apperrors.New(apperrors.ErrCodeAddressNotFound, "Delivery address not found")
		}
		return Address{}, storage.WrapError("addresses.update", err)
	}
	return updated, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) (Address, error) {
	defer metrics.MeasureDBQuery(r.m, "addresses.delete", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	row := r.q.QueryRowContext(ctx, `DELETE FROM delivery_addresses WHERE id = $1 RETURNING `+addressColumns, id)
	deleted, err := scanAddress(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Address{}, apperrors.New(apperrors.ErrCodeAddressNotFound, "Delivery address not found")
		}
		return Address{}, storage.WrapError("addresses.delete", err)
	}
	return deleted, nil
}
