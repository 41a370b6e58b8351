package products

import (
	"context"
	"database/sql"
	"errors"

	apperrors "github.com/lggm33/DUAD/internal/errors"
	"github.com/lggm33/DUAD/internal/metrics"
	"github.com/lggm33/DUAD/internal/storage"
)

// Repository is the catalog persistence surface. CachedRepository decorates
// it; PostgresRepository is the real store.
type Repository interface {
	Create(ctx context.Context, p Product) (Product, error)
	GetByID(ctx context.Context, id int64) (Product, error)
	GetByName(ctx context.Context, name string) (Product, error)
	List(ctx context.Context) ([]Product, error)
	Update(ctx context.Context, p Product) (Product, error)
	Delete(ctx context.Context, id int64) (Product, error)
}

// PostgresRepository stores the catalog in PostgreSQL.
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
// Checkout uses it for the locked stock reads and debits.
func (r *PostgresRepository) WithTx(tx *sql.Tx) *PostgresRepository {
	clone := *r
	clone.q = tx
	return &clone
}

const productColumns = `id, name, description, price, stock, created_at, updated_at`

func scanProduct(row *sql.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *PostgresRepository) Create(ctx context.Context, p Product) (Product, error) {
	defer metrics.MeasureDBQuery(r.m, "products.create", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	row := r.q.QueryRowContext(ctx, `
		INSERT INTO products (name, description, price, stock)
		VALUES ($1, $2, $3, $4)
		RETURNING `+productColumns,
		p.Name, p.Description, p.Price, p.Stock)

	created, err := scanProduct(row)
	if err != nil {
		if storage.IsUniqueViolation(err, storage.ConstraintProductsName) {
			return Product{}, apperrors.New(apperrors.ErrCodeProductNameInUse, "Product name already in use")
		}
		return Product{}, storage.WrapError("products.create", err)
	}
	return created, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (Product, error) {
	defer metrics.MeasureDBQuery(r.m, "products.get_by_id", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	row := r.q.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, apperrors.New(apperrors.ErrCodeProductNotFound, "Product not found")
		}
		return Product{}, storage.WrapError("products.get_by_id", err)
	}
	return p, nil
}

func (r *PostgresRepository) GetByName(ctx context.Context, name string) (Product, error) {
	defer metrics.MeasureDBQuery(r.m, "products.get_by_name", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	row := r.q.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE name = $1`, name)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, apperrors.New(apperrors.ErrCodeProductNotFound, "Product not found")
		}
		return Product{}, storage.WrapError("products.get_by_name", err)
	}
	return p, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]Product, error) {
	defer metrics.MeasureDBQuery(r.m, "products.get_all", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	rows, err := r.q.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, storage.WrapError("products.get_all", err)
	}
	defer rows.Close()

	list := make([]Product, 0)
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, storage.WrapError("products.get_all", err)
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.WrapError("products.get_all", err)
	}
	return list, nil
}

func (r *PostgresRepository) Update(ctx context.Context, p Product) (Product, error) {
	defer metrics.MeasureDBQuery(r.m, "products.update", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	row := r.q.QueryRowContext(ctx, `
		UPDATE products
		SET name = $2, description = $3, price = $4, stock = $5, updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns,
		p.ID, p.Name, p.Description, p.Price, p.Stock)

	updated, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, apperrors.New(apperrors.ErrCodeProductNotFound, "Product not found")
		}
		if storage.IsUniqueViolation(err, storage.ConstraintProductsName) {
			return Product{}, apperrors.New(apperrors.ErrCodeProductNameInUse, "Product name already in use")
		}
		return Product{}, storage.WrapError("products.update", err)
	}
	return updated, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) (Product, error) {
	defer metrics.MeasureDBQuery(r.m, "products.delete", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	row := r.q.QueryRowContext(ctx, `DELETE FROM products WHERE id = $1 RETURNING `+productColumns, id)
	deleted, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, apperrors.New(apperrors.ErrCodeProductNotFound, "Product not found")
		}
		return Product{}, storage.WrapError("products.delete", err)
	}
	return deleted, nil
}

// GetForUpdate reads a product under FOR UPDATE so concurrent checkouts
// serialize on the row. Call it on a transaction-bound copy.
func (r *PostgresRepository) GetForUpdate(ctx context.Context, id int64) (Product, error) {
	defer metrics.MeasureDBQuery(r.m, "products.get_for_update", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	row := r.q.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, apperrors.New(apperrors.ErrCodeProductNotFound, "Product not found")
		}
		return Product{}, storage.WrapError("products.get_for_update", err)
	}
	return p, nil
}

// DebitStock atomically subtracts qty from a product's stock. The guard in
// the WHERE clause refuses to take stock below zero; zero rows affected
// means the debit would oversell.
func (r *PostgresRepository) DebitStock(ctx context.Context, id int64, qty int) error {
	defer metrics.MeasureDBQuery(r.m, "products.debit_stock", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	res, err := r.q.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2`, id, qty)
	if err != nil {
		return storage.WrapError("products.debit_stock", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storage.WrapError("products.debit_stock", err)
	}
	if affected == 0 {
		return apperrors.Newf(apperrors.ErrCodeInsufficientStock, "Insufficient stock for product %d", id)
	}
	return nil
}

// ListLowStock returns products whose stock is at or below threshold,
// lowest first. The stock monitor polls it.
func (r *PostgresRepository) ListLowStock(ctx context.Context, threshold int) ([]Product, error) {
	defer metrics.MeasureDBQuery(r.m, "products.list_low_stock", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	rows, err := r.q.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE stock <= $1
		ORDER BY stock, id`, threshold)
	if err != nil {
		return nil, storage.WrapError("products.list_low_stock", err)
	}
	defer rows.Close()

	list := make([]Product, 0)
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, storage.WrapError("products.list_low_stock", err)
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.WrapError("products.list_low_stock", err)
	}
	return list, nil
}
