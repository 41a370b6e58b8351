package sales

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/lggm33/DUAD/internal/errors"
	"github.com/lggm33/DUAD/internal/metrics"
	"github.com/lggm33/DUAD/internal/money"
	"github.com/lggm33/DUAD/internal/storage"
)

// Repository is the read and adjustment surface the sale service needs.
// Sale creation happens inside the checkout transaction and lives on the
// concrete type only.
type Repository interface {
	GetByID(ctx context.Context, saleID int64) (Sale, error)
	List(ctx context.Context, f Filter) ([]Sale, error)
	UpdateTotal(ctx context.Context, saleID int64, total money.Amount) (Sale, error)
	Lines(ctx context.Context, saleID int64) ([]Line, error)
}

// PostgresRepository stores sales in PostgreSQL.
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

// saleColumns carries the listing aggregates; every query using it must
// group by s.id.
const saleColumns = `s.id, s.user_id, s.sale_date, s.total, s.created_at, s.updated_at,
	COUNT(sp.product_id) AS product_count,
	COALESCE(SUM(sp.quantity), 0) AS total_items,
	EXISTS (SELECT 1 FROM invoices i WHERE i.sale_id = s.id) AS has_invoice`

const saleFrom = `
	FROM sales s
	LEFT JOIN sale_products sp ON sp.sale_id = s.id`

const lineColumns = `sale_id, product_id, quantity, price, created_at, updated_at`

func scanSale(row *sql.Row) (Sale, error) {
	var s Sale
	err := row.Scan(&s.ID, &s.UserID, &s.SaleDate, &s.Total, &s.CreatedAt, &s.UpdatedAt,
		&s.ProductCount, &s.TotalItems, &s.HasInvoice)
	return s, err
}

func (r *PostgresRepository) GetByID(ctx context.Context, saleID int64) (Sale, error) {
	defer metrics.MeasureDBQuery(r.m, "sales.get_by_id", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	row := r.q.QueryRowContext(ctx, `
		SELECT `+saleColumns+saleFrom+`
		WHERE s.id = $1
		GROUP BY s.id`, saleID)

	sale, err := scanSale(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Sale{}, apperrors.New(apperrors.ErrCodeSaleNotFound, "Sale not found")
	}
	if err != nil {
		return Sale{}, storage.WrapError("sales.get_by_id", err)
	}
	return sale, nil
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]Sale, error) {
	defer metrics.MeasureDBQuery(r.m, "sales.list", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	query := `
		SELECT ` + saleColumns + saleFrom
	var (
		where []string
		args  []interface{}
	)
	if f.UserID != 0 {
		args = append(args, f.UserID)
		where = append(where, fmt.Sprintf("s.user_id = $%d", len(args)))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		where = append(where, fmt.Sprintf("s.sale_date >= $%d", len(args)))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		where = append(where, fmt.Sprintf("s.sale_date <= $%d", len(args)))
	}
	if len(where) > 0 {
		query += `
		WHERE ` + strings.Join(where, " AND ")
	}
	query += `
		GROUP BY s.id
		ORDER BY s.sale_date DESC`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storage.WrapError("sales.list", err)
	}
	defer rows.Close()

	list := make([]Sale, 0)
	for rows.Next() {
		var s Sale
		if err := rows.Scan(&s.ID, &s.UserID, &s.SaleDate, &s.Total, &s.CreatedAt, &s.UpdatedAt,
			&s.ProductCount, &s.TotalItems, &s.HasInvoice); err != nil {
			return nil, storage.WrapError("sales.list", err)
		}
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.WrapError("sales.list", err)
	}
	return list, nil
}

func (r *PostgresRepository) UpdateTotal(ctx context.Context, saleID int64, total money.Amount) (Sale, error) {
	defer metrics.MeasureDBQuery(r.m, "sales.update_total", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	var id int64
	err := r.q.QueryRowContext(ctx, `
		UPDATE sales
		SET total = $2, updated_at = now()
		WHERE id = $1
		RETURNING id`, saleID, total).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return Sale{}, apperrors.New(apperrors.ErrCodeSaleNotFound, "Sale not found")
	}
	if err != nil {
		return Sale{}, storage.WrapError("sales.update_total", err)
	}
	return r.GetByID(ctx, id)
}

func (r *PostgresRepository) Lines(ctx context.Context, saleID int64) ([]Line, error) {
	defer metrics.MeasureDBQuery(r.m, "sales.lines", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	rows, err := r.q.QueryContext(ctx, `
		SELECT `+lineColumns+`
		FROM sale_products
		WHERE sale_id = $1
		ORDER BY product_id`, saleID)
	if err != nil {
		return nil, storage.WrapError("sales.lines", err)
	}
	defer rows.Close()

	lines := make([]Line, 0)
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.SaleID, &l.ProductID, &l.Quantity, &l.Price, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, storage.WrapError("sales.lines", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.WrapError("sales.lines", err)
	}
	return lines, nil
}

// CreateSale inserts a settled order. Checkout calls this inside its
// transaction through WithTx.
func (r *PostgresRepository) CreateSale(ctx context.Context, userID int64, total money.Amount) (Sale, error) {
	defer metrics.MeasureDBQuery(r.m, "sales.create", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	row := r.q.QueryRowContext(ctx, `
		INSERT INTO sales (user_id, total)
		VALUES ($1, $2)
		RETURNING id, user_id, sale_date, total, created_at, updated_at`, userID, total)

	var s Sale
	if err := row.Scan(&s.ID, &s.UserID, &s.SaleDate, &s.Total, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return Sale{}, storage.WrapError("sales.create", err)
	}
	return s, nil
}

// AddLine attaches a product to a sale with the price captured at sale
// time. Checkout calls this inside its transaction through WithTx.
func (r *PostgresRepository) AddLine(ctx context.Context, saleID, productID int64, qty int, price money.Amount) (Line, error) {
	defer metrics.MeasureDBQuery(r.m, "sales.add_line", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	row := r.q.QueryRowContext(ctx, `
		INSERT INTO sale_products (sale_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4)
		RETURNING `+lineColumns, saleID, productID, qty, price)

	var l Line
	if err := row.Scan(&l.SaleID, &l.ProductID, &l.Quantity, &l.Price, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return Line{}, storage.WrapError("sales.add_line", err)
	}
	return l, nil
}
