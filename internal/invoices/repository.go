package invoices

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

// Repository is the invoice persistence surface.
type Repository interface {
	Create(ctx context.Context, saleID, addressID int64) (Invoice, error)
	GetByID(ctx context.Context, invoiceID int64) (Invoice, error)
	List(ctx context.Context, f Filter) ([]Invoice, error)
	ListForSale(ctx context.Context, saleID int64) ([]Invoice, error)
	SearchBySaleTotal(ctx context.Context, minTotal, maxTotal *money.Amount) ([]Invoice, error)
	UpdateAddress(ctx context.Context, invoiceID, addressID int64) (Invoice, error)
	Delete(ctx context.Context, invoiceID int64) (Invoice, error)
}

// PostgresRepository stores invoices in PostgreSQL. Every read joins the
// sale and its buyer so callers get ownership and totals in one row.
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

const invoiceColumns = `i.id, i.sale_id, i.delivery_address_id, i.issue_date, i.created_at, i.updated_at,
	s.user_id, s.sale_date, s.total, u.name`

const invoiceFrom = `
	FROM invoices i
	JOIN sales s ON s.id = i.sale_id
	JOIN users u ON u.id = s.user_id`

func scanInvoice(scan func(dest ...interface{}) error) (Invoice, error) {
	var inv Invoice
	err := scan(&inv.ID, &inv.SaleID, &inv.DeliveryAddressID, &inv.IssueDate, &inv.CreatedAt, &inv.UpdatedAt,
		&inv.SaleUserID, &inv.SaleDate, &inv.TotalAmount, &inv.CustomerName)
	if err != nil {
		return Invoice{}, err
	}
	inv.InvoiceNumber = fmt.Sprintf("INV-%06d", inv.ID)
	return inv, nil
}

func (r *PostgresRepository) Create(ctx context.Context, saleID, addressID int64) (Invoice, error) {
	defer metrics.MeasureDBQuery(r.m, "invoices.create", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	var id int64
	err := r.q.QueryRowContext(ctx, `
		INSERT INTO invoices (sale_id, delivery_address_id)
		VALUES ($1, $2)
		RETURNING id`, saleID, addressID).Scan(&id)
	if err != nil {
		return Invoice{}, storage.WrapError("invoices.create", err)
	}
	return r.GetByID(ctx, id)
}

func (r *PostgresRepository) GetByID(ctx context.Context, invoiceID int64) (Invoice, error) {
	defer metrics.MeasureDBQuery(r.m, "invoices.get_by_id", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	row := r.q.QueryRowContext(ctx, `
		SELECT `+invoiceColumns+invoiceFrom+`
		WHERE i.id = $1`, invoiceID)

	inv, err := scanInvoice(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Invoice{}, apperrors.New(apperrors.ErrCodeInvoiceNotFound, "Invoice not found")
	}
	if err != nil {
		return Invoice{}, storage.WrapError("invoices.get_by_id", err)
	}
	return inv, nil
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]Invoice, error) {
	defer metrics.MeasureDBQuery(r.m, "invoices.list", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	query := `
		SELECT ` + invoiceColumns + invoiceFrom
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
		where = append(where, fmt.Sprintf("i.issue_date >= $%d", len(args)))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		where = append(where, fmt.Sprintf("i.issue_date <= $%d", len(args)))
	}
	if len(where) > 0 {
		query += `
		WHERE ` + strings.Join(where, " AND ")
	}
	query += `
		ORDER BY i.issue_date DESC`

	return r.queryInvoices(ctx, "invoices.list", query, args...)
}

func (r *PostgresRepository) ListForSale(ctx context.Context, saleID int64) ([]Invoice, error) {
	defer metrics.MeasureDBQuery(r.m, "invoices.list_for_sale", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	return r.queryInvoices(ctx, "invoices.list_for_sale", `
		SELECT `+invoiceColumns+invoiceFrom+`
		WHERE i.sale_id = $1
		ORDER BY i.issue_date DESC`, saleID)
}

func (r *PostgresRepository) SearchBySaleTotal(ctx context.Context, minTotal, maxTotal *money.Amount) ([]Invoice, error) {
	defer metrics.MeasureDBQuery(r.m, "invoices.search_by_total", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	query := `
		SELECT ` + invoiceColumns + invoiceFrom
	var (
		where []string
		args  []interface{}
	)
	if minTotal != nil {
		args = append(args, *minTotal)
		where = append(where, fmt.Sprintf("s.total >= $%d", len(args)))
	}
	if maxTotal != nil {
		args = append(args, *maxTotal)
		where = append(where, fmt.Sprintf("s.total <= $%d", len(args)))
	}
	if len(where) > 0 {
		query += `
		WHERE ` + strings.Join(where, " AND ")
	}
	query += `
		ORDER BY i.issue_date DESC`

	return r.queryInvoices(ctx, "invoices.search_by_total", query, args...)
}

func (r *PostgresRepository) queryInvoices(ctx context.Context, op, query string, args ...interface{}) ([]Invoice, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storage.WrapError(op, err)
	}
	defer rows.Close()

	list := make([]Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows.Scan)
		if err != nil {
			return nil, storage.WrapError(op, err)
		}
		list = append(list, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.WrapError(op, err)
	}
	return list, nil
}

func (r *PostgresRepository) UpdateAddress(ctx context.Context, invoiceID, addressID int64) (Invoice, error) {
	defer metrics.MeasureDBQuery(r.m, "invoices.update_address", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	var id int64
	err := r.q.QueryRowContext(ctx, `
		UPDATE invoices
		SET delivery_address_id = $2, updated_at = now()
		WHERE id = $1
		RETURNING id`, invoiceID, addressID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return Invoice{}, apperrors.New(apperrors.ErrCodeInvoiceNotFound, "Invoice not found")
	}
	if err != nil {
		return Invoice{}, storage.WrapError("invoices.update_address", err)
	}
	return r.GetByID(ctx, id)
}

func (r *PostgresRepository) Delete(ctx context.Context, invoiceID int64) (Invoice, error) {
	defer metrics.MeasureDBQuery(r.m, "invoices.delete", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	inv, err := r.GetByID(ctx, invoiceID)
	if err != nil {
		return Invoice{}, err
	}

	if _, err := r.q.ExecContext(ctx, `DELETE FROM invoices WHERE id = $1`, invoiceID); err != nil {
		return Invoice{}, storage.WrapError("invoices.delete", err)
	}
	return inv, nil
}
