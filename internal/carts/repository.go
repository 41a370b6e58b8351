package carts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/lggm33/DUAD/internal/errors"
	"github.com/lggm33/DUAD/internal/metrics"
	"github.com/lggm33/DUAD/internal/money"
	"github.com/lggm33/DUAD/internal/products"
	"github.com/lggm33/DUAD/internal/storage"
)

// Repository is the cart persistence surface.
type Repository interface {
	CreateCart(ctx context.Context, userID int64) (Cart, error)
	GetByID(ctx context.Context, cartID int64) (Cart, error)
	GetActiveForUser(ctx context.Context, userID int64) (Cart, error)
	ListForUser(ctx context.Context, userID int64, status Status) ([]Summary, error)
	UpdateStatus(ctx context.Context, cartID int64, status Status) (Cart, error)
	CartOwner(ctx context.Context, cartID int64) (int64, error)

	Items(ctx context.Context, cartID int64) ([]Item, error)
	Lines(ctx context.Context, cartID int64) ([]Line, error)
	GetItem(ctx context.Context, cartID, productID int64) (Item, error)
	UpsertItem(ctx context.Context, cartID, productID int64, qty int) (Item, error)
	SetItemQuantity(ctx context.Context, cartID, productID int64, qty int) (Item, error)
	RemoveItem(ctx context.Context, cartID, productID int64) (Item, error)
	ClearItems(ctx context.Context, cartID int64) error

	AbandonOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// PostgresRepository stores carts in PostgreSQL. The partial unique index
// carts_one_active_per_user backs the one-active-cart invariant.
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

const cartColumns = `id, user_id, creation_date, status, created_at, updated_at`
const itemColumns = `cart_id, product_id, quantity, updated_at`

func scanCart(row *sql.Row) (Cart, error) {
	var c Cart
	err := row.Scan(&c.ID, &c.UserID, &c.CreationDate, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func scanItem(row *sql.Row) (Item, error) {
	var it Item
	err := row.Scan(&it.CartID, &it.ProductID, &it.Quantity, &it.UpdatedAt)
	return it, err
}

func (r *PostgresRepository) CreateCart(ctx context.Context, userID int64) (Cart, error) {
	defer metrics.MeasureDBQuery(r.m, "carts.create", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	row := r.q.QueryRowContext(ctx, `
		INSERT INTO carts (user_id)
		VALUES ($1)
		RETURNING `+cartColumns, userID)

	cart, err := scanCart(row)
	if err != nil {
		return Cart{}, storage.WrapError("carts.create", err)
	}
	cart.Items = make([]Line, 0)
	return cart, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, cartID int64) (Cart, error) {
	defer metrics.MeasureDBQuery(r.m, "carts.get_by_id", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	row := r.q.QueryRowContext(ctx, `SELECT `+cartColumns+` FROM carts WHERE id = $1`, cartID)
	cart, err := scanCart(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Cart{}, apperrors.New(apperrors.ErrCodeCartNotFound, "Cart not found")
		}
		return Cart{}, storage.WrapError("carts.get_by_id", err)
	}
	return r.attachLines(ctx, cart)
}

func (r *PostgresRepository) GetActiveForUser(ctx context.Context, userID int64) (Cart, error) {
	defer metrics.MeasureDBQuery(r.m, "carts.get_active", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	row := r.q.QueryRowContext(ctx, `
		SELECT `+cartColumns+`
		FROM carts
		WHERE user_id = $1 AND status = 'active'`, userID)
	cart, err := scanCart(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Cart{}, apperrors.New(apperrors.ErrCodeCartNotFound, "Cart not found")
		}
		return Cart{}, storage.WrapError("carts.get_active", err)
	}
	return r.attachLines(ctx, cart)
}

func (r *PostgresRepository) ListForUser(ctx context.Context, userID int64, status Status) ([]Summary, error) {
	defer metrics.MeasureDBQuery(r.m, "carts.list_for_user", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	query := `
		SELECT c.id, c.user_id, c.creation_date, c.status, COUNT(cp.product_id)
		FROM carts c
		LEFT JOIN cart_products cp ON cp.cart_id = c.id
		WHERE c.user_id = $1`
	args := []interface{}{userID}
	if status != "" {
		query += ` AND c.status = $2`
		args = append(args, status)
	}
	query += `
		GROUP BY c.id
		ORDER BY c.created_at DESC`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storage.WrapError("carts.list_for_user", err)
	}
	defer rows.Close()

	list := make([]Summary, 0)
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.UserID, &s.CreationDate, &s.Status, &s.ProductCount); err != nil {
			return nil, storage.WrapError("carts.list_for_user", err)
		}
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.WrapError("carts.list_for_user", err)
	}
	return list, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, cartID int64, status Status) (Cart, error) {
	defer metrics.MeasureDBQuery(r.m, "carts.update_status", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	row := r.q.QueryRowContext(ctx, `
		UPDATE carts
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+cartColumns, cartID, status)

	cart, err := scanCart(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Cart{}, apperrors.New(apperrors.ErrCodeCartNotFound, "Cart not found")
		}
		return Cart{}, storage.WrapError("carts.update_status", err)
	}
	return r.attachLines(ctx, cart)
}

func (r *PostgresRepository) CartOwner(ctx context.Context, cartID int64) (int64, error) {
	defer metrics.MeasureDBQuery(r.m, "carts.owner", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	var owner int64
	err := r.q.QueryRowContext(ctx, `SELECT user_id FROM carts WHERE id = $1`, cartID).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperrors.New(apperrors.ErrCodeCartNotFound, "Cart not found")
		}
		return 0, storage.WrapError("carts.owner", err)
	}
	return owner, nil
}

func (r *PostgresRepository) Items(ctx context.Context, cartID int64) ([]Item, error) {
	defer metrics.MeasureDBQuery(r.m, "carts.items", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	rows, err := r.q.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM cart_products
		WHERE cart_id = $1
		ORDER BY product_id`, cartID)
	if err != nil {
		return nil, storage.WrapError("carts.items", err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.CartID, &it.ProductID, &it.Quantity, &it.UpdatedAt); err != nil {
			return nil, storage.WrapError("carts.items", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.WrapError("carts.items", err)
	}
	return items, nil
}

// Lines joins cart items with their catalog rows. A line whose product was
// deleted comes back with a nil Product.
func (r *PostgresRepository) Lines(ctx context.Context, cartID int64) ([]Line, error) {
	defer metrics.MeasureDBQuery(r.m, "carts.lines", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	rows, err := r.q.QueryContext(ctx, `
		SELECT cp.cart_id, cp.product_id, cp.quantity, cp.updated_at,
		       p.id, p.name, p.description, p.price, p.stock, p.created_at, p.updated_at
		FROM cart_products cp
		LEFT JOIN products p ON p.id = cp.product_id
		WHERE cp.cart_id = $1
		ORDER BY cp.product_id`, cartID)
	if err != nil {
		return nil, storage.WrapError("carts.lines", err)
	}
	defer rows.Close()

	lines := make([]Line, 0)
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, storage.WrapError("carts.lines", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.WrapError("carts.lines", err)
	}
	return lines, nil
}

func scanLine(rows *sql.Rows) (Line, error) {
	var (
		line     Line
		pid      sql.NullInt64
		pName    sql.NullString
		pDesc    sql.NullString
		pPrice   sql.NullString
		pStock   sql.NullInt64
		pCreated sql.NullTime
		pUpdated sql.NullTime
	)
	err := rows.Scan(&line.CartID, &line.ProductID, &line.Quantity, &line.UpdatedAt,
		&pid, &pName, &pDesc, &pPrice, &pStock, &pCreated, &pUpdated)
	if err != nil {
		return Line{}, err
	}

	if !pid.Valid {
		return line, nil
	}

	price, err := money.FromMajorString(pPrice.String)
	if err != nil {
		return Line{}, fmt.Errorf("product %d price: %w", pid.Int64, err)
	}
	var desc *string
	if pDesc.Valid {
		d := pDesc.String
		desc = &d
	}
	line.Product = &products.Product{
		ID:          pid.Int64,
		Name:        pName.String,
		Description: desc,
		Price:       price,
		Stock:       int(pStock.Int64),
		CreatedAt:   pCreated.Time,
		UpdatedAt:   pUpdated.Time,
	}
	subtotal, err := price.MulQty(int64(line.Quantity))
	if err != nil {
		return Line{}, fmt.Errorf("product %d subtotal: %w", pid.Int64, err)
	}
	line.Subtotal = subtotal
	return line, nil
}

func (r *PostgresRepository) GetItem(ctx context.Context, cartID, productID int64) (Item, error) {
	defer metrics.MeasureDBQuery(r.m, "carts.get_item", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	row := r.q.QueryRowContext(ctx, `
		SELECT `+itemColumns+`
		FROM cart_products
		WHERE cart_id = $1 AND product_id = $2`, cartID, productID)
	it, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Item{}, apperrors.New(apperrors.ErrCodeCartError, "Product not found in cart")
		}
		return Item{}, storage.WrapError("carts.get_item", err)
	}
	return it, nil
}

// UpsertItem adds qty to an existing line or inserts a fresh one.
func (r *PostgresRepository) UpsertItem(ctx context.Context, cartID, productID int64, qty int) (Item, error) {
	defer metrics.MeasureDBQuery(r.m, "carts.upsert_item", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	row := r.q.QueryRowContext(ctx, `
		INSERT INTO cart_products (cart_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_products.quantity + EXCLUDED.quantity, updated_at = now()
		RETURNING `+itemColumns, cartID, productID, qty)

	it, err := scanItem(row)
	if err != nil {
		return Item{}, storage.WrapError("carts.upsert_item", err)
	}
	return it, nil
}

func (r *PostgresRepository) SetItemQuantity(ctx context.Context, cartID, productID int64, qty int) (Item, error) {
	defer metrics.MeasureDBQuery(r.m, "carts.set_item_quantity", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	row := r.q.QueryRowContext(ctx, `
		UPDATE cart_products
		SET quantity = $3, updated_at = now()
		WHERE cart_id = $1 AND product_id = $2
		RETURNING `+itemColumns, cartID, productID, qty)

	it, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Item{}, apperrors.New(apperrors.ErrCodeCartError, "Product not found in cart")
		}
		return Item{}, storage.WrapError("carts.set_item_quantity", err)
	}
	return it, nil
}

func (r *PostgresRepository) RemoveItem(ctx context.Context, cartID, productID int64) (Item, error) {
	defer metrics.MeasureDBQuery(r.m, "carts.remove_item", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	row := r.q.QueryRowContext(ctx, `
		DELETE FROM cart_products
		WHERE cart_id = $1 AND product_id = $2
		RETURNING `+itemColumns, cartID, productID)

	it, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Item{}, apperrors.New(apperrors.ErrCodeCartError, "Product not found in cart")
		}
		return Item{}, storage.WrapError("carts.remove_item", err)
	}
	return it, nil
}

func (r *PostgresRepository) ClearItems(ctx context.Context, cartID int64) error {
	defer metrics.MeasureDBQuery(r.m, "carts.clear_items", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	if _, err := r.q.ExecContext(ctx, `DELETE FROM cart_products WHERE cart_id = $1`, cartID); err != nil {
		return storage.WrapError("carts.clear_items", err)
	}
	return nil
}

// AbandonOlderThan marks active carts created before cutoff as abandoned and
// returns how many it touched. The stock monitor runs it on its sweep.
func (r *PostgresRepository) AbandonOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	defer metrics.MeasureDBQuery(r.m, "carts.abandon_older_than", "postgres")()
	ctx, cancel := r.pg.QueryCtx(ctx)
	defer cancel()

	res, err := r.q.ExecContext(ctx, `
		UPDATE carts
		SET status = 'abandoned', updated_at = now()
		WHERE status = 'active' AND creation_date < $1`, cutoff)
	if err != nil {
		return 0, storage.WrapError("carts.abandon_older_than", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, storage.WrapError("carts.abandon_older_than", err)
	}
	return affected, nil
}

func (r *PostgresRepository) attachLines(ctx context.Context, cart Cart) (Cart, error) {
	lines, err := r.Lines(ctx, cart.ID)
	if err != nil {
		return Cart{}, err
	}
	cart.Items = lines
	return cart, nil
}
