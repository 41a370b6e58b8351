package checkout

import (
	"context"
	"database/sql"

	"github.com/lggm33/DUAD/internal/carts"
	"github.com/lggm33/DUAD/internal/money"
	"github.com/lggm33/DUAD/internal/products"
	"github.com/lggm33/DUAD/internal/sales"
	"github.com/lggm33/DUAD/internal/storage"
)

// Txn is the repository surface a checkout touches while its transaction
// is open. Every call sees, and is rolled back with, the same transaction.
type Txn interface {
	CartItems(ctx context.Context, cartID int64) ([]carts.Item, error)
	ProductForUpdate(ctx context.Context, productID int64) (products.Product, error)
	CreateSale(ctx context.Context, userID int64, total money.Amount) (sales.Sale, error)
	AddSaleLine(ctx context.Context, saleID, productID int64, qty int, price money.Amount) (sales.Line, error)
	DebitStock(ctx context.Context, productID int64, qty int) error
	ConvertCart(ctx context.Context, cartID int64) (carts.Cart, error)
}

// Store runs a checkout transaction: fn commits when it returns nil and
// rolls back otherwise.
type Store interface {
	InTransaction(ctx context.Context, fn func(txn Txn) error) error
}

// PostgresStore binds the cart, product and sale repositories to one
// database transaction per checkout.
type PostgresStore struct {
	pg       *storage.Postgres
	carts    *carts.PostgresRepository
	products *products.PostgresRepository
	sales    *sales.PostgresRepository
}

func NewPostgresStore(pg *storage.Postgres, cartRepo *carts.PostgresRepository, productRepo *products.PostgresRepository, saleRepo *sales.PostgresRepository) *PostgresStore {
	return &PostgresStore{pg: pg, carts: cartRepo, products: productRepo, sales: saleRepo}
}

func (s *PostgresStore) InTransaction(ctx context.Context, fn func(txn Txn) error) error {
	return s.pg.WithTransaction(ctx, func(tx *sql.Tx) error {
		return fn(&postgresTxn{
			carts:    s.carts.WithTx(tx),
			products: s.products.WithTx(tx),
			sales:    s.sales.WithTx(tx),
		})
	})
}

type postgresTxn struct {
	carts    *carts.PostgresRepository
	products *products.PostgresRepository
	sales    *sales.PostgresRepository
}

func (t *postgresTxn) CartItems(ctx context.Context, cartID int64) ([]carts.Item, error) {
	return t.carts.Items(ctx, cartID)
}

func (t *postgresTxn) ProductForUpdate(ctx context.Context, productID int64) (products.Product, error) {
	return t.products.GetForUpdate(ctx, productID)
}

func (t *postgresTxn) CreateSale(ctx context.Context, userID int64, total money.Amount) (sales.Sale, error) {
	return t.sales.CreateSale(ctx, userID, total)
}

func (t *postgresTxn) AddSaleLine(ctx context.Context, saleID, productID int64, qty int, price money.Amount) (sales.Line, error) {
	return t.sales.AddLine(ctx, saleID, productID, qty, price)
}

func (t *postgresTxn) DebitStock(ctx context.Context, productID int64, qty int) error {
	return t.products.DebitStock(ctx, productID, qty)
}

func (t *postgresTxn) ConvertCart(ctx context.Context, cartID int64) (carts.Cart, error) {
	return t.carts.UpdateStatus(ctx, cartID, carts.StatusConverted)
}
