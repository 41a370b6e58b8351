package checkout

import (
	"context"
	"strings"
	"time"

	"github.com/lggm33/DUAD/internal/addresses"
	"github.com/lggm33/DUAD/internal/cache"
	"github.com/lggm33/DUAD/internal/cacheutil"
	"github.com/lggm33/DUAD/internal/carts"
	apperrors "github.com/lggm33/DUAD/internal/errors"
	"github.com/lggm33/DUAD/internal/invoices"
	"github.com/lggm33/DUAD/internal/money"
	"github.com/lggm33/DUAD/internal/observability"
	"github.com/lggm33/DUAD/internal/sales"
)

// CartGateway authorizes and pre-validates the cart being converted.
type CartGateway interface {
	GetByID(ctx context.Context, cartID, requesterID int64) (carts.Cart, error)
	ValidateForCheckout(ctx context.Context, cartID int64) (carts.ValidationReport, error)
}

// AddressGateway resolves the delivery address.
type AddressGateway interface {
	GetByID(ctx context.Context, id int64) (addresses.Address, error)
}

// SaleReader re-reads the committed sale for the response document.
type SaleReader interface {
	GetByID(ctx context.Context, saleID, requesterID int64) (sales.Sale, error)
	Detail(ctx context.Context, saleID, requesterID int64) (sales.Detail, error)
}

// InvoiceIssuer creates the optional post-checkout invoice.
type InvoiceIssuer interface {
	Create(ctx context.Context, requesterID int64, req invoices.CreateRequest) (invoices.Invoice, error)
}

// ProductCache drops cached product reads after stock changes.
type ProductCache interface {
	Invalidate(ctx context.Context)
}

// Service runs checkouts.
type Service struct {
	store        Store
	carts        CartGateway
	addresses    AddressGateway
	sales        SaleReader
	invoices     InvoiceIssuer
	productCache ProductCache
	cache        cache.Store
	hooks        *observability.Registry
}

func NewService(store Store, cartGw CartGateway, addressGw AddressGateway, saleReader SaleReader, issuer InvoiceIssuer, productCache ProductCache, cacheStore cache.Store, hooks *observability.Registry) *Service {
	return &Service{
		store:        store,
		carts:        cartGw,
		addresses:    addressGw,
		sales:        saleReader,
		invoices:     issuer,
		productCache: productCache,
		cache:        cacheStore,
		hooks:        hooks,
	}
}

// Checkout converts the user's cart into a sale. Validation failures and
// rolled-back transactions emit a failure event; once the transaction
// commits the checkout stands, even if invoice generation fails.
func (s *Service) Checkout(ctx context.Context, userID int64, req Request) (Result, error) {
	started := time.Now()

	sale, itemCount, err := s.commit(ctx, userID, req)
	if err != nil {
		s.hooks.EmitCheckoutFailed(ctx, observability.CheckoutFailedEvent{
			Timestamp: time.Now().UTC(),
			UserID:    userID,
			CartID:    req.CartID,
			Reason:    string(apperrors.CodeOf(err)),
			Duration:  time.Since(started),
		})
		return Result{}, err
	}

	// Caches drop only after the commit.
	cacheutil.Invalidate(ctx, s.cache, s.hooks, []string{cache.CartTotalKey(userID)}, cache.PatternSalesReports)
	if s.productCache != nil {
		s.productCache.Invalidate(ctx)
	}

	res := Result{Message: "Checkout completed successfully"}
	var invoiceID int64
	if req.GenerateInvoice {
		inv, invErr := s.invoices.Create(ctx, userID, invoices.CreateRequest{
			SaleID:            sale.ID,
			DeliveryAddressID: req.DeliveryAddressID,
		})
		if invErr != nil {
			res.Warning = "Sale completed but invoice generation failed: " + apperrors.MessageOf(invErr)
		} else {
			res.Invoice = &inv
			res.Message = "Checkout completed successfully with invoice generated"
			invoiceID = inv.ID
		}
	}

	s.hooks.EmitCheckoutCompleted(ctx, observability.CheckoutCompletedEvent{
		Timestamp:     time.Now().UTC(),
		UserID:        userID,
		CartID:        req.CartID,
		SaleID:        sale.ID,
		InvoiceID:     invoiceID,
		Total:         sale.Total,
		ItemCount:     itemCount,
		PaymentMethod: paymentMethodLabel(req.PaymentMethod),
		Duration:      time.Since(started),
	})

	committed, err := s.sales.GetByID(ctx, sale.ID, userID)
	if err != nil {
		return Result{}, err
	}
	res.Sale = committed

	summary, err := s.sales.Detail(ctx, sale.ID, userID)
	if err != nil {
		return Result{}, err
	}
	res.Summary = summary
	return res, nil
}

// commit validates the order and runs the conversion transaction. It
// returns the inserted sale and the number of distinct products sold.
func (s *Service) commit(ctx context.Context, userID int64, req Request) (sales.Sale, int, error) {
	if err := req.validate(); err != nil {
		return sales.Sale{}, 0, err
	}

	cart, err := s.carts.GetByID(ctx, req.CartID, userID)
	if err != nil {
		return sales.Sale{}, 0, err
	}
	if cart.Status != carts.StatusActive {
		return sales.Sale{}, 0, apperrors.New(apperrors.ErrCodeCartNotActive, "Cart is not active")
	}

	address, err := s.addresses.GetByID(ctx, req.DeliveryAddressID)
	if err != nil {
		return sales.Sale{}, 0, err
	}
	if address.UserID != userID {
		return sales.Sale{}, 0, apperrors.New(apperrors.ErrCodeNotResourceOwner, "Access denied: Delivery address belongs to another user")
	}

	report, err := s.carts.ValidateForCheckout(ctx, req.CartID)
	if err != nil {
		return sales.Sale{}, 0, err
	}
	if !report.Valid {
		return sales.Sale{}, 0, apperrors.Newf(apperrors.ErrCodeSaleError,
			"Cart validation failed: %s", strings.Join(report.Errors, "; "))
	}

	var (
		sale      sales.Sale
		itemCount int
	)
	err = s.store.InTransaction(ctx, func(txn Txn) error {
		items, err := txn.CartItems(ctx, req.CartID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return apperrors.New(apperrors.ErrCodeCartEmpty, "Cart is empty")
		}

		// Lock and re-check every product; the pre-validation ran
		// outside this transaction and may already be stale.
		type priced struct {
			productID int64
			qty       int
			price     money.Amount
		}
		lines := make([]priced, 0, len(items))
		var total money.Amount
		for _, item := range items {
			product, err := txn.ProductForUpdate(ctx, item.ProductID)
			if err != nil {
				if apperrors.IsCode(err, apperrors.ErrCodeProductNotFound) {
					return apperrors.Newf(apperrors.ErrCodeProductNotFound, "Product %d not found", item.ProductID)
				}
				return err
			}
			if product.Stock < item.Quantity {
				return apperrors.Newf(apperrors.ErrCodeInsufficientStock,
					"Insufficient stock for %s. Available: %d, Requested: %d",
					product.Name, product.Stock, item.Quantity)
			}

			lineTotal, err := product.Price.MulQty(int64(item.Quantity))
			if err != nil {
				return apperrors.Wrap(apperrors.ErrCodeSaleError, "Could not price cart", err)
			}
			total, err = total.Add(lineTotal)
			if err != nil {
				return apperrors.Wrap(apperrors.ErrCodeSaleError, "Could not price cart", err)
			}
			lines = append(lines, priced{productID: item.ProductID, qty: item.Quantity, price: product.Price})
		}

		sale, err = txn.CreateSale(ctx, userID, total)
		if err != nil {
			return err
		}
		for _, line := range lines {
			if _, err := txn.AddSaleLine(ctx, sale.ID, line.productID, line.qty, line.price); err != nil {
				return err
			}
			if err := txn.DebitStock(ctx, line.productID, line.qty); err != nil {
				return err
			}
		}
		if _, err := txn.ConvertCart(ctx, req.CartID); err != nil {
			return err
		}

		itemCount = len(lines)
		return nil
	})
	if err != nil {
		return sales.Sale{}, 0, err
	}
	return sale, itemCount, nil
}

func paymentMethodLabel(method *string) string {
	if method == nil {
		return ""
	}
	return *method
}
