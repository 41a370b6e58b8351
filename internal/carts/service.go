package carts

import (
	"context"
	"fmt"
	"time"

	"github.com/lggm33/DUAD/internal/cache"
	"github.com/lggm33/DUAD/internal/cacheutil"
	apperrors "github.com/lggm33/DUAD/internal/errors"
	"github.com/lggm33/DUAD/internal/observability"
	"github.com/lggm33/DUAD/internal/products"
	"github.com/lggm33/DUAD/internal/storage"
)

// Catalog is the slice of the product store the cart needs. Stock checks go
// through the uncached repository so they see current numbers, not a copy
// that may be up to an hour old.
type Catalog interface {
	GetByID(ctx context.Context, id int64) (products.Product, error)
}

// Service implements cart operations on top of a Repository and the catalog.
type Service struct {
	repo     Repository
	catalog  Catalog
	cache    cache.Store
	hooks    *observability.Registry
	totalTTL time.Duration
}

// NewService wires a Service. totalTTL bounds the cached total report;
// non-positive values fall back to two minutes.
func NewService(repo Repository, catalog Catalog, store cache.Store, hooks *observability.Registry, totalTTL time.Duration) *Service {
	if totalTTL <= 0 {
		totalTTL = 2 * time.Minute
	}
	return &Service{repo: repo, catalog: catalog, cache: store, hooks: hooks, totalTTL: totalTTL}
}

// GetOrCreateActive returns the user's active cart, creating one when none
// exists. Two concurrent creators race on the partial unique index; the
// loser picks up the winner's cart.
func (s *Service) GetOrCreateActive(ctx context.Context, userID int64) (Cart, error) {
	cart, err := s.repo.GetActiveForUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !apperrors.IsCode(err, apperrors.ErrCodeCartNotFound) {
		return Cart{}, err
	}

	created, err := s.repo.CreateCart(ctx, userID)
	if err != nil {
		if storage.IsUniqueViolation(err, storage.ConstraintOneActiveCart) {
			return s.repo.GetActiveForUser(ctx, userID)
		}
		return Cart{}, err
	}
	return created, nil
}

// GetByID loads a cart. A non-zero requesterID enforces ownership; admins
// pass zero to skip the check.
func (s *Service) GetByID(ctx context.Context, cartID, requesterID int64) (Cart, error) {
	cart, err := s.repo.GetByID(ctx, cartID)
	if err != nil {
		return Cart{}, err
	}
	if requesterID != 0 && cart.UserID != requesterID {
		return Cart{}, apperrors.New(apperrors.ErrCodeNotResourceOwner, "Access denied: Cart belongs to another user")
	}
	return cart, nil
}

// ListForUser returns the user's cart summaries, optionally filtered by
// status. Unknown statuses simply match nothing.
func (s *Service) ListForUser(ctx context.Context, userID int64, status Status) ([]Summary, error) {
	return s.repo.ListForUser(ctx, userID, status)
}

// AddProduct puts quantity of a product into the user's active cart,
// incrementing any existing line. Stock must cover the combined quantity.
func (s *Service) AddProduct(ctx context.Context, userID int64, req AddProductRequest) (Line, error) {
	qty, err := req.validate()
	if err != nil {
		return Line{}, err
	}

	cart, err := s.GetOrCreateActive(ctx, userID)
	if err != nil {
		return Line{}, err
	}

	product, err := s.catalog.GetByID(ctx, req.ProductID)
	if err != nil {
		return Line{}, err
	}

	current := 0
	if existing, err := s.repo.GetItem(ctx, cart.ID, req.ProductID); err == nil {
		current = existing.Quantity
	} else if !apperrors.IsCode(err, apperrors.ErrCodeCartError) {
		return Line{}, err
	}

	total := current + qty
	if product.Stock < total {
		return Line{}, apperrors.Newf(apperrors.ErrCodeInsufficientStock,
			"Insufficient stock. Available: %d, Requested: %d", product.Stock, total)
	}

	item, err := s.repo.UpsertItem(ctx, cart.ID, req.ProductID, qty)
	if err != nil {
		return Line{}, err
	}

	s.invalidateTotal(ctx, userID)
	return lineFor(item, product)
}

// UpdateQuantity sets a line's quantity in the user's active cart. Zero
// removes the line and returns nil.
func (s *Service) UpdateQuantity(ctx context.Context, userID, productID int64, req UpdateQuantityRequest) (*Line, error) {
	qty, err := req.validate()
	if err != nil {
		return nil, err
	}

	cart, err := s.GetOrCreateActive(ctx, userID)
	if err != nil {
		return nil, err
	}

	if qty == 0 {
		if _, err := s.repo.RemoveItem(ctx, cart.ID, productID); err != nil {
			return nil, err
		}
		s.invalidateTotal(ctx, userID)
		return nil, nil
	}

	product, err := s.catalog.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.Stock < qty {
		return nil, apperrors.Newf(apperrors.ErrCodeInsufficientStock,
			"Insufficient stock. Available: %d, Requested: %d", product.Stock, qty)
	}

	item, err := s.repo.SetItemQuantity(ctx, cart.ID, productID, qty)
	if err != nil {
		return nil, err
	}

	s.invalidateTotal(ctx, userID)
	line, err := lineFor(item, product)
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// RemoveProduct drops a line from the user's active cart.
func (s *Service) RemoveProduct(ctx context.Context, userID, productID int64) error {
	cart, err := s.GetOrCreateActive(ctx, userID)
	if err != nil {
		return err
	}
	if _, err := s.repo.RemoveItem(ctx, cart.ID, productID); err != nil {
		return err
	}
	s.invalidateTotal(ctx, userID)
	return nil
}

// Clear empties the user's active cart.
func (s *Service) Clear(ctx context.Context, userID int64) error {
	cart, err := s.GetOrCreateActive(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.repo.ClearItems(ctx, cart.ID); err != nil {
		return err
	}
	s.invalidateTotal(ctx, userID)
	return nil
}

// ComputeTotal prices the user's active cart. The report is cached briefly
// per user; every cart mutation drops the entry.
func (s *Service) ComputeTotal(ctx context.Context, userID int64) (TotalReport, error) {
	return cacheutil.ReadThrough(ctx, s.cache, s.hooks, cache.CartTotalKey(userID), s.totalTTL,
		func(ctx context.Context) (TotalReport, error) {
			cart, err := s.GetOrCreateActive(ctx, userID)
			if err != nil {
				return TotalReport{}, err
			}
			return s.computeTotal(ctx, cart.ID)
		})
}

func (s *Service) computeTotal(ctx context.Context, cartID int64) (TotalReport, error) {
	items, err := s.repo.Items(ctx, cartID)
	if err != nil {
		return TotalReport{}, err
	}

	report := TotalReport{
		CartID:       cartID,
		ProductCount: len(items),
		Items:        make([]TotalItem, 0, len(items)),
	}
	for _, it := range items {
		product, err := s.catalog.GetByID(ctx, it.ProductID)
		if err != nil {
			if apperrors.IsCode(err, apperrors.ErrCodeProductNotFound) {
				// Deleted products stay in product_count but price nothing.
				continue
			}
			return TotalReport{}, err
		}

		subtotal, err := product.Price.MulQty(int64(it.Quantity))
		if err != nil {
			return TotalReport{}, apperrors.Wrap(apperrors.ErrCodeInternalError, "Could not price cart", err)
		}
		sum, err := report.Subtotal.Add(subtotal)
		if err != nil {
			return TotalReport{}, apperrors.Wrap(apperrors.ErrCodeInternalError, "Could not price cart", err)
		}

		report.Subtotal = sum
		report.TotalItems += it.Quantity
		report.Items = append(report.Items, TotalItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Price:       product.Price,
			Quantity:    it.Quantity,
			Subtotal:    subtotal,
		})
	}
	return report, nil
}

// TransitionStatus moves a cart to a new lifecycle state. A non-zero
// requesterID enforces ownership first.
func (s *Service) TransitionStatus(ctx context.Context, cartID int64, status Status, requesterID int64) (Cart, error) {
	if requesterID != 0 {
		if _, err := s.GetByID(ctx, cartID, requesterID); err != nil {
			return Cart{}, err
		}
	}
	if !ValidStatus(status) {
		return Cart{}, apperrors.Newf(apperrors.ErrCodeInvalidCartTransition,
			"Invalid status. Valid statuses: %s", statusList())
	}

	cart, err := s.repo.UpdateStatus(ctx, cartID, status)
	if err != nil {
		return Cart{}, err
	}

	s.invalidateTotal(ctx, cart.UserID)
	return cart, nil
}

// ValidateForCheckout inspects the cart line by line and reports what would
// block a checkout, plus low-stock warnings for lines that would drain more
// than half the remaining stock.
func (s *Service) ValidateForCheckout(ctx context.Context, cartID int64) (ValidationReport, error) {
	cart, err := s.repo.GetByID(ctx, cartID)
	if err != nil {
		return ValidationReport{}, err
	}
	if cart.Status != StatusActive {
		return ValidationReport{}, apperrors.New(apperrors.ErrCodeCartNotActive, "Cart is not active")
	}

	items, err := s.repo.Items(ctx, cartID)
	if err != nil {
		return ValidationReport{}, err
	}
	if len(items) == 0 {
		return ValidationReport{}, apperrors.New(apperrors.ErrCodeCartEmpty, "Cart is empty")
	}

	report := ValidationReport{
		Valid:    true,
		Errors:   []string{},
		Warnings: []string{},
		Items:    make([]ValidationItem, 0, len(items)),
	}
	for _, it := range items {
		entry := ValidationItem{
			ProductID:         it.ProductID,
			RequestedQuantity: it.Quantity,
			Valid:             true,
			Issues:            []string{},
		}

		product, err := s.catalog.GetByID(ctx, it.ProductID)
		switch {
		case apperrors.IsCode(err, apperrors.ErrCodeProductNotFound):
			entry.Valid = false
			entry.Issues = append(entry.Issues, "Product no longer exists")
			report.Errors = append(report.Errors, fmt.Sprintf("Product %d no longer exists", it.ProductID))
			report.Valid = false

		case err != nil:
			return ValidationReport{}, err

		default:
			entry.AvailableStock = product.Stock
			if product.Stock < it.Quantity {
				entry.Valid = false
				entry.Issues = append(entry.Issues, fmt.Sprintf("Insufficient stock (available: %d)", product.Stock))
				report.Errors = append(report.Errors, fmt.Sprintf(
					"Insufficient stock for %s. Available: %d, Requested: %d",
					product.Name, product.Stock, it.Quantity))
				report.Valid = false
				break
			}

			if product.Stock < it.Quantity*2 {
				report.Warnings = append(report.Warnings, fmt.Sprintf(
					"Low stock for %s: only %d remaining", product.Name, product.Stock))
			}

			subtotal, err := product.Price.MulQty(int64(it.Quantity))
			if err != nil {
				return ValidationReport{}, apperrors.Wrap(apperrors.ErrCodeInternalError, "Could not price cart", err)
			}
			total, err := report.TotalAmount.Add(subtotal)
			if err != nil {
				return ValidationReport{}, apperrors.Wrap(apperrors.ErrCodeInternalError, "Could not price cart", err)
			}
			report.TotalAmount = total
		}

		report.Items = append(report.Items, entry)
	}
	return report, nil
}

// CartOwner satisfies the resolver contract the cart ownership middleware
// expects.
func (s *Service) CartOwner(ctx context.Context, cartID int64) (int64, error) {
	return s.repo.CartOwner(ctx, cartID)
}

// AbandonStale marks active carts older than the given age as abandoned and
// returns the count. Cached totals of affected users age out on their own
// short TTL.
func (s *Service) AbandonStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	return s.repo.AbandonOlderThan(ctx, time.Now().Add(-olderThan))
}

func (s *Service) invalidateTotal(ctx context.Context, userID int64) {
	cacheutil.Invalidate(ctx, s.cache, s.hooks, []string{cache.CartTotalKey(userID)})
}

func lineFor(it Item, p products.Product) (Line, error) {
	subtotal, err := p.Price.MulQty(int64(it.Quantity))
	if err != nil {
		return Line{}, apperrors.Wrap(apperrors.ErrCodeInternalError, "Could not price cart", err)
	}
	product := p
	return Line{
		CartID:    it.CartID,
		ProductID: it.ProductID,
		Quantity:  it.Quantity,
		UpdatedAt: it.UpdatedAt,
		Product:   &product,
		Subtotal:  subtotal,
	}, nil
}
