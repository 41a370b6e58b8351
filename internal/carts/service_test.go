package carts

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/lggm33/DUAD/internal/cache"
	apperrors "github.com/lggm33/DUAD/internal/errors"
	"github.com/lggm33/DUAD/internal/money"
	"github.com/lggm33/DUAD/internal/observability"
	"github.com/lggm33/DUAD/internal/products"
	"github.com/lggm33/DUAD/internal/storage"
)

type fakeRepository struct {
	nextID      int64
	carts       map[int64]Cart
	items       map[int64]map[int64]Item
	createErr   error
	createCalls int
	itemsCalls  int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{carts: map[int64]Cart{}, items: map[int64]map[int64]Item{}}
}

func (f *fakeRepository) addCart(userID int64, status Status) Cart {
	f.nextID++
	now := time.Now().UTC()
	cart := Cart{ID: f.nextID, UserID: userID, CreationDate: now, Status: status, CreatedAt: now, UpdatedAt: now, Items: []Line{}}
	f.carts[cart.ID] = cart
	f.items[cart.ID] = map[int64]Item{}
	return cart
}

func (f *fakeRepository) putItem(cartID, productID int64, qty int) {
	f.items[cartID][productID] = Item{CartID: cartID, ProductID: productID, Quantity: qty, UpdatedAt: time.Now().UTC()}
}

func (f *fakeRepository) CreateCart(_ context.Context, userID int64) (Cart, error) {
	f.createCalls++
	if f.createErr != nil {
		err := f.createErr
		f.createErr = nil
		// A concurrent request won the insert before this one failed.
		f.addCart(userID, StatusActive)
		return Cart{}, err
	}
	return f.addCart(userID, StatusActive), nil
}

func (f *fakeRepository) GetByID(_ context.Context, cartID int64) (Cart, error) {
	cart, ok := f.carts[cartID]
	if !ok {
		return Cart{}, apperrors.New(apperrors.ErrCodeCartNotFound, "Cart not found")
	}
	return cart, nil
}

func (f *fakeRepository) GetActiveForUser(_ context.Context, userID int64) (Cart, error) {
	for _, cart := range f.carts {
		if cart.UserID == userID && cart.Status == StatusActive {
			return cart, nil
		}
	}
	return Cart{}, apperrors.New(apperrors.ErrCodeCartNotFound, "Cart not found")
}

func (f *fakeRepository) ListForUser(_ context.Context, userID int64, status Status) ([]Summary, error) {
	out := make([]Summary, 0)
	for _, cart := range f.carts {
		if cart.UserID != userID {
			continue
		}
		if status != "" && cart.Status != status {
			continue
		}
		out = append(out, Summary{
			ID:           cart.ID,
			UserID:       cart.UserID,
			CreationDate: cart.CreationDate,
			Status:       cart.Status,
			ProductCount: len(f.items[cart.ID]),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRepository) UpdateStatus(_ context.Context, cartID int64, status Status) (Cart, error) {
	cart, ok := f.carts[cartID]
	if !ok {
		return Cart{}, apperrors.New(apperrors.ErrCodeCartNotFound, "Cart not found")
	}
	cart.Status = status
	f.carts[cartID] = cart
	return cart, nil
}

func (f *fakeRepository) CartOwner(_ context.Context, cartID int64) (int64, error) {
	cart, ok := f.carts[cartID]
	if !ok {
		return 0, apperrors.New(apperrors.ErrCodeCartNotFound, "Cart not found")
	}
	return cart.UserID, nil
}

func (f *fakeRepository) Items(_ context.Context, cartID int64) ([]Item, error) {
	f.itemsCalls++
	out := make([]Item, 0, len(f.items[cartID]))
	for _, it := range f.items[cartID] {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (f *fakeRepository) Lines(ctx context.Context, cartID int64) ([]Line, error) {
	items, err := f.Items(ctx, cartID)
	if err != nil {
		return nil, err
	}
	lines := make([]Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, Line{CartID: it.CartID, ProductID: it.ProductID, Quantity: it.Quantity, UpdatedAt: it.UpdatedAt})
	}
	return lines, nil
}

func (f *fakeRepository) GetItem(_ context.Context, cartID, productID int64) (Item, error) {
	it, ok := f.items[cartID][productID]
	if !ok {
		return Item{}, apperrors.New(apperrors.ErrCodeCartError, "Product not found in cart")
	}
	return it, nil
}

func (f *fakeRepository) UpsertItem(_ context.Context, cartID, productID int64, qty int) (Item, error) {
	it, ok := f.items[cartID][productID]
	if ok {
		it.Quantity += qty
	} else {
		it = Item{CartID: cartID, ProductID: productID, Quantity: qty}
	}
	it.UpdatedAt = time.Now().UTC()
	f.items[cartID][productID] = it
	return it, nil
}

func (f *fakeRepository) SetItemQuantity(_ context.Context, cartID, productID int64, qty int) (Item, error) {
	it, ok := f.items[cartID][productID]
	if !ok {
		return Item{}, apperrors.New(apperrors.ErrCodeCartError, "Product not found in cart")
	}
	it.Quantity = qty
	it.UpdatedAt = time.Now().UTC()
	f.items[cartID][productID] = it
	return it, nil
}

func (f *fakeRepository) RemoveItem(_ context.Context, cartID, productID int64) (Item, error) {
	it, ok := f.items[cartID][productID]
	if !ok {
		return Item{}, apperrors.New(apperrors.ErrCodeCartError, "Product not found in cart")
	}
	delete(f.items[cartID], productID)
	return it, nil
}

func (f *fakeRepository) ClearItems(_ context.Context, cartID int64) error {
	f.items[cartID] = map[int64]Item{}
	return nil
}

func (f *fakeRepository) AbandonOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for id, cart := range f.carts {
		if cart.Status == StatusActive && cart.CreationDate.Before(cutoff) {
			cart.Status = StatusAbandoned
			f.carts[id] = cart
			n++
		}
	}
	return n, nil
}

type fakeCatalog struct {
	products map[int64]products.Product
}

func (f *fakeCatalog) GetByID(_ context.Context, id int64) (products.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return products.Product{}, apperrors.New(apperrors.ErrCodeProductNotFound, "Product not found")
	}
	return p, nil
}

type serviceFixture struct {
	service *Service
	repo    *fakeRepository
	catalog *fakeCatalog
	store   *cache.MemoryStore
}

func newServiceFixture() *serviceFixture {
	repo := newFakeRepository()
	catalog := &fakeCatalog{products: map[int64]products.Product{}}
	store := cache.NewMemory()
	hooks := observability.NewRegistry(zerolog.Nop())
	return &serviceFixture{
		service: NewService(repo, catalog, store, hooks, 0),
		repo:    repo,
		catalog: catalog,
		store:   store,
	}
}

func (f *serviceFixture) seedProduct(id int64, name string, priceCents int64, stock int) {
	f.catalog.products[id] = products.Product{ID: id, Name: name, Price: money.FromMinor(priceCents), Stock: stock}
}

func intPtr(v int) *int { return &v }

func TestGetOrCreateActive(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	first, err := f.service.GetOrCreateActive(ctx, 7)
	if err != nil {
		t.Fatalf("GetOrCreateActive: %v", err)
	}
	if first.UserID != 7 || first.Status != StatusActive {
		t.Fatalf("unexpected cart: %+v", first)
	}

	second, err := f.service.GetOrCreateActive(ctx, 7)
	if err != nil {
		t.Fatalf("GetOrCreateActive again: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("expected the same cart, got %d and %d", first.ID, second.ID)
	}
	if f.repo.createCalls != 1 {
		t.Errorf("expected 1 create, got %d", f.repo.createCalls)
	}
}

func TestGetOrCreateActive_LostCreationRace(t *testing.T) {
	f := newServiceFixture()
	f.repo.createErr = storage.WrapError("carts.create",
		&pq.Error{Code: "23505", Constraint: storage.ConstraintOneActiveCart})

	cart, err := f.service.GetOrCreateActive(context.Background(), 7)
	if err != nil {
		t.Fatalf("expected the winner's cart after losing the race, got %v", err)
	}
	if cart.UserID != 7 || cart.Status != StatusActive {
		t.Fatalf("unexpected cart: %+v", cart)
	}
}

func TestGetByID_Ownership(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()
	cart := f.repo.addCart(7, StatusActive)

	if _, err := f.service.GetByID(ctx, cart.ID, 7); err != nil {
		t.Fatalf("owner read: %v", err)
	}
	if _, err := f.service.GetByID(ctx, cart.ID, 0); err != nil {
		t.Fatalf("admin read: %v", err)
	}

	_, err := f.service.GetByID(ctx, cart.ID, 8)
	if !apperrors.IsCode(err, apperrors.ErrCodeNotResourceOwner) {
		t.Fatalf("expected not_resource_owner, got %v", err)
	}
	if got := apperrors.MessageOf(err); got != "Access denied: Cart belongs to another user" {
		t.Errorf("unexpected message %q", got)
	}

	_, err = f.service.GetByID(ctx, 999, 7)
	if !apperrors.IsCode(err, apperrors.ErrCodeCartNotFound) {
		t.Fatalf("expected cart_not_found, got %v", err)
	}
}

func TestAddProduct(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()
	f.seedProduct(1, "Widget", 2500, 10)

	line, err := f.service.AddProduct(ctx, 7, AddProductRequest{ProductID: 1})
	if err != nil {
		t.Fatalf("AddProduct: %v", err)
	}
	if line.Quantity != 1 {
		t.Errorf("expected default quantity 1, got %d", line.Quantity)
	}
	if line.Subtotal != money.FromMinor(2500) {
		t.Errorf("expected subtotal 25.00, got %s", line.Subtotal.Major())
	}
	if line.Product == nil || line.Product.Name != "Widget" {
		t.Errorf("expected the product embedded in the line, got %+v", line.Product)
	}

	line, err = f.service.AddProduct(ctx, 7, AddProductRequest{ProductID: 1, Quantity: intPtr(2)})
	if err != nil {
		t.Fatalf("AddProduct increment: %v", err)
	}
	if line.Quantity != 3 {
		t.Errorf("expected quantities to accumulate to 3, got %d", line.Quantity)
	}
	if line.Subtotal != money.FromMinor(7500) {
		t.Errorf("expected subtotal 75.00, got %s", line.Subtotal.Major())
	}
}

func TestAddProduct_InsufficientStock(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()
	f.seedProduct(1, "Widget", 2500, 3)

	if _, err := f.service.AddProduct(ctx, 7, AddProductRequest{ProductID: 1, Quantity: intPtr(2)}); err != nil {
		t.Fatalf("first add: %v", err)
	}

	_, err := f.service.AddProduct(ctx, 7, AddProductRequest{ProductID: 1, Quantity: intPtr(2)})
	if !apperrors.IsCode(err, apperrors.ErrCodeInsufficientStock) {
		t.Fatalf("expected insufficient_stock, got %v", err)
	}
	if got := apperrors.MessageOf(err); got != "Insufficient stock. Available: 3, Requested: 4" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestAddProduct_Validation(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()
	f.seedProduct(1, "Widget", 2500, 10)

	_, err := f.service.AddProduct(ctx, 7, AddProductRequest{ProductID: 1, Quantity: intPtr(0)})
	if !apperrors.IsCode(err, apperrors.ErrCodeValidationFailed) {
		t.Fatalf("expected validation_failed for zero quantity, got %v", err)
	}
	details := apperrors.DetailsOf(err)
	if details["quantity"] != "Must be greater than or equal to 1 and less than or equal to 999." {
		t.Errorf("unexpected quantity detail %v", details["quantity"])
	}

	_, err = f.service.AddProduct(ctx, 7, AddProductRequest{ProductID: 1, Quantity: intPtr(1000)})
	if !apperrors.IsCode(err, apperrors.ErrCodeValidationFailed) {
		t.Fatalf("expected validation_failed for 1000, got %v", err)
	}

	_, err = f.service.AddProduct(ctx, 7, AddProductRequest{Quantity: intPtr(1)})
	details = apperrors.DetailsOf(err)
	if details["product_id"] != "Missing data for required field." {
		t.Errorf("unexpected product_id detail %v", details["product_id"])
	}

	_, err = f.service.AddProduct(ctx, 7, AddProductRequest{ProductID: 42, Quantity: intPtr(1)})
	if !apperrors.IsCode(err, apperrors.ErrCodeProductNotFound) {
		t.Fatalf("expected product_not_found, got %v", err)
	}
}

func TestUpdateQuantity(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()
	f.seedProduct(1, "Widget", 1000, 10)

	if _, err := f.service.AddProduct(ctx, 7, AddProductRequest{ProductID: 1, Quantity: intPtr(2)}); err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	line, err := f.service.UpdateQuantity(ctx, 7, 1, UpdateQuantityRequest{Quantity: intPtr(5)})
	if err != nil {
		t.Fatalf("UpdateQuantity: %v", err)
	}
	if line == nil || line.Quantity != 5 {
		t.Fatalf("expected quantity set to 5, got %+v", line)
	}
	if line.Subtotal != money.FromMinor(5000) {
		t.Errorf("expected subtotal 50.00, got %s", line.Subtotal.Major())
	}

	_, err = f.service.UpdateQuantity(ctx, 7, 1, UpdateQuantityRequest{Quantity: intPtr(11)})
	if !apperrors.IsCode(err, apperrors.ErrCodeInsufficientStock) {
		t.Fatalf("expected insufficient_stock, got %v", err)
	}
	if got := apperrors.MessageOf(err); got != "Insufficient stock. Available: 10, Requested: 11" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestUpdateQuantity_ZeroRemoves(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()
	f.seedProduct(1, "Widget", 1000, 10)

	if _, err := f.service.AddProduct(ctx, 7, AddProductRequest{ProductID: 1, Quantity: intPtr(2)}); err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	line, err := f.service.UpdateQuantity(ctx, 7, 1, UpdateQuantityRequest{Quantity: intPtr(0)})
	if err != nil {
		t.Fatalf("UpdateQuantity to zero: %v", err)
	}
	if line != nil {
		t.Fatalf("expected no line after removal, got %+v", line)
	}

	cart, _ := f.service.GetOrCreateActive(ctx, 7)
	if _, err := f.repo.GetItem(ctx, cart.ID, 1); !apperrors.IsCode(err, apperrors.ErrCodeCartError) {
		t.Errorf("expected the line gone, got %v", err)
	}
}

func TestUpdateQuantity_MissingLine(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()
	f.seedProduct(1, "Widget", 1000, 10)

	_, err := f.service.UpdateQuantity(ctx, 7, 1, UpdateQuantityRequest{Quantity: intPtr(3)})
	if !apperrors.IsCode(err, apperrors.ErrCodeCartError) {
		t.Fatalf("expected cart_error, got %v", err)
	}
	if got := apperrors.MessageOf(err); got != "Product not found in cart" {
		t.Errorf("unexpected message %q", got)
	}

	_, err = f.service.UpdateQuantity(ctx, 7, 1, UpdateQuantityRequest{})
	details := apperrors.DetailsOf(err)
	if details["quantity"] != "Missing data for required field." {
		t.Errorf("unexpected detail %v", details["quantity"])
	}
}

func TestComputeTotal_CachesUntilMutation(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()
	f.seedProduct(1, "Widget", 1050, 10)
	f.seedProduct(2, "Gadget", 500, 10)

	if _, err := f.service.AddProduct(ctx, 7, AddProductRequest{ProductID: 1, Quantity: intPtr(2)}); err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	if _, err := f.service.AddProduct(ctx, 7, AddProductRequest{ProductID: 2}); err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	f.repo.itemsCalls = 0
	report, err := f.service.ComputeTotal(ctx, 7)
	if err != nil {
		t.Fatalf("ComputeTotal: %v", err)
	}
	if report.Subtotal != money.FromMinor(2600) {
		t.Errorf("expected subtotal 26.00, got %s", report.Subtotal.Major())
	}
	if report.TotalItems != 3 || report.ProductCount != 2 {
		t.Errorf("unexpected counts: %+v", report)
	}
	if len(report.Items) != 2 {
		t.Fatalf("expected 2 priced items, got %d", len(report.Items))
	}
	if report.Items[0].Subtotal != money.FromMinor(2100) {
		t.Errorf("unexpected first item subtotal %s", report.Items[0].Subtotal.Major())
	}

	if _, err := f.service.ComputeTotal(ctx, 7); err != nil {
		t.Fatalf("ComputeTotal cached: %v", err)
	}
	if f.repo.itemsCalls != 1 {
		t.Errorf("expected the second total served from cache, got %d item reads", f.repo.itemsCalls)
	}

	// Another user's mutation must not drop this user's cached total.
	if _, err := f.service.AddProduct(ctx, 1, AddProductRequest{ProductID: 1}); err != nil {
		t.Fatalf("other user's add: %v", err)
	}
	if _, err := f.service.ComputeTotal(ctx, 7); err != nil {
		t.Fatalf("ComputeTotal: %v", err)
	}
	if f.repo.itemsCalls != 1 {
		t.Errorf("expected the cached total to survive another user's mutation, got %d item reads", f.repo.itemsCalls)
	}

	if _, err := f.service.AddProduct(ctx, 7, AddProductRequest{ProductID: 2, Quantity: intPtr(1)}); err != nil {
		t.Fatalf("mutate cart: %v", err)
	}
	report, err = f.service.ComputeTotal(ctx, 7)
	if err != nil {
		t.Fatalf("ComputeTotal after mutation: %v", err)
	}
	if report.Subtotal != money.FromMinor(3100) {
		t.Errorf("expected refreshed subtotal 31.00, got %s", report.Subtotal.Major())
	}
}

func TestComputeTotal_SkipsDeletedProducts(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()
	f.seedProduct(1, "Widget", 1000, 10)
	f.seedProduct(2, "Gadget", 500, 10)

	if _, err := f.service.AddProduct(ctx, 7, AddProductRequest{ProductID: 1, Quantity: intPtr(2)}); err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	if _, err := f.service.AddProduct(ctx, 7, AddProductRequest{ProductID: 2}); err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	delete(f.catalog.products, 2)

	report, err := f.service.ComputeTotal(ctx, 7)
	if err != nil {
		t.Fatalf("ComputeTotal: %v", err)
	}
	if report.ProductCount != 2 {
		t.Errorf("expected product_count to keep counting the dead line, got %d", report.ProductCount)
	}
	if len(report.Items) != 1 || report.TotalItems != 2 {
		t.Errorf("expected only the live line priced: %+v", report)
	}
	if report.Subtotal != money.FromMinor(2000) {
		t.Errorf("expected subtotal 20.00, got %s", report.Subtotal.Major())
	}
}

func TestTransitionStatus(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()
	cart := f.repo.addCart(7, StatusActive)

	_, err := f.service.TransitionStatus(ctx, cart.ID, "paid", 7)
	if !apperrors.IsCode(err, apperrors.ErrCodeInvalidCartTransition) {
		t.Fatalf("expected invalid_cart_transition, got %v", err)
	}
	want := "Invalid status. Valid statuses: active, abandoned, converted, expired"
	if got := apperrors.MessageOf(err); got != want {
		t.Errorf("unexpected message %q", got)
	}

	_, err = f.service.TransitionStatus(ctx, cart.ID, StatusConverted, 8)
	if !apperrors.IsCode(err, apperrors.ErrCodeNotResourceOwner) {
		t.Fatalf("expected not_resource_owner, got %v", err)
	}

	updated, err := f.service.TransitionStatus(ctx, cart.ID, StatusConverted, 7)
	if err != nil {
		t.Fatalf("TransitionStatus: %v", err)
	}
	if updated.Status != StatusConverted {
		t.Errorf("expected converted, got %s", updated.Status)
	}

	// The old cart is settled, so the next total is for a fresh empty one.
	report, err := f.service.ComputeTotal(ctx, 7)
	if err != nil {
		t.Fatalf("ComputeTotal: %v", err)
	}
	if report.CartID == cart.ID || report.ProductCount != 0 {
		t.Errorf("expected an empty replacement cart, got %+v", report)
	}
}

func TestValidateForCheckout(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()
	f.seedProduct(1, "Alpha", 1000, 10)
	f.seedProduct(2, "Beta", 200, 3)
	f.seedProduct(3, "Gamma", 700, 1)

	cart := f.repo.addCart(7, StatusActive)
	f.repo.putItem(cart.ID, 1, 2) // plenty of stock
	f.repo.putItem(cart.ID, 2, 2) // low stock warning
	f.repo.putItem(cart.ID, 3, 5) // not enough stock
	f.repo.putItem(cart.ID, 4, 1) // product deleted

	report, err := f.service.ValidateForCheckout(ctx, cart.ID)
	if err != nil {
		t.Fatalf("ValidateForCheckout: %v", err)
	}
	if report.Valid {
		t.Fatal("expected an invalid report")
	}
	if len(report.Items) != 4 {
		t.Fatalf("expected 4 item entries, got %d", len(report.Items))
	}

	wantErrors := []string{
		"Insufficient stock for Gamma. Available: 1, Requested: 5",
		"Product 4 no longer exists",
	}
	if len(report.Errors) != len(wantErrors) {
		t.Fatalf("unexpected errors: %v", report.Errors)
	}
	for _, want := range wantErrors {
		found := false
		for _, got := range report.Errors {
			if got == want {
				found = true
			}
		}
		if !found {
			t.Errorf("missing error %q in %v", want, report.Errors)
		}
	}

	if len(report.Warnings) != 1 || report.Warnings[0] != "Low stock for Beta: only 3 remaining" {
		t.Errorf("unexpected warnings: %v", report.Warnings)
	}

	// Only the valid lines price into the total: 2*10.00 + 2*2.00.
	if report.TotalAmount != money.FromMinor(2400) {
		t.Errorf("expected total 24.00, got %s", report.TotalAmount.Major())
	}

	for _, item := range report.Items {
		switch item.ProductID {
		case 1:
			if !item.Valid || len(item.Issues) != 0 || item.AvailableStock != 10 {
				t.Errorf("unexpected entry for product 1: %+v", item)
			}
		case 2:
			if !item.Valid || item.AvailableStock != 3 {
				t.Errorf("unexpected entry for product 2: %+v", item)
			}
		case 3:
			if item.Valid || len(item.Issues) != 1 || item.Issues[0] != "Insufficient stock (available: 1)" {
				t.Errorf("unexpected entry for product 3: %+v", item)
			}
		case 4:
			if item.Valid || len(item.Issues) != 1 || item.Issues[0] != "Product no longer exists" {
				t.Errorf("unexpected entry for product 4: %+v", item)
			}
		}
	}
}

func TestValidateForCheckout_AllValid(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()
	f.seedProduct(1, "Alpha", 1000, 10)

	cart := f.repo.addCart(7, StatusActive)
	f.repo.putItem(cart.ID, 1, 2)

	report, err := f.service.ValidateForCheckout(ctx, cart.ID)
	if err != nil {
		t.Fatalf("ValidateForCheckout: %v", err)
	}
	if !report.Valid || len(report.Errors) != 0 || len(report.Warnings) != 0 {
		t.Fatalf("expected a clean report, got %+v", report)
	}
	if report.TotalAmount != money.FromMinor(2000) {
		t.Errorf("expected total 20.00, got %s", report.TotalAmount.Major())
	}
}

func TestValidateForCheckout_StatusAndEmptiness(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	converted := f.repo.addCart(7, StatusConverted)
	_, err := f.service.ValidateForCheckout(ctx, converted.ID)
	if !apperrors.IsCode(err, apperrors.ErrCodeCartNotActive) {
		t.Fatalf("expected cart_not_active, got %v", err)
	}
	if got := apperrors.MessageOf(err); got != "Cart is not active" {
		t.Errorf("unexpected message %q", got)
	}

	empty := f.repo.addCart(8, StatusActive)
	_, err = f.service.ValidateForCheckout(ctx, empty.ID)
	if !apperrors.IsCode(err, apperrors.ErrCodeCartEmpty) {
		t.Fatalf("expected cart_empty, got %v", err)
	}
	if got := apperrors.MessageOf(err); got != "Cart is empty" {
		t.Errorf("unexpected message %q", got)
	}

	_, err = f.service.ValidateForCheckout(ctx, 999)
	if !apperrors.IsCode(err, apperrors.ErrCodeCartNotFound) {
		t.Fatalf("expected cart_not_found, got %v", err)
	}
}

func TestListForUser(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()
	active := f.repo.addCart(7, StatusActive)
	f.repo.putItem(active.ID, 1, 2)
	f.repo.addCart(7, StatusConverted)
	f.repo.addCart(8, StatusActive)

	all, err := f.service.ListForUser(ctx, 7, "")
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 carts, got %d", len(all))
	}
	if all[0].ProductCount != 1 {
		t.Errorf("expected product_count 1, got %d", all[0].ProductCount)
	}

	converted, err := f.service.ListForUser(ctx, 7, StatusConverted)
	if err != nil {
		t.Fatalf("ListForUser converted: %v", err)
	}
	if len(converted) != 1 || converted[0].Status != StatusConverted {
		t.Fatalf("unexpected filtered listing: %+v", converted)
	}

	none, err := f.service.ListForUser(ctx, 7, Status("bogus"))
	if err != nil || len(none) != 0 {
		t.Fatalf("expected an empty listing for unknown status, got %v %v", none, err)
	}
}

func TestClearAndRemove(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()
	f.seedProduct(1, "Widget", 1000, 10)
	f.seedProduct(2, "Gadget", 500, 10)

	if _, err := f.service.AddProduct(ctx, 7, AddProductRequest{ProductID: 1}); err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	if _, err := f.service.AddProduct(ctx, 7, AddProductRequest{ProductID: 2}); err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	if err := f.service.RemoveProduct(ctx, 7, 1); err != nil {
		t.Fatalf("RemoveProduct: %v", err)
	}
	err := f.service.RemoveProduct(ctx, 7, 1)
	if !apperrors.IsCode(err, apperrors.ErrCodeCartError) {
		t.Fatalf("expected cart_error on a second removal, got %v", err)
	}

	if err := f.service.Clear(ctx, 7); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	report, err := f.service.ComputeTotal(ctx, 7)
	if err != nil {
		t.Fatalf("ComputeTotal: %v", err)
	}
	if report.ProductCount != 0 || !report.Subtotal.IsZero() {
		t.Errorf("expected an empty cart after clear, got %+v", report)
	}
}

func TestCartOwner(t *testing.T) {
	f := newServiceFixture()
	cart := f.repo.addCart(7, StatusActive)

	owner, err := f.service.CartOwner(context.Background(), cart.ID)
	if err != nil {
		t.Fatalf("CartOwner: %v", err)
	}
	if owner != 7 {
		t.Errorf("expected owner 7, got %d", owner)
	}

	_, err = f.service.CartOwner(context.Background(), 999)
	if !apperrors.IsCode(err, apperrors.ErrCodeCartNotFound) {
		t.Fatalf("expected cart_not_found, got %v", err)
	}
}

func TestAbandonStale(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	stale := f.repo.addCart(7, StatusActive)
	staleCart := f.repo.carts[stale.ID]
	staleCart.CreationDate = time.Now().Add(-48 * time.Hour)
	f.repo.carts[stale.ID] = staleCart
	fresh := f.repo.addCart(8, StatusActive)

	count, err := f.service.AbandonStale(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("AbandonStale: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 abandoned cart, got %d", count)
	}
	if f.repo.carts[stale.ID].Status != StatusAbandoned {
		t.Errorf("expected the stale cart abandoned, got %s", f.repo.carts[stale.ID].Status)
	}
	if f.repo.carts[fresh.ID].Status != StatusActive {
		t.Errorf("expected the fresh cart untouched, got %s", f.repo.carts[fresh.ID].Status)
	}
}

func TestStatusListMessage(t *testing.T) {
	if got := statusList(); got != "active, abandoned, converted, expired" {
		t.Errorf("unexpected status list %q", got)
	}
}
