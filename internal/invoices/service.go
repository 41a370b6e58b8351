package invoices

import (
	"context"
	"strconv"
	"time"

	"github.com/lggm33/DUAD/internal/addresses"
	"github.com/lggm33/DUAD/internal/cache"
	"github.com/lggm33/DUAD/internal/cacheutil"
	apperrors "github.com/lggm33/DUAD/internal/errors"
	"github.com/lggm33/DUAD/internal/money"
	"github.com/lggm33/DUAD/internal/observability"
	"github.com/lggm33/DUAD/internal/products"
	"github.com/lggm33/DUAD/internal/sales"
	"github.com/lggm33/DUAD/internal/users"
)

// SaleStore resolves the sale an invoice bills.
type SaleStore interface {
	GetByID(ctx context.Context, saleID int64) (sales.Sale, error)
	Lines(ctx context.Context, saleID int64) ([]sales.Line, error)
}

// AddressStore resolves delivery addresses for validation and printing.
type AddressStore interface {
	GetByID(ctx context.Context, id int64) (addresses.Address, error)
}

// UserDirectory resolves the buyer printed on the document.
type UserDirectory interface {
	GetByID(ctx context.Context, id int64) (users.User, error)
}

// Catalog resolves product names for the document lines.
type Catalog interface {
	GetByID(ctx context.Context, id int64) (products.Product, error)
}

// Service issues and serves invoices.
type Service struct {
	repo      Repository
	sales     SaleStore
	addresses AddressStore
	users     UserDirectory
	catalog   Catalog
	cache     cache.Store
	hooks     *observability.Registry
	adminTTL  time.Duration
}

// NewService wires a Service. adminTTL bounds the cached admin listing;
// non-positive values fall back to ten minutes.
func NewService(repo Repository, saleStore SaleStore, addressStore AddressStore, userDir UserDirectory, catalog Catalog, store cache.Store, hooks *observability.Registry, adminTTL time.Duration) *Service {
	if adminTTL <= 0 {
		adminTTL = 10 * time.Minute
	}
	return &Service{
		repo:      repo,
		sales:     saleStore,
		addresses: addressStore,
		users:     userDir,
		catalog:   catalog,
		cache:     store,
		hooks:     hooks,
		adminTTL:  adminTTL,
	}
}

// Create issues an invoice for a sale. A non-zero requesterID must own
// the sale. The billing address must belong to the buyer no matter who
// issues the invoice; a sale may be re-invoiced any number of times.
func (s *Service) Create(ctx context.Context, requesterID int64, req CreateRequest) (Invoice, error) {
	if err := req.validate(); err != nil {
		return Invoice{}, err
	}

	sale, err := s.sales.GetByID(ctx, req.SaleID)
	if err != nil {
		return Invoice{}, err
	}
	if requesterID != 0 && sale.UserID != requesterID {
		return Invoice{}, apperrors.New(apperrors.ErrCodeNotResourceOwner, "Access denied: Sale belongs to another user")
	}

	address, err := s.addresses.GetByID(ctx, req.DeliveryAddressID)
	if err != nil {
		return Invoice{}, err
	}
	if address.UserID != sale.UserID {
		return Invoice{}, apperrors.New(apperrors.ErrCodeNotResourceOwner, "Access denied: Delivery address belongs to another user")
	}

	inv, err := s.repo.Create(ctx, req.SaleID, req.DeliveryAddressID)
	if err != nil {
		return Invoice{}, err
	}

	s.invalidateAdmin(ctx)
	return inv, nil
}

// GetByID loads an invoice. A non-zero requesterID enforces ownership
// through the billed sale; admins pass zero to skip the check.
func (s *Service) GetByID(ctx context.Context, invoiceID, requesterID int64) (Invoice, error) {
	inv, err := s.repo.GetByID(ctx, invoiceID)
	if err != nil {
		return Invoice{}, err
	}
	if requesterID != 0 && inv.SaleUserID != requesterID {
		return Invoice{}, apperrors.New(apperrors.ErrCodeNotResourceOwner, "Access denied: Invoice belongs to another user")
	}
	return inv, nil
}

// Detailed loads an invoice with its full sale and delivery address.
func (s *Service) Detailed(ctx context.Context, invoiceID, requesterID int64) (Detailed, error) {
	inv, err := s.GetByID(ctx, invoiceID, requesterID)
	if err != nil {
		return Detailed{}, err
	}

	sale, err := s.sales.GetByID(ctx, inv.SaleID)
	if err != nil {
		return Detailed{}, err
	}
	address, err := s.addresses.GetByID(ctx, inv.DeliveryAddressID)
	if err != nil {
		return Detailed{}, err
	}

	return Detailed{Invoice: inv, Sale: sale, DeliveryAddress: address}, nil
}

// ListForUser returns the user's invoices newest first, optionally
// bounded by issue date.
func (s *Service) ListForUser(ctx context.Context, userID int64, from, to time.Time) ([]Invoice, error) {
	return s.repo.List(ctx, Filter{UserID: userID, From: from, To: to})
}

// ListForSale returns every invoice billing the sale. A non-zero
// requesterID must own the sale.
func (s *Service) ListForSale(ctx context.Context, saleID, requesterID int64) ([]Invoice, error) {
	sale, err := s.sales.GetByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if requesterID != 0 && sale.UserID != requesterID {
		return nil, apperrors.New(apperrors.ErrCodeNotResourceOwner, "Access denied: Sale belongs to another user")
	}
	return s.repo.ListForSale(ctx, saleID)
}

// UserSummary aggregates the user's invoices. A user with no invoices
// gets zero counts and a nil date range.
func (s *Service) UserSummary(ctx context.Context, userID int64) (UserSummary, error) {
	list, err := s.repo.List(ctx, Filter{UserID: userID})
	if err != nil {
		return UserSummary{}, err
	}

	var sum UserSummary
	if len(list) == 0 {
		return sum, nil
	}

	var total money.Amount
	oldest, newest := list[0].IssueDate, list[0].IssueDate
	for _, inv := range list {
		total, err = total.Add(inv.TotalAmount)
		if err != nil {
			return UserSummary{}, apperrors.Wrap(apperrors.ErrCodeInvoiceError, "Could not aggregate invoices", err)
		}
		if inv.IssueDate.Before(oldest) {
			oldest = inv.IssueDate
		}
		if inv.IssueDate.After(newest) {
			newest = inv.IssueDate
		}
	}

	avg, err := total.Div(int64(len(list)))
	if err != nil {
		return UserSummary{}, apperrors.Wrap(apperrors.ErrCodeInvoiceError, "Could not aggregate invoices", err)
	}

	sum.TotalInvoices = len(list)
	sum.TotalAmount = total
	sum.AverageAmount = avg
	sum.DateRange = &DateRange{From: oldest, To: newest}
	return sum, nil
}

// Update moves an invoice to a different delivery address. The new
// address must belong to the buyer. A nil id is a no-op.
func (s *Service) Update(ctx context.Context, invoiceID, requesterID int64, req UpdateRequest) (Invoice, error) {
	inv, err := s.GetByID(ctx, invoiceID, requesterID)
	if err != nil {
		return Invoice{}, err
	}
	if req.DeliveryAddressID == nil {
		return inv, nil
	}

	address, err := s.addresses.GetByID(ctx, *req.DeliveryAddressID)
	if err != nil {
		return Invoice{}, err
	}
	if address.UserID != inv.SaleUserID {
		return Invoice{}, apperrors.New(apperrors.ErrCodeNotResourceOwner, "Access denied: Delivery address belongs to another user")
	}

	updated, err := s.repo.UpdateAddress(ctx, invoiceID, *req.DeliveryAddressID)
	if err != nil {
		return Invoice{}, err
	}

	s.invalidateAdmin(ctx)
	return updated, nil
}

// Delete removes an invoice and returns the removed document.
func (s *Service) Delete(ctx context.Context, invoiceID, requesterID int64) (Invoice, error) {
	if _, err := s.GetByID(ctx, invoiceID, requesterID); err != nil {
		return Invoice{}, err
	}

	inv, err := s.repo.Delete(ctx, invoiceID)
	if err != nil {
		return Invoice{}, err
	}

	s.invalidateAdmin(ctx)
	return inv, nil
}

// Search filters invoices by the billed sale total.
func (s *Service) Search(ctx context.Context, minTotal, maxTotal *money.Amount) ([]Invoice, error) {
	return s.repo.SearchBySaleTotal(ctx, minTotal, maxTotal)
}

// Summary renders the printable document for an invoice.
func (s *Service) Summary(ctx context.Context, invoiceID, requesterID int64) (Summary, error) {
	inv, err := s.GetByID(ctx, invoiceID, requesterID)
	if err != nil {
		return Summary{}, err
	}

	lines, err := s.sales.Lines(ctx, inv.SaleID)
	if err != nil {
		return Summary{}, err
	}
	buyer, err := s.users.GetByID(ctx, inv.SaleUserID)
	if err != nil {
		return Summary{}, err
	}
	address, err := s.addresses.GetByID(ctx, inv.DeliveryAddressID)
	if err != nil {
		return Summary{}, err
	}

	doc := Summary{
		InvoiceNumber: inv.InvoiceNumber,
		InvoiceID:     inv.ID,
		SaleID:        inv.SaleID,
		IssueDate:     inv.IssueDate,
		Customer:      CustomerInfo{UserID: buyer.ID, Name: buyer.Name, Email: buyer.Email},
		DeliveryAddress: AddressInfo{
			AddressID:  address.ID,
			Address:    address.Address,
			City:       address.City,
			Country:    address.Country,
			PostalCode: address.PostalCode,
		},
		Products: make([]ProductEntry, 0, len(lines)),
	}

	for _, line := range lines {
		total, err := line.Price.MulQty(int64(line.Quantity))
		if err != nil {
			return Summary{}, apperrors.Wrap(apperrors.ErrCodeInvoiceError, "Could not price invoice", err)
		}

		name := "Unknown Product"
		product, err := s.catalog.GetByID(ctx, line.ProductID)
		switch {
		case err == nil:
			name = product.Name
		case !apperrors.IsCode(err, apperrors.ErrCodeProductNotFound):
			return Summary{}, err
		}

		doc.Products = append(doc.Products, ProductEntry{
			ProductID:   line.ProductID,
			ProductName: name,
			Quantity:    line.Quantity,
			UnitPrice:   line.Price,
			TotalPrice:  total,
		})
		doc.Totals.TotalItems += line.Quantity
	}

	doc.Totals.TotalProducts = len(lines)
	doc.Totals.Subtotal = inv.TotalAmount
	doc.Totals.TotalAmount = inv.TotalAmount
	return doc, nil
}

// AdminList returns the filtered admin view, cached per filter
// combination. Analytics ignore the user filter and cover every invoice
// in the date range.
func (s *Service) AdminList(ctx context.Context, f Filter, includeAnalytics bool) (AdminListing, error) {
	key := cache.InvoiceReportKey(cache.ArgsHash(
		"user_id="+strconv.FormatInt(f.UserID, 10),
		"from="+dateArg(f.From),
		"to="+dateArg(f.To),
		"analytics="+strconv.FormatBool(includeAnalytics),
	))

	return cacheutil.ReadThrough(ctx, s.cache, s.hooks, key, s.adminTTL,
		func(ctx context.Context) (AdminListing, error) {
			list, err := s.repo.List(ctx, f)
			if err != nil {
				return AdminListing{}, err
			}

			listing := AdminListing{Invoices: list, Count: len(list), Filters: filtersEcho(f)}
			if includeAnalytics {
				scope := f
				scope.UserID = 0
				all, err := s.repo.List(ctx, scope)
				if err != nil {
					return AdminListing{}, err
				}
				a, err := computeAnalytics(all, f.From, f.To)
				if err != nil {
					return AdminListing{}, err
				}
				listing.Analytics = &a
			}
			return listing, nil
		})
}

func (s *Service) invalidateAdmin(ctx context.Context) {
	cacheutil.Invalidate(ctx, s.cache, s.hooks, nil, cache.PatternInvoiceReports)
}

func dateArg(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func filtersEcho(f Filter) ListingFilters {
	var out ListingFilters
	if f.UserID != 0 {
		id := f.UserID
		out.UserID = &id
	}
	if !f.From.IsZero() {
		v := f.From.Format("2006-01-02")
		out.DateFrom = &v
	}
	if !f.To.IsZero() {
		v := f.To.Format("2006-01-02")
		out.DateTo = &v
	}
	return out
}

func computeAnalytics(list []Invoice, from, to time.Time) (Analytics, error) {
	a := Analytics{MonthlyBreakdown: map[string]MonthBucket{}}
	if !from.IsZero() {
		v := from.Format("2006-01-02")
		a.DateRange.From = &v
	}
	if !to.IsZero() {
		v := to.Format("2006-01-02")
		a.DateRange.To = &v
	}
	if len(list) == 0 {
		return a, nil
	}

	var revenue money.Amount
	customers := map[int64]struct{}{}
	for _, inv := range list {
		var err error
		revenue, err = revenue.Add(inv.TotalAmount)
		if err != nil {
			return Analytics{}, apperrors.Wrap(apperrors.ErrCodeInvoiceError, "Could not aggregate invoices", err)
		}

		month := inv.IssueDate.UTC().Format("2006-01")
		bucket := a.MonthlyBreakdown[month]
		bucket.Count++
		bucket.Revenue, err = bucket.Revenue.Add(inv.TotalAmount)
		if err != nil {
			return Analytics{}, apperrors.Wrap(apperrors.ErrCodeInvoiceError, "Could not aggregate invoices", err)
		}
		a.MonthlyBreakdown[month] = bucket

		customers[inv.SaleUserID] = struct{}{}
	}

	avg, err := revenue.Div(int64(len(list)))
	if err != nil {
		return Analytics{}, apperrors.Wrap(apperrors.ErrCodeInvoiceError, "Could not aggregate invoices", err)
	}

	a.TotalInvoices = len(list)
	a.TotalRevenue = revenue
	a.UniqueCustomers = len(customers)
	a.AverageInvoiceAmount = avg
	return a, nil
}
