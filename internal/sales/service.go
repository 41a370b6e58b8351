package sales

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/lggm33/DUAD/internal/cache"
	"github.com/lggm33/DUAD/internal/cacheutil"
	apperrors "github.com/lggm33/DUAD/internal/errors"
	"github.com/lggm33/DUAD/internal/money"
	"github.com/lggm33/DUAD/internal/observability"
	"github.com/lggm33/DUAD/internal/products"
)

// Catalog resolves current product data for the price-comparison report.
type Catalog interface {
	GetByID(ctx context.Context, id int64) (products.Product, error)
}

// Service answers sale queries and applies the admin total adjustment.
type Service struct {
	repo     Repository
	catalog  Catalog
	cache    cache.Store
	hooks    *observability.Registry
	adminTTL time.Duration
}

// NewService wires a Service. adminTTL bounds the cached admin listing;
// non-positive values fall back to ten minutes.
func NewService(repo Repository, catalog Catalog, store cache.Store, hooks *observability.Registry, adminTTL time.Duration) *Service {
	if adminTTL <= 0 {
		adminTTL = 10 * time.Minute
	}
	return &Service{repo: repo, catalog: catalog, cache: store, hooks: hooks, adminTTL: adminTTL}
}

// GetByID loads a sale. A non-zero requesterID enforces ownership; admins
// pass zero to skip the check.
func (s *Service) GetByID(ctx context.Context, saleID, requesterID int64) (Sale, error) {
	sale, err := s.repo.GetByID(ctx, saleID)
	if err != nil {
		return Sale{}, err
	}
	if requesterID != 0 && sale.UserID != requesterID {
		return Sale{}, apperrors.New(apperrors.ErrCodeNotResourceOwner, "Access denied: Sale belongs to another user")
	}
	return sale, nil
}

// ListForUser returns the user's sales newest first, optionally bounded
// by sale date.
func (s *Service) ListForUser(ctx context.Context, userID int64, from, to time.Time) ([]Sale, error) {
	return s.repo.List(ctx, Filter{UserID: userID, From: from, To: to})
}

// UserSummary aggregates the user's purchase history. A user with no
// sales gets zero counts and nil purchase dates.
func (s *Service) UserSummary(ctx context.Context, userID int64) (Summary, error) {
	list, err := s.repo.List(ctx, Filter{UserID: userID})
	if err != nil {
		return Summary{}, err
	}

	var sum Summary
	if len(list) == 0 {
		return sum, nil
	}

	var total money.Amount
	first, last := list[0].SaleDate, list[0].SaleDate
	for _, sale := range list {
		total, err = total.Add(sale.Total)
		if err != nil {
			return Summary{}, apperrors.Wrap(apperrors.ErrCodeSaleError, "Could not aggregate sales", err)
		}
		if sale.SaleDate.Before(first) {
			first = sale.SaleDate
		}
		if sale.SaleDate.After(last) {
			last = sale.SaleDate
		}
	}

	avg, err := total.Div(int64(len(list)))
	if err != nil {
		return Summary{}, apperrors.Wrap(apperrors.ErrCodeSaleError, "Could not aggregate sales", err)
	}

	sum.TotalSales = len(list)
	sum.TotalAmount = total
	sum.AverageOrderValue = avg
	sum.FirstPurchase = &first
	sum.LastPurchase = &last
	return sum, nil
}

// Detail breaks a sale down line by line, comparing the captured price
// with the current catalog price. Deleted products keep their captured
// price and lose the comparison.
func (s *Service) Detail(ctx context.Context, saleID, requesterID int64) (Detail, error) {
	sale, err := s.GetByID(ctx, saleID, requesterID)
	if err != nil {
		return Detail{}, err
	}

	lines, err := s.repo.Lines(ctx, saleID)
	if err != nil {
		return Detail{}, err
	}

	detail := Detail{
		SaleID:       sale.ID,
		UserID:       sale.UserID,
		SaleDate:     sale.SaleDate,
		Total:        sale.Total,
		ProductCount: len(lines),
		Products:     make([]DetailLine, 0, len(lines)),
	}
	for _, line := range lines {
		subtotal, err := line.Price.MulQty(int64(line.Quantity))
		if err != nil {
			return Detail{}, apperrors.Wrap(apperrors.ErrCodeSaleError, "Could not price sale", err)
		}

		entry := DetailLine{
			ProductID:   line.ProductID,
			ProductName: "Product not found",
			Quantity:    line.Quantity,
			PriceAtSale: line.Price,
			Subtotal:    subtotal,
		}

		product, err := s.catalog.GetByID(ctx, line.ProductID)
		switch {
		case err == nil:
			diff, err := product.Price.Sub(line.Price)
			if err != nil {
				return Detail{}, apperrors.Wrap(apperrors.ErrCodeSaleError, "Could not price sale", err)
			}
			current := product.Price
			entry.ProductName = product.Name
			entry.CurrentPrice = &current
			entry.PriceDifference = &diff

		case !apperrors.IsCode(err, apperrors.ErrCodeProductNotFound):
			return Detail{}, err
		}

		detail.TotalItems += line.Quantity
		detail.Products = append(detail.Products, entry)
	}
	return detail, nil
}

// UpdateTotal adjusts a sale total and drops the cached admin listings.
// A nil total leaves the sale untouched.
func (s *Service) UpdateTotal(ctx context.Context, saleID int64, req UpdateRequest) (Sale, error) {
	if req.Total == nil {
		return s.repo.GetByID(ctx, saleID)
	}
	if req.Total.IsNegative() {
		return Sale{}, apperrors.New(apperrors.ErrCodeValidationFailed, "Validation failed").
			WithDetails(map[string]interface{}{"total": "Must be greater than or equal to 0."})
	}

	sale, err := s.repo.UpdateTotal(ctx, saleID, *req.Total)
	if err != nil {
		return Sale{}, err
	}

	cacheutil.Invalidate(ctx, s.cache, s.hooks, nil, cache.PatternSalesReports)
	return sale, nil
}

// AdminList returns the filtered admin view, cached per filter
// combination. Analytics ignore the user filter and cover every sale in
// the date range.
func (s *Service) AdminList(ctx context.Context, f Filter, includeAnalytics bool) (AdminListing, error) {
	key := cache.SalesReportKey(cache.ArgsHash(
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

			listing := AdminListing{Sales: list, Count: len(list), Filters: filtersEcho(f)}
			if includeAnalytics {
				scope := f
				scope.UserID = 0
				all, err := s.repo.List(ctx, scope)
				if err != nil {
					return AdminListing{}, err
				}
				a, err := computeAnalytics(all)
				if err != nil {
					return AdminListing{}, err
				}
				listing.Analytics = &a
			}
			return listing, nil
		})
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

func computeAnalytics(list []Sale) (Analytics, error) {
	a := Analytics{SalesByDay: map[string]DayBucket{}, TopCustomers: []CustomerRank{}}
	if len(list) == 0 {
		return a, nil
	}

	var revenue money.Amount
	perCustomer := map[int64]*CustomerRank{}
	for _, sale := range list {
		var err error
		revenue, err = revenue.Add(sale.Total)
		if err != nil {
			return Analytics{}, apperrors.Wrap(apperrors.ErrCodeSaleError, "Could not aggregate sales", err)
		}

		day := sale.SaleDate.UTC().Format("2006-01-02")
		bucket := a.SalesByDay[day]
		bucket.Count++
		bucket.Revenue, err = bucket.Revenue.Add(sale.Total)
		if err != nil {
			return Analytics{}, apperrors.Wrap(apperrors.ErrCodeSaleError, "Could not aggregate sales", err)
		}
		a.SalesByDay[day] = bucket

		rank := perCustomer[sale.UserID]
		if rank == nil {
			rank = &CustomerRank{UserID: sale.UserID}
			perCustomer[sale.UserID] = rank
		}
		rank.SalesCount++
		rank.TotalSpent, err = rank.TotalSpent.Add(sale.Total)
		if err != nil {
			return Analytics{}, apperrors.Wrap(apperrors.ErrCodeSaleError, "Could not aggregate sales", err)
		}
	}

	avg, err := revenue.Div(int64(len(list)))
	if err != nil {
		return Analytics{}, apperrors.Wrap(apperrors.ErrCodeSaleError, "Could not aggregate sales", err)
	}

	ranks := make([]CustomerRank, 0, len(perCustomer))
	for _, r := range perCustomer {
		ranks = append(ranks, *r)
	}
	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].TotalSpent != ranks[j].TotalSpent {
			return ranks[i].TotalSpent > ranks[j].TotalSpent
		}
		return ranks[i].UserID < ranks[j].UserID
	})
	if len(ranks) > 10 {
		ranks = ranks[:10]
	}

	a.TotalSales = len(list)
	a.TotalRevenue = revenue
	a.AverageOrderValue = avg
	a.TotalCustomers = len(perCustomer)
	a.TopCustomers = ranks
	return a, nil
}
