// Package sales keeps settled orders and answers the purchase-history
// and revenue questions asked about them. Sales are written once by
// checkout; the only mutation afterwards is an admin total adjustment.
package sales

import (
	"time"

	"github.com/lggm33/DUAD/internal/money"
)

// Sale is a settled order. The listing aggregates ride along so the API
// renders counts without a second round trip.
type Sale struct {
	ID           int64        `json:"id"`
	UserID       int64        `json:"user_id"`
	SaleDate     time.Time    `json:"sale_date"`
	Total        money.Amount `json:"total"`
	ProductCount int          `json:"product_count"`
	TotalItems   int          `json:"total_items"`
	HasInvoice   bool         `json:"has_invoice"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Line is one product on a sale. Price is the unit price captured when
// the sale settled, not the current catalog price.
type Line struct {
	SaleID    int64        `json:"sale_id"`
	ProductID int64        `json:"product_id"`
	Quantity  int          `json:"quantity"`
	Price     money.Amount `json:"price"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Filter narrows sale listings. Zero values mean no constraint.
type Filter struct {
	UserID int64
	From   time.Time
	To     time.Time
}

// Summary aggregates one user's purchase history.
type Summary struct {
	TotalSales        int          `json:"total_sales"`
	TotalAmount       money.Amount `json:"total_amount"`
	AverageOrderValue money.Amount `json:"average_order_value"`
	FirstPurchase     *time.Time   `json:"first_purchase"`
	LastPurchase      *time.Time   `json:"last_purchase"`
}

// Detail is the per-sale breakdown comparing captured and current prices.
type Detail struct {
	SaleID       int64        `json:"sale_id"`
	UserID       int64        `json:"user_id"`
	SaleDate     time.Time    `json:"sale_date"`
	Total        money.Amount `json:"total"`
	TotalItems   int          `json:"total_items"`
	ProductCount int          `json:"product_count"`
	Products     []DetailLine `json:"products"`
}

// DetailLine prices one sale line both ways. CurrentPrice and
// PriceDifference are nil when the product has since been deleted.
type DetailLine struct {
	ProductID       int64         `json:"product_id"`
	ProductName     string        `json:"product_name"`
	Quantity        int           `json:"quantity"`
	PriceAtSale     money.Amount  `json:"price_at_sale"`
	Subtotal        money.Amount  `json:"subtotal"`
	CurrentPrice    *money.Amount `json:"current_price"`
	PriceDifference *money.Amount `json:"price_difference"`
}

// Analytics is the admin revenue dashboard over a filtered sale set.
type Analytics struct {
	TotalSales        int                  `json:"total_sales"`
	TotalRevenue      money.Amount         `json:"total_revenue"`
	AverageOrderValue money.Amount         `json:"average_order_value"`
	TotalCustomers    int                  `json:"total_customers"`
	SalesByDay        map[string]DayBucket `json:"sales_by_day"`
	TopCustomers      []CustomerRank       `json:"top_customers"`
}

// DayBucket counts sales and revenue for one calendar day.
type DayBucket struct {
	Count   int          `json:"count"`
	Revenue money.Amount `json:"revenue"`
}

// CustomerRank is one entry of the top-customers board.
type CustomerRank struct {
	UserID     int64        `json:"user_id"`
	SalesCount int          `json:"sales_count"`
	TotalSpent money.Amount `json:"total_spent"`
}

// ListingFilters echoes the applied admin filters back in the response.
type ListingFilters struct {
	UserID   *int64  `json:"user_id"`
	DateFrom *string `json:"date_from"`
	DateTo   *string `json:"date_to"`
}

// AdminListing is the cached admin view over sales.
type AdminListing struct {
	Sales     []Sale         `json:"sales"`
	Count     int            `json:"count"`
	Filters   ListingFilters `json:"filters"`
	Analytics *Analytics     `json:"analytics,omitempty"`
}

// UpdateRequest adjusts a sale total. Only admins reach this path.
type UpdateRequest struct {
	Total *money.Amount `json:"total"`
}
