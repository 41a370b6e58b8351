// Package invoices issues billing documents over settled sales. An
// invoice references its sale and a delivery address; the display number
// INV-000042 is derived from the row id and never stored.
package invoices

import (
	"time"

	"github.com/lggm33/DUAD/internal/addresses"
	apperrors "github.com/lggm33/DUAD/internal/errors"
	"github.com/lggm33/DUAD/internal/money"
	"github.com/lggm33/DUAD/internal/sales"
)

// Invoice is a billing document. The sale columns ride along from a join
// so ownership checks and totals need no second query.
type Invoice struct {
	ID                int64        `json:"id"`
	SaleID            int64        `json:"sale_id"`
	DeliveryAddressID int64        `json:"delivery_address_id"`
	IssueDate         time.Time    `json:"issue_date"`
	InvoiceNumber     string       `json:"invoice_number"`
	TotalAmount       money.Amount `json:"total_amount"`
	SaleUserID        int64        `json:"user_id"`
	SaleDate          time.Time    `json:"sale_date"`
	CustomerName      string       `json:"customer_name"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// Filter narrows invoice listings. Zero values mean no constraint; dates
// bound the issue date.
type Filter struct {
	UserID int64
	From   time.Time
	To     time.Time
}

// UserSummary aggregates one user's invoices.
type UserSummary struct {
	TotalInvoices int          `json:"total_invoices"`
	TotalAmount   money.Amount `json:"total_amount"`
	AverageAmount money.Amount `json:"average_amount"`
	DateRange     *DateRange   `json:"date_range"`
}

// DateRange bounds the oldest and newest issue dates.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Analytics is the admin revenue dashboard over a filtered invoice set.
type Analytics struct {
	TotalInvoices        int                    `json:"total_invoices"`
	TotalRevenue         money.Amount           `json:"total_revenue"`
	UniqueCustomers      int                    `json:"unique_customers"`
	AverageInvoiceAmount money.Amount           `json:"average_invoice_amount"`
	MonthlyBreakdown     map[string]MonthBucket `json:"monthly_breakdown"`
	DateRange            RangeEcho              `json:"date_range"`
}

// MonthBucket counts invoices and revenue for one calendar month.
type MonthBucket struct {
	Count   int          `json:"count"`
	Revenue money.Amount `json:"revenue"`
}

// RangeEcho repeats the applied date filters back in the response.
type RangeEcho struct {
	From *string `json:"from"`
	To   *string `json:"to"`
}

// ListingFilters echoes the applied admin filters back in the response.
type ListingFilters struct {
	UserID   *int64  `json:"user_id"`
	DateFrom *string `json:"date_from"`
	DateTo   *string `json:"date_to"`
}

// AdminListing is the cached admin view over invoices.
type AdminListing struct {
	Invoices  []Invoice      `json:"invoices"`
	Count     int            `json:"count"`
	Filters   ListingFilters `json:"filters"`
	Analytics *Analytics     `json:"analytics,omitempty"`
}

// Summary is the printable invoice document.
type Summary struct {
	InvoiceNumber   string         `json:"invoice_number"`
	InvoiceID       int64          `json:"invoice_id"`
	SaleID          int64          `json:"sale_id"`
	IssueDate       time.Time      `json:"issue_date"`
	Customer        CustomerInfo   `json:"customer"`
	DeliveryAddress AddressInfo    `json:"delivery_address"`
	Products        []ProductEntry `json:"products"`
	Totals          SummaryTotals  `json:"summary"`
}

// CustomerInfo identifies the buyer on the document.
type CustomerInfo struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// AddressInfo is the delivery address printed on the document.
type AddressInfo struct {
	AddressID  int64  `json:"address_id"`
	Address    string `json:"address"`
	City       string `json:"city"`
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
}

// ProductEntry is one billed line, priced as captured at sale time.
type ProductEntry struct {
	ProductID   int64        `json:"product_id"`
	ProductName string       `json:"product_name"`
	Quantity    int          `json:"quantity"`
	UnitPrice   money.Amount `json:"unit_price"`
	TotalPrice  money.Amount `json:"total_price"`
}

// SummaryTotals closes the document.
type SummaryTotals struct {
	TotalProducts int          `json:"total_products"`
	TotalItems    int          `json:"total_items"`
	Subtotal      money.Amount `json:"subtotal"`
	TotalAmount   money.Amount `json:"total_amount"`
}

// Detailed embeds the invoice with its full sale and delivery address.
type Detailed struct {
	Invoice
	Sale            sales.Sale        `json:"sale"`
	DeliveryAddress addresses.Address `json:"delivery_address"`
}

// CreateRequest issues an invoice for a sale.
type CreateRequest struct {
	SaleID            int64 `json:"sale_id"`
	DeliveryAddressID int64 `json:"delivery_address_id"`
}

func (r CreateRequest) validate() error {
	details := map[string]interface{}{}
	if r.SaleID == 0 {
		details["sale_id"] = "Missing data for required field."
	}
	if r.DeliveryAddressID == 0 {
		details["delivery_address_id"] = "Missing data for required field."
	}
	if len(details) > 0 {
		return apperrors.New(apperrors.ErrCodeValidationFailed, "Validation failed").WithDetails(details)
	}
	return nil
}

// UpdateRequest moves an invoice to a different delivery address. A nil
// id leaves the invoice untouched.
type UpdateRequest struct {
	DeliveryAddressID *int64 `json:"delivery_address_id"`
}
