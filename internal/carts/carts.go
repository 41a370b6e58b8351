// Package carts implements the shopping cart: one active cart per user,
// product lines with quantity bounds, cached totals, and the pre-checkout
// validation report.
package carts

import (
	"strings"
	"time"

	apperrors "github.com/lggm33/DUAD/internal/errors"
	"github.com/lggm33/DUAD/internal/money"
	"github.com/lggm33/DUAD/internal/products"
)

// Status is a cart lifecycle state.
type Status string

const (
	StatusActive    Status = "active"
	StatusAbandoned Status = "abandoned"
	StatusConverted Status = "converted"
	StatusExpired   Status = "expired"
)

// Statuses lists every valid cart status in display order.
func Statuses() []Status {
	return []Status{StatusActive, StatusAbandoned, StatusConverted, StatusExpired}
}

// ValidStatus reports whether s is a known cart status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusActive, StatusAbandoned, StatusConverted, StatusExpired:
		return true
	}
	return false
}

func statusList() string {
	names := make([]string, 0, 4)
	for _, s := range Statuses() {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}

const (
	minLineQuantity = 1
	maxLineQuantity = 999
)

// Cart is a cart row with its lines joined in.
type Cart struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	CreationDate time.Time `json:"creation_date"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Items        []Line    `json:"cart_products"`
}

// Summary is the compact cart shape used by listings.
type Summary struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	CreationDate time.Time `json:"creation_date"`
	Status       Status    `json:"status"`
	ProductCount int       `json:"product_count"`
}

// Item is a raw cart line as stored.
type Item struct {
	CartID    int64     `json:"cart_id"`
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Line is a cart item joined with its product for responses. Product is nil
// when the catalog row has since been deleted.
type Line struct {
	CartID    int64             `json:"cart_id"`
	ProductID int64             `json:"product_id"`
	Quantity  int               `json:"quantity"`
	UpdatedAt time.Time         `json:"updated_at"`
	Product   *products.Product `json:"product"`
	Subtotal  money.Amount      `json:"subtotal"`
}

// TotalReport is the cached shape served by the cart total endpoint.
type TotalReport struct {
	CartID       int64        `json:"cart_id"`
	Subtotal     money.Amount `json:"subtotal"`
	TotalItems   int          `json:"total_items"`
	ProductCount int          `json:"product_count"`
	Items        []TotalItem  `json:"items"`
}

// TotalItem is one line of a TotalReport.
type TotalItem struct {
	ProductID   int64        `json:"product_id"`
	ProductName string       `json:"product_name"`
	Price       money.Amount `json:"price"`
	Quantity    int          `json:"quantity"`
	Subtotal    money.Amount `json:"subtotal"`
}

// ValidationReport is the answer to "can this cart check out right now".
// TotalAmount sums valid lines only.
type ValidationReport struct {
	Valid       bool             `json:"valid"`
	Errors      []string         `json:"errors"`
	Warnings    []string         `json:"warnings"`
	TotalAmount money.Amount     `json:"total_amount"`
	Items       []ValidationItem `json:"items"`
}

// ValidationItem is the per-line detail of a ValidationReport.
type ValidationItem struct {
	ProductID         int64    `json:"product_id"`
	RequestedQuantity int      `json:"requested_quantity"`
	AvailableStock    int      `json:"available_stock"`
	Valid             bool     `json:"valid"`
	Issues            []string `json:"issues"`
}

// AddProductRequest adds quantity of a product to the active cart. A nil
// quantity defaults to one.
type AddProductRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  *int  `json:"quantity"`
}

func (r AddProductRequest) validate() (int, error) {
	details := make(map[string]interface{})

	if r.ProductID == 0 {
		details["product_id"] = "Missing data for required field."
	}

	qty := minLineQuantity
	if r.Quantity != nil {
		qty = *r.Quantity
		if qty < minLineQuantity || qty > maxLineQuantity {
			details["quantity"] = "Must be greater than or equal to 1 and less than or equal to 999."
		}
	}

	if len(details) > 0 {
		return 0, apperrors.New(apperrors.ErrCodeValidationFailed, "Validation failed").WithDetails(details)
	}
	return qty, nil
}

// UpdateQuantityRequest sets a line's quantity. Zero removes the line.
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

func (r UpdateQuantityRequest) validate() (int, error) {
	details := make(map[string]interface{})

	switch {
	case r.Quantity == nil:
		details["quantity"] = "Missing data for required field."
	case *r.Quantity < 0 || *r.Quantity > maxLineQuantity:
		details["quantity"] = "Must be greater than or equal to 0 and less than or equal to 999."
	}

	if len(details) > 0 {
		return 0, apperrors.New(apperrors.ErrCodeValidationFailed, "Validation failed").WithDetails(details)
	}
	return *r.Quantity, nil
}

// UpdateStatusRequest moves a cart to a new lifecycle state.
type UpdateStatusRequest struct {
	Status Status `json:"status"`
}
