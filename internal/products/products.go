// Package products implements the catalog: admin-managed products with
// price and stock, served to customers through a cached repository.
package products

import (
	"strings"
	"time"

	apperrors "github.com/lggm33/DUAD/internal/errors"
	"github.com/lggm33/DUAD/internal/money"
)

// Product is a catalog row.
type Product struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description *string      `json:"description"`
	Price       money.Amount `json:"price"`
	Stock       int          `json:"stock"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

const maxProductNameLength = 120

// CreateRequest carries a new product. Price and stock use pointers so a
// missing field is distinguishable from a zero value.
type CreateRequest struct {
	Name        string        `json:"name"`
	Description *string       `json:"description"`
	Price       *money.Amount `json:"price"`
	Stock       *int          `json:"stock"`
}

func (r CreateRequest) validate() error {
	details := make(map[string]interface{})

	switch {
	case strings.TrimSpace(r.Name) == "":
		details["name"] = "Missing data for required field."
	case len(r.Name) > maxProductNameLength:
		details["name"] = "Longer than maximum length 120."
	}

	switch {
	case r.Price == nil:
		details["price"] = "Missing data for required field."
	case r.Price.IsNegative():
		details["price"] = "Must be greater than or equal to 0."
	}

	switch {
	case r.Stock == nil:
		details["stock"] = "Missing data for required field."
	case *r.Stock < 0:
		details["stock"] = "Must be greater than or equal to 0."
	}

	if len(details) > 0 {
		return apperrors.New(apperrors.ErrCodeValidationFailed, "Validation failed").WithDetails(details)
	}
	return nil
}

// UpdateRequest carries a partial product update. Nil fields are untouched.
type UpdateRequest struct {
	Name        *string       `json:"name"`
	Description *string       `json:"description"`
	Price       *money.Amount `json:"price"`
	Stock       *int          `json:"stock"`
}

func (r UpdateRequest) validate() error {
	details := make(map[string]interface{})

	if r.Name != nil {
		switch {
		case strings.TrimSpace(*r.Name) == "":
			details["name"] = "Shorter than minimum length 1."
		case len(*r.Name) > maxProductNameLength:
			details["name"] = "Longer than maximum length 120."
		}
	}
	if r.Price != nil && r.Price.IsNegative() {
		details["price"] = "Must be greater than or equal to 0."
	}
	if r.Stock != nil && *r.Stock < 0 {
		details["stock"] = "Must be greater than or equal to 0."
	}

	if len(details) > 0 {
		return apperrors.New(apperrors.ErrCodeValidationFailed, "Validation failed").WithDetails(details)
	}
	return nil
}
