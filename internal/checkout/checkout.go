// Package checkout converts an active cart into a sale inside a single
// database transaction. Stock rows are locked and debited with a guard,
// so concurrent checkouts of the last unit leave at most one winner.
package checkout

import (
	"fmt"
	"strings"

	apperrors "github.com/lggm33/DUAD/internal/errors"
	"github.com/lggm33/DUAD/internal/invoices"
	"github.com/lggm33/DUAD/internal/sales"
)

// PaymentMethods lists the accepted values for Request.PaymentMethod.
var PaymentMethods = []string{"credit_card", "debit_card", "paypal", "cash"}

// Request carries a checkout order. Payment fields are recorded as-is;
// no gateway is charged.
type Request struct {
	CartID            int64   `json:"cart_id"`
	DeliveryAddressID int64   `json:"delivery_address_id"`
	PaymentMethod     *string `json:"payment_method"`
	PaymentReference  *string `json:"payment_reference"`
	GenerateInvoice   bool    `json:"generate_invoice"`
}

func (r Request) validate() error {
	details := map[string]interface{}{}
	if r.CartID == 0 {
		details["cart_id"] = "Missing data for required field."
	}
	if r.DeliveryAddressID == 0 {
		details["delivery_address_id"] = "Missing data for required field."
	}
	if r.PaymentMethod != nil && !validPaymentMethod(*r.PaymentMethod) {
		details["payment_method"] = fmt.Sprintf("Must be one of: %s.", strings.Join(PaymentMethods, ", "))
	}
	if len(details) > 0 {
		return apperrors.New(apperrors.ErrCodeValidationFailed, "Validation failed").WithDetails(details)
	}
	return nil
}

func validPaymentMethod(method string) bool {
	for _, m := range PaymentMethods {
		if m == method {
			return true
		}
	}
	return false
}

// Result is the checkout response document. Invoice is present only when
// one was requested and generated; Warning is set when invoice generation
// failed after the sale committed.
type Result struct {
	Message string            `json:"message"`
	Sale    sales.Sale        `json:"sale"`
	Summary sales.Detail      `json:"summary"`
	Invoice *invoices.Invoice `json:"invoice,omitempty"`
	Warning string            `json:"warning,omitempty"`
}
