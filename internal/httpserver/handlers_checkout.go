package httpserver

import (
	"net/http"

	"github.com/lggm33/DUAD/internal/checkout"
	apperrors "github.com/lggm33/DUAD/internal/errors"
	"github.com/lggm33/DUAD/pkg/responders"
)

// createCheckout converts the caller's cart into a sale. The heavy lifting
// (stock re-check, price snapshot, cart transition, optional invoice) runs
// in one transaction inside the checkout service; a failed invoice after a
// committed sale surfaces as a warning, not an error.
func (h *handlers) createCheckout(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var req checkout.Request
	if err := decodeJSON(r.Body, &req); err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	result, err := h.checkout.Checkout(r.Context(), p.UserID, req)
	if err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	h.logger.Info().
		Int64("user_id", p.UserID).
		Int64("sale_id", result.Sale.ID).
		Int64("total", int64(result.Sale.Total)).
		Msg("checkout.completed")

	responders.JSON(w, http.StatusCreated, result)
}
