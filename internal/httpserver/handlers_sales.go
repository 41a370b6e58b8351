package httpserver

import (
	"net/http"

	apperrors "github.com/lggm33/DUAD/internal/errors"
	"github.com/lggm33/DUAD/pkg/responders"
)

// listSales returns the caller's purchase history, optionally narrowed by
// ?start_date/?end_date (YYYY-MM-DD) and enriched with ?summary=true.
func (h *handlers) listSales(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	from, ok := parseDateQuery(w, r, "start_date")
	if !ok {
		return
	}
	to, ok := parseDateQuery(w, r, "end_date")
	if !ok {
		return
	}

	list, err := h.sales.ListForUser(r.Context(), p.UserID, from, to)
	if err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	response := map[string]any{
		"sales": nonNil(list),
		"count": len(list),
	}

	if queryFlag(r, "summary") {
		summary, err := h.sales.UserSummary(r.Context(), p.UserID)
		if err != nil {
			apperrors.WriteDomainError(w, err)
			return
		}
		response["summary"] = summary
	}

	responders.JSON(w, http.StatusOK, response)
}

// getSale returns one of the caller's sales; ?include_summary=true adds the
// line-by-line breakdown with current catalog prices.
func (h *handlers) getSale(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	saleID, ok := urlID(w, r, "sale_id")
	if !ok {
		return
	}

	sale, err := h.sales.GetByID(r.Context(), saleID, p.UserID)
	if err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	response := map[string]any{"sale": sale}

	if queryFlag(r, "include_summary") {
		detail, err := h.sales.Detail(r.Context(), saleID, p.UserID)
		if err != nil {
			apperrors.WriteDomainError(w, err)
			return
		}
		response["summary"] = detail
	}

	responders.JSON(w, http.StatusOK, response)
}
