package httpserver

import (
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/lggm33/DUAD/internal/errors"
	"github.com/lggm33/DUAD/internal/invoices"
	"github.com/lggm33/DUAD/internal/money"
	"github.com/lggm33/DUAD/internal/sales"
	"github.com/lggm33/DUAD/pkg/responders"
)

// adminFilter reads the shared ?user_id/?date_from/?date_to parameters of
// the admin listings. ok false means the error response was already written.
func adminFilter(w http.ResponseWriter, r *http.Request) (userID int64, from, to time.Time, ok bool) {
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			apperrors.WriteSimpleError(w, apperrors.ErrCodeInvalidField, "Invalid user_id format")
			return 0, time.Time{}, time.Time{}, false
		}
		userID = id
	}
	if from, ok = parseDateQuery(w, r, "date_from"); !ok {
		return 0, time.Time{}, time.Time{}, false
	}
	if to, ok = parseDateQuery(w, r, "date_to"); !ok {
		return 0, time.Time{}, time.Time{}, false
	}
	return userID, from, to, true
}

// adminListSales returns every sale in the system, filtered and optionally
// enriched with ?analytics=true. The service caches the whole listing.
func (h *handlers) adminListSales(w http.ResponseWriter, r *http.Request) {
	userID, from, to, ok := adminFilter(w, r)
	if !ok {
		return
	}

	listing, err := h.sales.AdminList(r.Context(), sales.Filter{UserID: userID, From: from, To: to}, queryFlag(r, "analytics"))
	if err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}
	listing.Sales = nonNil(listing.Sales)

	responders.JSON(w, http.StatusOK, listing)
}

func (h *handlers) adminGetSale(w http.ResponseWriter, r *http.Request) {
	saleID, ok := urlID(w, r, "sale_id")
	if !ok {
		return
	}

	sale, err := h.sales.GetByID(r.Context(), saleID, 0)
	if err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	response := map[string]any{"sale": sale}

	if queryFlag(r, "include_summary") {
		detail, err := h.sales.Detail(r.Context(), saleID, 0)
		if err != nil {
			apperrors.WriteDomainError(w, err)
			return
		}
		response["summary"] = detail
	}

	responders.JSON(w, http.StatusOK, response)
}

// adminUpdateSale adjusts a sale's total. This is the single mutation
// allowed on committed sales; everything else about them is immutable.
func (h *handlers) adminUpdateSale(w http.ResponseWriter, r *http.Request) {
	saleID, ok := urlID(w, r, "sale_id")
	if !ok {
		return
	}

	var req sales.UpdateRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	sale, err := h.sales.UpdateTotal(r.Context(), saleID, req)
	if err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	responders.JSON(w, http.StatusOK, map[string]any{
		"message": "Sale updated successfully",
		"sale":    sale,
	})
}

func (h *handlers) adminListInvoices(w http.ResponseWriter, r *http.Request) {
	userID, from, to, ok := adminFilter(w, r)
	if !ok {
		return
	}

	listing, err := h.invoices.AdminList(r.Context(), invoices.Filter{UserID: userID, From: from, To: to}, queryFlag(r, "analytics"))
	if err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}
	listing.Invoices = nonNil(listing.Invoices)

	responders.JSON(w, http.StatusOK, listing)
}

func (h *handlers) adminGetInvoice(w http.ResponseWriter, r *http.Request) {
	invoiceID, ok := urlID(w, r, "invoice_id")
	if !ok {
		return
	}

	h.writeInvoice(w, r, invoiceID, 0)
}

func (h *handlers) adminCreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req invoices.CreateRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	invoice, err := h.invoices.Create(r.Context(), 0, req)
	if err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	responders.JSON(w, http.StatusCreated, map[string]any{
		"message": "Invoice created successfully",
		"invoice": invoice,
	})
}

func (h *handlers) adminUpdateInvoice(w http.ResponseWriter, r *http.Request) {
	invoiceID, ok := urlID(w, r, "invoice_id")
	if !ok {
		return
	}

	var req invoices.UpdateRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	invoice, err := h.invoices.Update(r.Context(), invoiceID, 0, req)
	if err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	responders.JSON(w, http.StatusOK, map[string]any{
		"message": "Invoice updated successfully",
		"invoice": invoice,
	})
}

func (h *handlers) adminDeleteInvoice(w http.ResponseWriter, r *http.Request) {
	invoiceID, ok := urlID(w, r, "invoice_id")
	if !ok {
		return
	}

	if _, err := h.invoices.Delete(r.Context(), invoiceID, 0); err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	responders.JSON(w, http.StatusOK, map[string]string{"message": "Invoice deleted successfully"})
}

// adminSearchInvoices finds invoices whose sale total falls inside the
// ?min_total/?max_total range, both given in major units ("10.50").
func (h *handlers) adminSearchInvoices(w http.ResponseWriter, r *http.Request) {
	var minTotal, maxTotal *money.Amount

	if raw := r.URL.Query().Get("min_total"); raw != "" {
		amount, err := money.FromMajorString(raw)
		if err != nil {
			apperrors.WriteSimpleError(w, apperrors.ErrCodeInvalidField, "Invalid min_total format")
			return
		}
		minTotal = &amount
	}
	if raw := r.URL.Query().Get("max_total"); raw != "" {
		amount, err := money.FromMajorString(raw)
		if err != nil {
			apperrors.WriteSimpleError(w, apperrors.ErrCodeInvalidField, "Invalid max_total format")
			return
		}
		maxTotal = &amount
	}

	list, err := h.invoices.Search(r.Context(), minTotal, maxTotal)
	if err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	responders.JSON(w, http.StatusOK, map[string]any{
		"invoices": nonNil(list),
		"count":    len(list),
		"search_criteria": map[string]any{
			"min_total": minTotal,
			"max_total": maxTotal,
		},
	})
}
