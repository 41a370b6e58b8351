package httpserver

import (
	"net/http"

	apperrors "github.com/lggm33/DUAD/internal/errors"
	"github.com/lggm33/DUAD/internal/invoices"
	"github.com/lggm33/DUAD/pkg/responders"
)

func (h *handlers) createInvoice(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var req invoices.CreateRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	invoice, err := h.invoices.Create(r.Context(), p.UserID, req)
	if err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	responders.JSON(w, http.StatusCreated, map[string]any{
		"message": "Invoice created successfully",
		"invoice": invoice,
	})
}

// listInvoices returns the caller's invoices, optionally narrowed by
// ?start_date/?end_date and enriched with ?summary=true.
func (h *handlers) listInvoices(w http.ResponseWriter, r *http.Request) {
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

	list, err := h.invoices.ListForUser(r.Context(), p.UserID, from, to)
	if err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	response := map[string]any{
		"invoices": nonNil(list),
		"count":    len(list),
	}

	if queryFlag(r, "summary") {
		summary, err := h.invoices.UserSummary(r.Context(), p.UserID)
		if err != nil {
			apperrors.WriteDomainError(w, err)
			return
		}
		response["summary"] = summary
	}

	responders.JSON(w, http.StatusOK, response)
}

// getInvoice returns one invoice. ?include_details=true joins the billed
// sale and delivery address; ?include_summary=true adds the printable
// summary with per-product lines.
func (h *handlers) getInvoice(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	invoiceID, ok := urlID(w, r, "invoice_id")
	if !ok {
		return
	}

	h.writeInvoice(w, r, invoiceID, p.UserID)
}

// writeInvoice is shared by the customer and admin invoice reads; the admin
// path passes requesterID zero to skip ownership checks.
func (h *handlers) writeInvoice(w http.ResponseWriter, r *http.Request, invoiceID, requesterID int64) {
	response := map[string]any{}

	if queryFlag(r, "include_details") {
		detailed, err := h.invoices.Detailed(r.Context(), invoiceID, requesterID)
		if err != nil {
			apperrors.WriteDomainError(w, err)
			return
		}
		response["invoice"] = detailed
	} else {
		invoice, err := h.invoices.GetByID(r.Context(), invoiceID, requesterID)
		if err != nil {
			apperrors.WriteDomainError(w, err)
			return
		}
		response["invoice"] = invoice
	}

	if queryFlag(r, "include_summary") {
		summary, err := h.invoices.Summary(r.Context(), invoiceID, requesterID)
		if err != nil {
			apperrors.WriteDomainError(w, err)
			return
		}
		response["summary"] = summary
	}

	responders.JSON(w, http.StatusOK, response)
}

func (h *handlers) updateInvoice(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	invoiceID, ok := urlID(w, r, "invoice_id")
	if !ok {
		return
	}

	var req invoices.UpdateRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	invoice, err := h.invoices.Update(r.Context(), invoiceID, p.UserID, req)
	if err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	responders.JSON(w, http.StatusOK, map[string]any{
		"message": "Invoice updated successfully",
		"invoice": invoice,
	})
}

func (h *handlers) deleteInvoice(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	invoiceID, ok := urlID(w, r, "invoice_id")
	if !ok {
		return
	}

	if _, err := h.invoices.Delete(r.Context(), invoiceID, p.UserID); err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	responders.JSON(w, http.StatusOK, map[string]string{"message": "Invoice deleted successfully"})
}

// listSaleInvoices returns every invoice billing one of the caller's sales.
func (h *handlers) listSaleInvoices(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	saleID, ok := urlID(w, r, "sale_id")
	if !ok {
		return
	}

	list, err := h.invoices.ListForSale(r.Context(), saleID, p.UserID)
	if err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	responders.JSON(w, http.StatusOK, map[string]any{
		"sale_id":  saleID,
		"invoices": nonNil(list),
		"count":    len(list),
	})
}
