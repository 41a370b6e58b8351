package httpserver

import (
	"net/http"

	apperrors "github.com/lggm33/DUAD/internal/errors"
	"github.com/lggm33/DUAD/internal/products"
	"github.com/lggm33/DUAD/pkg/responders"
)

func (h *handlers) listProducts(w http.ResponseWriter, r *http.Request) {
	list, err := h.products.List(r.Context())
	if err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	responders.JSON(w, http.StatusOK, nonNil(list))
}

func (h *handlers) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "product_id")
	if !ok {
		return
	}

	product, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	responders.JSON(w, http.StatusOK, product)
}

func (h *handlers) createProduct(w http.ResponseWriter, r *http.Request) {
	var req products.CreateRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	product, err := h.products.Create(r.Context(), req)
	if err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	responders.JSON(w, http.StatusCreated, product)
}

func (h *handlers) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "product_id")
	if !ok {
		return
	}

	var req products.UpdateRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	product, err := h.products.Update(r.Context(), id, req)
	if err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	responders.JSON(w, http.StatusOK, product)
}

// deleteProduct removes a catalog row and echoes it back, same shape as the
// read endpoints.
func (h *handlers) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "product_id")
	if !ok {
		return
	}

	product, err := h.products.Delete(r.Context(), id)
	if err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	responders.JSON(w, http.StatusOK, product)
}
