package httpserver

import (
	"net/http"

	"github.com/lggm33/DUAD/internal/carts"
	apperrors "github.com/lggm33/DUAD/internal/errors"
	"github.com/lggm33/DUAD/pkg/responders"
)

// getActiveCart returns the caller's active cart, creating an empty one on
// first touch.
func (h *handlers) getActiveCart(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	cart, err := h.carts.GetOrCreateActive(r.Context(), p.UserID)
	if err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	responders.JSON(w, http.StatusOK, cart)
}

func (h *handlers) getCart(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	cartID, ok := urlID(w, r, "cart_id")
	if !ok {
		return
	}

	cart, err := h.carts.GetByID(r.Context(), cartID, p.UserID)
	if err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	responders.JSON(w, http.StatusOK, cart)
}

// listCarts returns the caller's cart history. An unknown ?status value is
// not an error; it simply matches nothing.
func (h *handlers) listCarts(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	status := carts.Status(r.URL.Query().Get("status"))
	list, err := h.carts.ListForUser(r.Context(), p.UserID, status)
	if err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	responders.JSON(w, http.StatusOK, nonNil(list))
}

func (h *handlers) addToCart(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var req carts.AddProductRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	line, err := h.carts.AddProduct(r.Context(), p.UserID, req)
	if err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	responders.JSON(w, http.StatusCreated, line)
}

// updateCartProduct sets a line's quantity. Quantity zero removes the line,
// answering with the same message as an explicit removal.
func (h *handlers) updateCartProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	productID, ok := urlID(w, r, "product_id")
	if !ok {
		return
	}

	var req carts.UpdateQuantityRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	line, err := h.carts.UpdateQuantity(r.Context(), p.UserID, productID, req)
	if err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}
	if line == nil {
		responders.JSON(w, http.StatusOK, map[string]string{"message": "Product removed from cart"})
		return
	}

	responders.JSON(w, http.StatusOK, line)
}

func (h *handlers) removeCartProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	productID, ok := urlID(w, r, "product_id")
	if !ok {
		return
	}

	if err := h.carts.RemoveProduct(r.Context(), p.UserID, productID); err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	responders.JSON(w, http.StatusOK, map[string]string{"message": "Product removed from cart"})
}

func (h *handlers) clearCart(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	if err := h.carts.Clear(r.Context(), p.UserID); err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	responders.JSON(w, http.StatusOK, map[string]string{"message": "Cart cleared successfully"})
}

func (h *handlers) cartTotal(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	report, err := h.carts.ComputeTotal(r.Context(), p.UserID)
	if err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	responders.JSON(w, http.StatusOK, report)
}

func (h *handlers) updateCartStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	cartID, ok := urlID(w, r, "cart_id")
	if !ok {
		return
	}

	var req carts.UpdateStatusRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	cart, err := h.carts.TransitionStatus(r.Context(), cartID, req.Status, p.UserID)
	if err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	responders.JSON(w, http.StatusOK, cart)
}

// validateCart dry-runs checkout against the caller's active cart and
// reports per-line stock and pricing problems.
func (h *handlers) validateCart(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	cart, err := h.carts.GetOrCreateActive(r.Context(), p.UserID)
	if err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	report, err := h.carts.ValidateForCheckout(r.Context(), cart.ID)
	if err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	responders.JSON(w, http.StatusOK, report)
}
