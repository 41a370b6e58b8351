package httpserver

import (
	"net/http"

	"github.com/lggm33/DUAD/internal/addresses"
	apperrors "github.com/lggm33/DUAD/internal/errors"
	"github.com/lggm33/DUAD/pkg/responders"
)

func (h *handlers) listAddresses(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	userID, ok := urlID(w, r, "user_id")
	if !ok {
		return
	}

	list, err := h.addresses.List(r.Context(), p, userID)
	if err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	responders.JSON(w, http.StatusOK, nonNil(list))
}

func (h *handlers) createAddress(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	userID, ok := urlID(w, r, "user_id")
	if !ok {
		return
	}

	var req addresses.CreateRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	address, err := h.addresses.Create(r.Context(), p, userID, req)
	if err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	responders.JSON(w, http.StatusCreated, address)
}

// updateAddress answers with the user's full address list, not just the
// updated row, so clients can refresh their local copy in one round trip.
func (h *handlers) updateAddress(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	userID, ok := urlID(w, r, "user_id")
	if !ok {
		return
	}
	addressID, ok := urlID(w, r, "address_id")
	if !ok {
		return
	}

	var req addresses.UpdateRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	list, err := h.addresses.Update(r.Context(), p, userID, addressID, req)
	if err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	responders.JSON(w, http.StatusOK, nonNil(list))
}

func (h *handlers) deleteAddress(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	userID, ok := urlID(w, r, "user_id")
	if !ok {
		return
	}
	addressID, ok := urlID(w, r, "address_id")
	if !ok {
		return
	}

	address, err := h.addresses.Delete(r.Context(), p, userID, addressID)
	if err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	responders.JSON(w, http.StatusOK, address)
}
