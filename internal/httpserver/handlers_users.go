package httpserver

import (
	"net/http"
	"strings"

	"github.com/lggm33/DUAD/internal/auth"
	apperrors "github.com/lggm33/DUAD/internal/errors"
	"github.com/lggm33/DUAD/internal/token"
	"github.com/lggm33/DUAD/internal/users"
	"github.com/lggm33/DUAD/pkg/responders"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	User         users.User `json:"user"`
}

// register creates an account. Authentication is optional here: anonymous
// callers always get the customer role, while an authenticated admin may set
// the role explicitly.
func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var req users.RegisterRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	adminCaller := false
	if p, ok := auth.PrincipalFromContext(r.Context()); ok {
		adminCaller = p.IsAdmin()
	}

	user, err := h.users.Register(r.Context(), req, adminCaller)
	if err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	responders.JSON(w, http.StatusCreated, user)
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	details := map[string]interface{}{}
	if strings.TrimSpace(req.Email) == "" {
		details["email"] = "Missing data for required field."
	}
	if req.Password == "" {
		details["password"] = "Missing data for required field."
	}
	if len(details) > 0 {
		apperrors.WriteError(w, apperrors.ErrCodeValidationFailed, "Validation failed", details)
		return
	}

	pair, user, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	responders.JSON(w, http.StatusOK, loginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         user,
	})
}

// refresh mints a new access token from a refresh token. The user row is
// re-read so a deleted or deactivated account cannot keep refreshing.
func (h *handlers) refresh(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	access, err := h.users.Refresh(r.Context(), p)
	if err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	responders.JSON(w, http.StatusOK, map[string]string{"access_token": access})
}

// logout revokes the presented refresh token.
func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	if err := h.users.RevokeToken(r.Context(), p, token.TypeRefresh); err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	responders.JSON(w, http.StatusOK, map[string]string{"message": "Logged out (refresh revoked)"})
}

// logoutAccess revokes the presented access token ahead of its expiry.
func (h *handlers) logoutAccess(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	if err := h.users.RevokeToken(r.Context(), p, token.TypeAccess); err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	responders.JSON(w, http.StatusOK, map[string]string{"message": "Access token revoked"})
}

func (h *handlers) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "user_id")
	if !ok {
		return
	}

	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	responders.JSON(w, http.StatusOK, user)
}

func (h *handlers) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "user_id")
	if !ok {
		return
	}

	var req users.UpdateRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	user, err := h.users.Update(r.Context(), id, req)
	if err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	responders.JSON(w, http.StatusOK, user)
}

func (h *handlers) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "user_id")
	if !ok {
		return
	}

	user, err := h.users.Delete(r.Context(), id)
	if err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	responders.JSON(w, http.StatusOK, user)
}

func (h *handlers) makeAdmin(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "user_id")
	if !ok {
		return
	}

	user, err := h.users.MakeAdmin(r.Context(), id)
	if err != nil {
		apperrors.WriteDomainError(w, err)
		return
	}

	responders.JSON(w, http.StatusOK, user)
}
