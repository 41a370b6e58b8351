package auth

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/lggm33/DUAD/internal/errors"
)

// CartResolver resolves a cart's owning user for ownership checks.
// The carts repository implements it; a missing cart surfaces as a domain
// error carrying the cart_not_found code.
type CartResolver interface {
	CartOwner(ctx context.Context, cartID int64) (int64, error)
}

// RequireRole admits only principals carrying one of the allowed roles.
// Chain after RequireAccess.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeMissingPrincipal(w)
				return
			}
			for _, role := range roles {
				if principal.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			apperrors.WriteSimpleError(w, apperrors.ErrCodePermissionDenied, "Permission denied")
		})
	}
}

// RequireAdmin admits only admin principals.
func RequireAdmin(next http.Handler) http.Handler {
	return RequireRole(RoleAdmin)(next)
}

// RequireCustomer admits only customer principals. Admin accounts do not
// shop, so cart and checkout endpoints turn them away.
func RequireCustomer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			writeMissingPrincipal(w)
			return
		}
		if !principal.IsCustomer() {
			apperrors.WriteSimpleError(w, apperrors.ErrCodePermissionDenied, "This endpoint is only accessible to customers")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireOwnerOrAdmin admits admins unconditionally and customers only when
// the named URL parameter matches their own user id.
func RequireOwnerOrAdmin(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeMissingPrincipal(w)
				return
			}
			targetID, ok := pathID(w, r, param)
			if !ok {
				return
			}
			switch {
			case principal.IsAdmin():
				next.ServeHTTP(w, r)
			case principal.IsCustomer():
				if principal.UserID != targetID {
					apperrors.WriteSimpleError(w, apperrors.ErrCodeNotResourceOwner, "Customers can only access their own resources")
					return
				}
				next.ServeHTTP(w, r)
			default:
				apperrors.WriteSimpleError(w, apperrors.ErrCodePermissionDenied, "Permission denied")
			}
		})
	}
}

// RequireCartOwner admits the cart's owner and admins. The cart id comes
// from the named URL parameter and ownership is resolved against storage, so
// the check holds even when a cart changes hands between requests.
func RequireCartOwner(resolver CartResolver, param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeMissingPrincipal(w)
				return
			}
			cartID, ok := pathID(w, r, param)
			if !ok {
				return
			}
			ownerID, err := resolver.CartOwner(r.Context(), cartID)
			if err != nil {
				apperrors.WriteDomainError(w, err)
				return
			}
			if ownerID != principal.UserID && !principal.IsAdmin() {
				apperrors.WriteSimpleError(w, apperrors.ErrCodeNotResourceOwner, "Access denied: Cart belongs to another user")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// pathID parses the named URL parameter as a positive integer id, writing
// the error response itself when the parameter is absent or malformed.
func pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	raw := chi.URLParam(r, param)
	if raw == "" {
		apperrors.WriteSimpleError(w, apperrors.ErrCodeMissingField, fmt.Sprintf("Missing required parameter: %s", param))
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		apperrors.WriteSimpleError(w, apperrors.ErrCodeInvalidField, fmt.Sprintf("Invalid parameter: %s", param))
		return 0, false
	}
	return id, true
}

func writeMissingPrincipal(w http.ResponseWriter) {
	apperrors.WriteSimpleError(w, apperrors.ErrCodeMissingCredential, "Missing or invalid Authorization header")
}
