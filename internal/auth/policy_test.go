package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/lggm33/DUAD/internal/errors"
)

// withPrincipal installs a principal directly, standing in for the
// authenticator in policy tests.
func withPrincipal(p Principal) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

type stubCartResolver struct {
	owners map[int64]int64
}

func (s stubCartResolver) CartOwner(ctx context.Context, cartID int64) (int64, error) {
	owner, ok := s.owners[cartID]
	if !ok {
		return 0, apperrors.New(apperrors.ErrCodeCartNotFound, "Cart not found")
	}
	return owner, nil
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name       string
		allowed    []string
		principal  Principal
		wantStatus int
	}{
		{"admin allowed", []string{RoleAdmin}, Principal{UserID: 1, Role: RoleAdmin}, http.StatusOK},
		{"customer rejected", []string{RoleAdmin}, Principal{UserID: 2, Role: RoleCustomer}, http.StatusForbidden},
		{"either role", []string{RoleAdmin, RoleCustomer}, Principal{UserID: 2, Role: RoleCustomer}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Use(withPrincipal(tt.principal))
			r.With(RequireRole(tt.allowed...)).Get("/admin", okHandler)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest("GET", "/admin", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusForbidden {
				if code := decodeErrorCode(t, rec); code != apperrors.ErrCodePermissionDenied {
					t.Errorf("code = %q, want permission_denied", code)
				}
			}
		})
	}
}

func TestRequireRole_NoPrincipal(t *testing.T) {
	r := chi.NewRouter()
	r.With(RequireRole(RoleAdmin)).Get("/admin", okHandler)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/admin", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRequireCustomer(t *testing.T) {
	tests := []struct {
		name       string
		principal  Principal
		wantStatus int
	}{
		{"customer allowed", Principal{UserID: 5, Role: RoleCustomer}, http.StatusOK},
		{"admin rejected", Principal{UserID: 1, Role: RoleAdmin}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Use(withPrincipal(tt.principal))
			r.With(RequireCustomer).Post("/cart/products", okHandler)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest("POST", "/cart/products", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRequireOwnerOrAdmin(t *testing.T) {
	tests := []struct {
		name       string
		principal  Principal
		path       string
		wantStatus int
		wantCode   apperrors.ErrorCode
	}{
		{"admin any user", Principal{UserID: 1, Role: RoleAdmin}, "/users/99", http.StatusOK, ""},
		{"customer own id", Principal{UserID: 42, Role: RoleCustomer}, "/users/42", http.StatusOK, ""},
		{"customer other id", Principal{UserID: 42, Role: RoleCustomer}, "/users/43", http.StatusForbidden, apperrors.ErrCodeNotResourceOwner},
		{"non numeric id", Principal{UserID: 42, Role: RoleCustomer}, "/users/abc", http.StatusBadRequest, apperrors.ErrCodeInvalidField},
		{"zero id", Principal{UserID: 42, Role: RoleCustomer}, "/users/0", http.StatusBadRequest, apperrors.ErrCodeInvalidField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Use(withPrincipal(tt.principal))
			r.With(RequireOwnerOrAdmin("user_id")).Get("/users/{user_id}", okHandler)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantCode != "" {
				if code := decodeErrorCode(t, rec); code != tt.wantCode {
					t.Errorf("code = %q, want %q", code, tt.wantCode)
				}
			}
		})
	}
}

func TestRequireCartOwner(t *testing.T) {
	resolver := stubCartResolver{owners: map[int64]int64{10: 42}}

	tests := []struct {
		name       string
		principal  Principal
		path       string
		wantStatus int
	}{
		{"owner allowed", Principal{UserID: 42, Role: RoleCustomer}, "/carts/10", http.StatusOK},
		{"admin allowed", Principal{UserID: 1, Role: RoleAdmin}, "/carts/10", http.StatusOK},
		{"other user rejected", Principal{UserID: 43, Role: RoleCustomer}, "/carts/10", http.StatusForbidden},
		{"missing cart", Principal{UserID: 42, Role: RoleCustomer}, "/carts/999", http.StatusNotFound},
		{"non numeric cart", Principal{UserID: 42, Role: RoleCustomer}, "/carts/abc", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Use(withPrincipal(tt.principal))
			r.With(RequireCartOwner(resolver, "cart_id")).Get("/carts/{cart_id}", okHandler)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
