package auth

import (
	"errors"
	"net/http"
	"strings"

	apperrors "github.com/lggm33/DUAD/internal/errors"
	"github.com/lggm33/DUAD/internal/logger"
	"github.com/lggm33/DUAD/internal/metrics"
	"github.com/lggm33/DUAD/internal/revocation"
	"github.com/lggm33/DUAD/internal/token"
)

// Authenticator verifies bearer credentials and installs the resulting
// principal on the request context. Every verification consults the
// revocation store, so a logged-out token is rejected even while its
// signature and expiry still check out.
type Authenticator struct {
	engine      token.Engine
	revocations revocation.Store
	metrics     *metrics.Metrics
}

// NewAuthenticator creates the authentication middleware provider.
// m may be nil when no collector is wired.
func NewAuthenticator(engine token.Engine, revocations revocation.Store, m *metrics.Metrics) *Authenticator {
	return &Authenticator{engine: engine, revocations: revocations, metrics: m}
}

// RequireAccess admits only requests presenting a valid access token.
func (a *Authenticator) RequireAccess(next http.Handler) http.Handler {
	return a.require(next, token.TypeAccess)
}

// RequireRefresh admits only requests presenting a valid refresh token.
// The token refresh and logout endpoints use this.
func (a *Authenticator) RequireRefresh(next http.Handler) http.Handler {
	return a.require(next, token.TypeRefresh)
}

// Optional admits requests without an Authorization header anonymously.
// A presented credential is still fully verified and rejected on failure;
// only a truly absent one passes through without a principal.
func (a *Authenticator) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			next.ServeHTTP(w, r)
			return
		}
		principal, err := a.Authenticate(r, token.TypeAccess)
		if err != nil {
			apperrors.WriteDomainError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

func (a *Authenticator) require(next http.Handler, want token.Type) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := a.Authenticate(r, want)
		if err != nil {
			apperrors.WriteDomainError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

// Authenticate runs the full verification chain for a request: extract the
// bearer credential, verify signature and expiry, check the token type, and
// consult the revocation store.
func (a *Authenticator) Authenticate(r *http.Request, want token.Type) (Principal, error) {
	raw, err := bearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return Principal{}, err
	}

	claims, err := a.engine.Verify(raw)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			a.observe("expired")
			return Principal{}, apperrors.New(apperrors.ErrCodeTokenExpired, "Token expired")
		}
		a.observe("malformed")
		return Principal{}, apperrors.New(apperrors.ErrCodeTokenMalformed, "Invalid token")
	}

	userID, err := claims.UserID()
	if err != nil || !ValidRole(claims.Role) || claims.ID == "" || claims.ExpiresAt == nil {
		a.observe("malformed")
		return Principal{}, apperrors.New(apperrors.ErrCodeTokenMalformed, "Invalid token")
	}

	if claims.Type != want {
		a.observe("wrong_type")
		msg := "Access token required"
		if want == token.TypeRefresh {
			msg = "Refresh token required"
		}
		return Principal{}, apperrors.New(apperrors.ErrCodeWrongTokenType, msg)
	}

	revoked, err := a.revocations.IsRevoked(r.Context(), claims.ID)
	if err != nil {
		// Fail closed: a revocation store outage must not admit tokens we
		// cannot check.
		l := logger.FromContext(r.Context())
		l.Error().Err(err).Msg("auth.revocation_check_failed")
		return Principal{}, apperrors.Wrap(apperrors.ErrCodeServiceUnavailable, "Authentication is temporarily unavailable", err)
	}
	if revoked {
		a.observe("revoked")
		return Principal{}, apperrors.New(apperrors.ErrCodeTokenRevoked, "Token has been revoked")
	}

	a.observe("valid")
	return Principal{
		UserID:    userID,
		Role:      claims.Role,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (a *Authenticator) observe(outcome string) {
	if a.metrics != nil {
		a.metrics.ObserveTokenVerification(a.engine.Algorithm(), outcome)
	}
}

// bearerToken extracts the credential from an Authorization header value.
// The scheme is case-insensitive; anything other than "Bearer <token>" with
// exactly one space and a non-empty token counts as a missing credential.
func bearerToken(header string) (string, error) {
	scheme, raw, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || raw == "" || strings.ContainsRune(raw, ' ') {
		return "", apperrors.New(apperrors.ErrCodeMissingCredential, "Missing or invalid Authorization header")
	}
	return raw, nil
}
