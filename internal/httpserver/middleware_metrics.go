package httpserver

import (
	"net/http"

	apperrors "github.com/lggm33/DUAD/internal/errors"
)

// metricsAuth protects the /metrics endpoint with a bearer token. With no
// token configured the endpoint is open, which suits private deployments
// where the scraper and the server share a network.
func metricsAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			if r.Header.Get("Authorization") != "Bearer "+token {
				apperrors.WriteSimpleError(w, apperrors.ErrCodeMissingCredential, "Missing or invalid metrics token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
