package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lggm33/DUAD/internal/auth"
	apperrors "github.com/lggm33/DUAD/internal/errors"
)

// maxRequestBody bounds request bodies so a hostile client cannot make the
// decoder buffer arbitrary amounts.
const maxRequestBody = 1 << 20

// decodeJSON decodes a JSON request body into the destination struct. The
// reader is closed after decoding. An empty body and malformed JSON map to
// distinct client errors with the API's historical messages.
func decodeJSON(r io.ReadCloser, dest any) error {
	defer r.Close()

	raw, err := io.ReadAll(io.LimitReader(r, maxRequestBody))
	if err != nil {
		return apperrors.New(apperrors.ErrCodeInvalidJSON, "Request must contain valid JSON")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return apperrors.New(apperrors.ErrCodeEmptyBody, "Request body cannot be empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return apperrors.New(apperrors.ErrCodeInvalidJSON, "Request must contain valid JSON")
	}
	return nil
}

// urlID parses the named URL parameter as a positive integer id, writing the
// error response itself when the parameter is absent or malformed.
func urlID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
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

// requirePrincipal pulls the authenticated principal from the context,
// writing the standard 401 when the middleware chain did not install one.
func requirePrincipal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		apperrors.WriteSimpleError(w, apperrors.ErrCodeMissingCredential, "Missing or invalid Authorization header")
		return auth.Principal{}, false
	}
	return p, true
}

// parseDateQuery reads an optional YYYY-MM-DD query parameter. A zero time
// means the parameter was absent; ok false means the error response was
// already written.
func parseDateQuery(w http.ResponseWriter, r *http.Request, name string) (t time.Time, ok bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		apperrors.WriteSimpleError(w, apperrors.ErrCodeValidationFailed, fmt.Sprintf("Invalid %s format. Use YYYY-MM-DD", name))
		return time.Time{}, false
	}
	return t, true
}

// queryFlag reports whether a boolean query parameter was set to true.
func queryFlag(r *http.Request, name string) bool {
	return r.URL.Query().Get(name) == "true"
}

// nonNil substitutes an empty slice for nil so listings marshal as [].
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
