// Package idempotency replays recorded responses when a client retries a
// request with the same Idempotency-Key. Checkout uses it so a retried POST
// cannot charge a cart twice.
package idempotency

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/lggm33/DUAD/internal/auth"
)

const (
	// HeaderKey is the standard idempotency key header
	HeaderKey = "Idempotency-Key"

	// DefaultTTL is how long recorded responses replay (24 hours)
	DefaultTTL = 24 * time.Hour
)

// responseWriter wraps http.ResponseWriter to capture the response for replay
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
	headers    map[string]string
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
		body:           &bytes.Buffer{},
		headers:        make(map[string]string),
	}
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

// captureHeaders snapshots the headers the handler set
func (rw *responseWriter) captureHeaders() {
	for key := range rw.ResponseWriter.Header() {
		rw.headers[key] = rw.ResponseWriter.Header().Get(key)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.body.Write(b) // Capture body for replay
	return rw.ResponseWriter.Write(b)
}

// scopedKey builds the storage key for a request. Keys are scoped per user,
// method and path so a retried key never collides across users or endpoints.
func scopedKey(r *http.Request, rawKey string) string {
	userSegment := "anon"
	if p, ok := auth.PrincipalFromContext(r.Context()); ok {
		userSegment = strconv.FormatInt(p.UserID, 10)
	}
	return userSegment + ":" + r.Method + ":" + r.URL.Path + ":" + rawKey
}

// Middleware replays recorded responses for repeated idempotency keys.
// Requests without the header pass through untouched.
func Middleware(store Store, ttl time.Duration) func(http.Handler) http.Handler {
	if ttl == 0 {
		ttl = DefaultTTL
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawKey := r.Header.Get(HeaderKey)
			if rawKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			key := scopedKey(r, rawKey)

			if cached, found := store.Get(r.Context(), key); found {
				for k, v := range cached.Headers {
					w.Header().Set(k, v)
				}
				w.Header().Set("X-Idempotency-Replay", "true")
				w.WriteHeader(cached.StatusCode)
				w.Write(cached.Body)
				return
			}

			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r)

			// Only successful responses replay. A failed checkout retried
			// with the same key should run again.
			if rw.statusCode >= 200 && rw.statusCode < 300 {
				rw.captureHeaders()

				store.Set(r.Context(), key, &Response{
					StatusCode: rw.statusCode,
					Headers:    rw.headers,
					Body:       rw.body.Bytes(),
					CachedAt:   time.Now(),
				}, ttl)
			}
		})
	}
}
