package idempotency

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lggm33/DUAD/internal/auth"
)

// checkoutRequest builds a POST carrying an authenticated principal, the way
// requests reach the middleware behind the authenticator.
func checkoutRequest(path, key string, userID int64) *http.Request {
	req := httptest.NewRequest("POST", path, nil)
	if key != "" {
		req.Header.Set(HeaderKey, key)
	}
	if userID != 0 {
		ctx := auth.WithPrincipal(req.Context(), auth.Principal{UserID: userID, Role: auth.RoleCustomer})
		req = req.WithContext(ctx)
	}
	return req
}

func countingHandler(calls *atomic.Int64, status int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprintf(w, body, n)
	})
}

func TestMiddlewarePassthroughWithoutKey(t *testing.T) {
	store := NewMemoryStoreWithSize(10)
	defer store.Stop()

	var calls atomic.Int64
	handler := Middleware(store, time.Hour)(countingHandler(&calls, http.StatusCreated, `{"call":%d}`))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, checkoutRequest("/checkout", "", 7))
		if rec.Header().Get("X-Idempotency-Replay") != "" {
			t.Error("expected no replay header without a key")
		}
	}

	if calls.Load() != 2 {
		t.Errorf("expected handler to run every time without a key, got %d calls", calls.Load())
	}
}

func TestMiddlewareReplaysRecordedResponse(t *testing.T) {
	store := NewMemoryStoreWithSize(10)
	defer store.Stop()

	var calls atomic.Int64
	handler := Middleware(store, time.Hour)(countingHandler(&calls, http.StatusCreated, `{"call":%d}`))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, checkoutRequest("/checkout", "retry-1", 7))

	if first.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", first.Code)
	}
	if first.Header().Get("X-Idempotency-Replay") != "" {
		t.Error("expected no replay header on the first request")
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, checkoutRequest("/checkout", "retry-1", 7))

	if calls.Load() != 1 {
		t.Fatalf("expected handler to run once, got %d calls", calls.Load())
	}
	if second.Header().Get("X-Idempotency-Replay") != "true" {
		t.Error("expected replay header on the retry")
	}
	if second.Code != http.StatusCreated {
		t.Errorf("expected replayed status 201, got %d", second.Code)
	}
	if second.Body.String() != `{"call":1}` {
		t.Errorf("expected replayed body, got %s", second.Body.String())
	}
	if second.Header().Get("Content-Type") != "application/json" {
		t.Errorf("expected replayed Content-Type, got %q", second.Header().Get("Content-Type"))
	}
}

func TestMiddlewareScopesKeysPerUser(t *testing.T) {
	store := NewMemoryStoreWithSize(10)
	defer store.Stop()

	var calls atomic.Int64
	handler := Middleware(store, time.Hour)(countingHandler(&calls, http.StatusCreated, `{"call":%d}`))

	alice := httptest.NewRecorder()
	handler.ServeHTTP(alice, checkoutRequest("/checkout", "shared-key", 1))

	bob := httptest.NewRecorder()
	handler.ServeHTTP(bob, checkoutRequest("/checkout", "shared-key", 2))

	if calls.Load() != 2 {
		t.Fatalf("expected both users to run the handler, got %d calls", calls.Load())
	}
	if bob.Header().Get("X-Idempotency-Replay") == "true" {
		t.Error("one user's key must not replay another user's response")
	}
	if alice.Body.String() == bob.Body.String() {
		t.Error("expected distinct responses per user")
	}

	// Each user still replays their own recording
	aliceRetry := httptest.NewRecorder()
	handler.ServeHTTP(aliceRetry, checkoutRequest("/checkout", "shared-key", 1))
	if aliceRetry.Header().Get("X-Idempotency-Replay") != "true" {
		t.Error("expected replay for the original user")
	}
	if aliceRetry.Body.String() != alice.Body.String() {
		t.Errorf("expected the original body back, got %s", aliceRetry.Body.String())
	}
}

func TestMiddlewareScopesKeysPerPath(t *testing.T) {
	store := NewMemoryStoreWithSize(10)
	defer store.Stop()

	var calls atomic.Int64
	handler := Middleware(store, time.Hour)(countingHandler(&calls, http.StatusCreated, `{"call":%d}`))

	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, checkoutRequest("/checkout", "key", 7))

	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, checkoutRequest("/other", "key", 7))

	if calls.Load() != 2 {
		t.Errorf("expected the same key on another path to run the handler, got %d calls", calls.Load())
	}
	if rec2.Header().Get("X-Idempotency-Replay") == "true" {
		t.Error("expected no cross-endpoint replay")
	}
}

func TestMiddlewareDoesNotRecordFailures(t *testing.T) {
	store := NewMemoryStoreWithSize(10)
	defer store.Stop()

	var calls atomic.Int64
	handler := Middleware(store, time.Hour)(countingHandler(&calls, http.StatusBadRequest, `{"error":"cart_empty","call":%d}`))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, checkoutRequest("/checkout", "failed-key", 7))
		if rec.Header().Get("X-Idempotency-Replay") == "true" {
			t.Error("expected failures to never replay")
		}
	}

	if calls.Load() != 2 {
		t.Errorf("expected a failed checkout to retry for real, got %d calls", calls.Load())
	}
}

func TestMiddlewareExpiredRecordingRunsAgain(t *testing.T) {
	store := NewMemoryStoreWithSize(10)
	defer store.Stop()

	var calls atomic.Int64
	handler := Middleware(store, 10*time.Millisecond)(countingHandler(&calls, http.StatusCreated, `{"call":%d}`))

	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, checkoutRequest("/checkout", "key", 7))

	time.Sleep(30 * time.Millisecond)

	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, checkoutRequest("/checkout", "key", 7))

	if calls.Load() != 2 {
		t.Errorf("expected the handler to run again after expiry, got %d calls", calls.Load())
	}
	if rec2.Header().Get("X-Idempotency-Replay") == "true" {
		t.Error("expected no replay after expiry")
	}
}

func TestMiddlewareAnonymousRequestsShareScope(t *testing.T) {
	store := NewMemoryStoreWithSize(10)
	defer store.Stop()

	var calls atomic.Int64
	handler := Middleware(store, time.Hour)(countingHandler(&calls, http.StatusCreated, `{"call":%d}`))

	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, checkoutRequest("/checkout", "anon-key", 0))

	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, checkoutRequest("/checkout", "anon-key", 0))

	if calls.Load() != 1 {
		t.Errorf("expected anonymous retries to replay, got %d calls", calls.Load())
	}
	if rec2.Header().Get("X-Idempotency-Replay") != "true" {
		t.Error("expected replay header for the anonymous retry")
	}
}
