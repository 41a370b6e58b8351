package cacheutil

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lggm33/DUAD/internal/cache"
	"github.com/lggm33/DUAD/internal/observability"
)

type brokenStore struct {
	*cache.MemoryStore
	failGet bool
	failSet bool
}

func (s *brokenStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	if s.failGet {
		return false, errors.New("redis gone")
	}
	return s.MemoryStore.Get(ctx, key, dest)
}

func (s *brokenStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if s.failSet {
		return errors.New("redis gone")
	}
	return s.MemoryStore.Set(ctx, key, value, ttl)
}

type countingCacheHook struct {
	mu     sync.Mutex
	events []observability.CacheDegradedEvent
}

func (h *countingCacheHook) Name() string { return "counting" }

func (h *countingCacheHook) OnCacheDegraded(ctx context.Context, event observability.CacheDegradedEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
}

func (h *countingCacheHook) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

func TestReadThrough_FetchesOnceThenHits(t *testing.T) {
	store := cache.NewMemory()
	ctx := context.Background()

	fetches := 0
	fetch := func(ctx context.Context) (string, error) {
		fetches++
		return "laptop", nil
	}

	for i := 0; i < 3; i++ {
		got, err := ReadThrough(ctx, store, nil, cache.ProductKey(1), time.Minute, fetch)
		if err != nil {
			t.Fatalf("ReadThrough() error = %v", err)
		}
		if got != "laptop" {
			t.Errorf("ReadThrough() = %q, want %q", got, "laptop")
		}
	}
	if fetches != 1 {
		t.Errorf("fetch called %d times, want 1", fetches)
	}
}

func TestReadThrough_CacheFailureFallsThrough(t *testing.T) {
	store := &brokenStore{MemoryStore: cache.NewMemory(), failGet: true, failSet: true}
	hook := &countingCacheHook{}
	registry := observability.NewRegistry(zerolog.Nop())
	registry.RegisterCacheHook(hook)

	got, err := ReadThrough(context.Background(), store, registry, cache.ProductKey(2), time.Minute,
		func(ctx context.Context) (int, error) { return 99, nil })
	if err != nil {
		t.Fatalf("ReadThrough() error = %v, want nil despite cache failure", err)
	}
	if got != 99 {
		t.Errorf("ReadThrough() = %d, want 99", got)
	}
	// Both the failed Get and the failed Set degrade.
	if hook.count() != 2 {
		t.Errorf("degraded events = %d, want 2", hook.count())
	}
}

func TestReadThrough_FetchErrorPropagates(t *testing.T) {
	store := cache.NewMemory()
	wantErr := errors.New("db down")

	_, err := ReadThrough(context.Background(), store, nil, cache.ProductKey(3), time.Minute,
		func(ctx context.Context) (string, error) { return "", wantErr })
	if !errors.Is(err, wantErr) {
		t.Errorf("ReadThrough() error = %v, want %v", err, wantErr)
	}

	// Nothing cached after a failed fetch.
	var dest string
	if hit, _ := store.Get(context.Background(), cache.ProductKey(3), &dest); hit {
		t.Error("failed fetch left an entry in the cache")
	}
}

func TestWriteThrough(t *testing.T) {
	invalidated := false

	err := WriteThrough(
		func() error { return nil },
		func() { invalidated = true },
	)
	if err != nil {
		t.Fatalf("WriteThrough() error = %v", err)
	}
	if !invalidated {
		t.Error("successful write did not invalidate")
	}

	invalidated = false
	wantErr := errors.New("write failed")
	err = WriteThrough(
		func() error { return wantErr },
		func() { invalidated = true },
	)
	if !errors.Is(err, wantErr) {
		t.Errorf("WriteThrough() error = %v, want %v", err, wantErr)
	}
	if invalidated {
		t.Error("failed write must not invalidate")
	}
}

func TestInvalidate(t *testing.T) {
	store := cache.NewMemory()
	ctx := context.Background()

	keys := []string{cache.KeyProductList, cache.ProductKey(1), cache.CartTotalKey(4)}
	for _, key := range keys {
		if err := store.Set(ctx, key, "x", time.Minute); err != nil {
			t.Fatalf("Set(%s) error = %v", key, err)
		}
	}

	Invalidate(ctx, store, nil, []string{cache.KeyProductList, cache.ProductKey(1)}, cache.PatternCartTotals)

	var dest string
	for _, key := range keys {
		if hit, _ := store.Get(ctx, key, &dest); hit {
			t.Errorf("key %s survived invalidation", key)
		}
	}
}
