package idempotency

import (
	"container/list"
	"context"
	"sync"
	"time"
)

const (
	// defaultMaxEntries bounds the in-memory store.
	defaultMaxEntries = 10000

	// sweepInterval is how often expired entries get collected.
	sweepInterval = 5 * time.Minute
)

// Response is a recorded checkout response, replayed verbatim on retry.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	CachedAt   time.Time
}

// Store records responses under idempotency keys.
type Store interface {
	// Get retrieves a recorded response for the given key.
	Get(ctx context.Context, key string) (*Response, bool)

	// Set records a response for the given key with TTL.
	Set(ctx context.Context, key string, response *Response, ttl time.Duration) error

	// Delete removes a recorded response.
	Delete(ctx context.Context, key string) error
}

// entry is one recorded response plus its position in the LRU list.
type entry struct {
	key       string
	response  *Response
	expiresAt time.Time
	element   *list.Element
}

// MemoryStore is an in-memory Store with LRU eviction and periodic expiry.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*entry
	lru     *list.List
	maxSize int

	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

// NewMemoryStore creates an in-memory store bounded at 10,000 entries.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithSize(defaultMaxEntries)
}

// NewMemoryStoreWithSize creates an in-memory store with a custom bound.
func NewMemoryStoreWithSize(maxSize int) *MemoryStore {
	s := &MemoryStore{
		entries:     make(map[string]*entry),
		lru:         list.New(),
		maxSize:     maxSize,
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}

	go s.cleanup()

	return s
}

// Get retrieves a recorded response for the given key.
func (s *MemoryStore) Get(ctx context.Context, key string) (*Response, bool) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, found := s.entries[key]
	if !found || now.After(e.expiresAt) {
		return nil, false
	}

	// Touch: most recently used moves to the front
	s.lru.MoveToFront(e.element)

	return e.response, true
}

// Set records a response for the given key with TTL.
func (s *MemoryStore) Set(ctx context.Context, key string, response *Response, ttl time.Duration) error {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, exists := s.entries[key]; exists {
		e.response = response
		e.expiresAt = now.Add(ttl)
		s.lru.MoveToFront(e.element)
		return nil
	}

	// Evict before adding so the bound holds even under concurrent Sets
	if len(s.entries) >= s.maxSize {
		s.evictOldest()
	}

	e := &entry{
		key:       key,
		response:  response,
		expiresAt: now.Add(ttl),
	}
	e.element = s.lru.PushFront(e)
	s.entries[key] = e

	return nil
}

// evictOldest removes the least recently used entry (caller must hold lock).
func (s *MemoryStore) evictOldest() {
	element := s.lru.Back()
	if element == nil {
		return
	}

	e := element.Value.(*entry)
	s.lru.Remove(element)
	delete(s.entries, e.key)
}

// Delete removes a recorded response.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, exists := s.entries[key]; exists {
		s.lru.Remove(e.element)
		delete(s.entries, key)
	}

	return nil
}

// cleanup periodically drops expired entries.
func (s *MemoryStore) cleanup() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	defer close(s.cleanupDone)

	for {
		select {
		case <-s.stopCleanup:
			return
		case <-ticker.C:
			s.dropExpired()
		}
	}
}

// dropExpired removes every entry past its expiry.
func (s *MemoryStore) dropExpired() {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []*entry
	for _, e := range s.entries {
		if now.After(e.expiresAt) {
			expired = append(expired, e)
		}
	}
	for _, e := range expired {
		s.lru.Remove(e.element)
		delete(s.entries, e.key)
	}
}

// Stop gracefully shuts down the cleanup goroutine.
func (s *MemoryStore) Stop() {
	close(s.stopCleanup)
	<-s.cleanupDone
}
