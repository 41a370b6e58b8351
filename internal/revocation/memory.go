package revocation

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process implementation of Store for single-node
// deployments and tests. A background janitor drops entries whose tokens
// have expired.
type MemoryStore struct {
	mu          sync.RWMutex
	entries     map[string]time.Time
	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

// NewMemoryStore creates an in-memory revocation store and starts its
// cleanup goroutine. Call Stop when the store is no longer needed.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		entries:     make(map[string]time.Time),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
	go s.cleanup()
	return s
}

func (s *MemoryStore) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if time.Until(expiresAt) <= 0 {
		return nil
	}
	s.mu.Lock()
	s.entries[jti] = expiresAt
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	now := time.Now()

	s.mu.RLock()
	expiry, ok := s.entries[jti]
	s.mu.RUnlock()

	return ok && now.Before(expiry), nil
}

// cleanup periodically removes entries for tokens that have expired.
func (s *MemoryStore) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	defer close(s.cleanupDone)

	for {
		select {
		case <-s.stopCleanup:
			return
		case <-ticker.C:
			now := time.Now()

			s.mu.Lock()
			for jti, expiry := range s.entries {
				if now.After(expiry) {
					delete(s.entries, jti)
				}
			}
			s.mu.Unlock()
		}
	}
}

// Stop shuts down the cleanup goroutine.
func (s *MemoryStore) Stop() {
	close(s.stopCleanup)
	<-s.cleanupDone
}
