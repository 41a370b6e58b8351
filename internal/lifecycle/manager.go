// Package lifecycle collects the closable resources an application opens and
// releases them in reverse order on shutdown.
package lifecycle

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// Manager owns registered resources. Close releases them LIFO, so a resource
// never outlives anything registered after it depends on it.
type Manager struct {
	mu      sync.Mutex
	closed  bool
	entries []entry
}

type entry struct {
	name   string
	closer io.Closer
}

// NewManager creates an empty resource manager.
func NewManager() *Manager {
	return &Manager{}
}

// Register adds a resource to be closed when the manager is closed.
func (m *Manager) Register(name string, closer io.Closer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry{name: name, closer: closer})
}

// RegisterFunc wraps a cleanup function as a Closer for convenience.
func (m *Manager) RegisterFunc(name string, fn func() error) {
	m.Register(name, closerFunc(fn))
}

// Close releases every registered resource in reverse order. Failures do not
// stop the sweep; they are joined into the returned error with the resource
// name attached. A second Close is a no-op, so registered cleanup functions
// never run twice.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	var errs []error
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if err := e.closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", e.name, err))
		}
	}
	return errors.Join(errs...)
}

type closerFunc func() error

func (f closerFunc) Close() error {
	return f()
}
