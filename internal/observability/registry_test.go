package observability

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lggm33/DUAD/internal/money"
)

// Mock hook implementations for testing

type mockAuthHook struct {
	mu            sync.Mutex
	issuedEvents  []TokenIssuedEvent
	revokedEvents []TokenRevokedEvent
	shouldPanic   bool
}

func (h *mockAuthHook) Name() string { return "mock_auth" }

func (h *mockAuthHook) OnTokenIssued(ctx context.Context, event TokenIssuedEvent) {
	if h.shouldPanic {
		panic("intentional panic for testing")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.issuedEvents = append(h.issuedEvents, event)
}

func (h *mockAuthHook) OnTokenRevoked(ctx context.Context, event TokenRevokedEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.revokedEvents = append(h.revokedEvents, event)
}

func (h *mockAuthHook) getIssuedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.issuedEvents)
}

func (h *mockAuthHook) getRevokedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.revokedEvents)
}

type mockCheckoutHook struct {
	mu              sync.Mutex
	completedEvents []CheckoutCompletedEvent
	failedEvents    []CheckoutFailedEvent
}

func (h *mockCheckoutHook) Name() string { return "mock_checkout" }

func (h *mockCheckoutHook) OnCheckoutCompleted(ctx context.Context, event CheckoutCompletedEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.completedEvents = append(h.completedEvents, event)
}

func (h *mockCheckoutHook) OnCheckoutFailed(ctx context.Context, event CheckoutFailedEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failedEvents = append(h.failedEvents, event)
}

func (h *mockCheckoutHook) getCompletedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.completedEvents)
}

// Tests

func TestRegistry_RegisterAndEmitAuth(t *testing.T) {
	logger := zerolog.Nop()
	registry := NewRegistry(logger)

	hook := &mockAuthHook{}
	registry.RegisterAuthHook(hook)

	ctx := context.Background()

	registry.EmitTokenIssued(ctx, TokenIssuedEvent{
		Timestamp: time.Now(),
		UserID:    42,
		Role:      "customer",
		Algorithm: "RS256",
		TokenType: "access",
	})
	if hook.getIssuedCount() != 1 {
		t.Errorf("Expected 1 issued event, got %d", hook.getIssuedCount())
	}

	registry.EmitTokenRevoked(ctx, TokenRevokedEvent{
		Timestamp: time.Now(),
		UserID:    42,
		TokenID:   "jti-1",
		TokenType: "refresh",
	})
	if hook.getRevokedCount() != 1 {
		t.Errorf("Expected 1 revoked event, got %d", hook.getRevokedCount())
	}
}

func TestRegistry_MultipleHooks(t *testing.T) {
	logger := zerolog.Nop()
	registry := NewRegistry(logger)

	hook1 := &mockAuthHook{}
	hook2 := &mockAuthHook{}

	registry.RegisterAuthHook(hook1)
	registry.RegisterAuthHook(hook2)

	registry.EmitTokenIssued(context.Background(), TokenIssuedEvent{
		Timestamp: time.Now(),
		UserID:    7,
	})

	// Both hooks should receive the event
	if hook1.getIssuedCount() != 1 {
		t.Errorf("Hook1: Expected 1 issued event, got %d", hook1.getIssuedCount())
	}
	if hook2.getIssuedCount() != 1 {
		t.Errorf("Hook2: Expected 1 issued event, got %d", hook2.getIssuedCount())
	}
}

func TestRegistry_PanicRecovery(t *testing.T) {
	logger := zerolog.Nop()
	registry := NewRegistry(logger)

	panicHook := &mockAuthHook{shouldPanic: true}
	normalHook := &mockAuthHook{}

	registry.RegisterAuthHook(panicHook)
	registry.RegisterAuthHook(normalHook)

	// Should not panic - panic should be recovered
	registry.EmitTokenIssued(context.Background(), TokenIssuedEvent{
		Timestamp: time.Now(),
		UserID:    9,
	})

	// Normal hook should still receive event
	if normalHook.getIssuedCount() != 1 {
		t.Errorf("Normal hook should still receive event after panic, got %d events", normalHook.getIssuedCount())
	}
}

func TestRegistry_CheckoutHooks(t *testing.T) {
	logger := zerolog.Nop()
	registry := NewRegistry(logger)

	hook := &mockCheckoutHook{}
	registry.RegisterCheckoutHook(hook)

	registry.EmitCheckoutCompleted(context.Background(), CheckoutCompletedEvent{
		Timestamp:     time.Now(),
		UserID:        3,
		CartID:        11,
		SaleID:        5,
		Total:         money.FromMinor(10050),
		ItemCount:     2,
		PaymentMethod: "credit_card",
		Duration:      40 * time.Millisecond,
	})

	if hook.getCompletedCount() != 1 {
		t.Errorf("Expected 1 completed event, got %d", hook.getCompletedCount())
	}
}

func TestRegistry_ConcurrentEmissions(t *testing.T) {
	logger := zerolog.Nop()
	registry := NewRegistry(logger)

	hook := &mockAuthHook{}
	registry.RegisterAuthHook(hook)

	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			registry.EmitTokenIssued(ctx, TokenIssuedEvent{
				Timestamp: time.Now(),
				UserID:    int64(id),
			})
		}(i)
	}

	wg.Wait()

	if hook.getIssuedCount() != 100 {
		t.Errorf("Expected 100 issued events, got %d", hook.getIssuedCount())
	}
}
