// Package observability defines lifecycle hooks that external integrations
// can attach to without touching service code. Hooks receive events after
// the fact; they can never veto or alter an operation.
package observability

import (
	"context"
	"time"

	"github.com/lggm33/DUAD/internal/money"
)

type Hook interface {
	// Name returns the hook's identifier for logging/debugging
	Name() string
}

// AuthHook observes the credential lifecycle.
type AuthHook interface {
	Hook

	// OnTokenIssued is called after a login or refresh signs new tokens.
	OnTokenIssued(ctx context.Context, event TokenIssuedEvent)

	// OnTokenRevoked is called when a token is revoked by logout.
	OnTokenRevoked(ctx context.Context, event TokenRevokedEvent)
}

// CheckoutHook observes cart conversions.
type CheckoutHook interface {
	Hook

	// OnCheckoutCompleted is called after a checkout transaction commits.
	OnCheckoutCompleted(ctx context.Context, event CheckoutCompletedEvent)

	// OnCheckoutFailed is called when a checkout is rejected or rolled
	// back.
	OnCheckoutFailed(ctx context.Context, event CheckoutFailedEvent)
}

// CacheHook observes cache degradation. Cache failures never fail requests,
// so these events are the main signal that the cache tier is unhealthy.
type CacheHook interface {
	Hook

	// OnCacheDegraded is called when a cache operation fails and the
	// request falls through to the database.
	OnCacheDegraded(ctx context.Context, event CacheDegradedEvent)
}

// StockHook observes inventory levels reported by the low stock monitor.
type StockHook interface {
	Hook

	// OnLowStock is called for each product under the stock threshold.
	OnLowStock(ctx context.Context, event LowStockEvent)
}

// TokenIssuedEvent is emitted for each signed token.
type TokenIssuedEvent struct {
	Timestamp time.Time
	UserID    int64
	Role      string
	Algorithm string
	TokenType string // "access" or "refresh"
}

// TokenRevokedEvent is emitted when logout withdraws a token.
type TokenRevokedEvent struct {
	Timestamp time.Time
	UserID    int64
	TokenID   string
	TokenType string
}

// CheckoutCompletedEvent is emitted after the checkout transaction commits.
type CheckoutCompletedEvent struct {
	Timestamp     time.Time
	UserID        int64
	CartID        int64
	SaleID        int64
	InvoiceID     int64 // zero when no invoice was requested or generation failed
	Total         money.Amount
	ItemCount     int
	PaymentMethod string
	Duration      time.Duration
}

// CheckoutFailedEvent is emitted when a checkout is rejected or rolled back.
type CheckoutFailedEvent struct {
	Timestamp time.Time
	UserID    int64
	CartID    int64
	Reason    string
	Duration  time.Duration
}

// CacheDegradedEvent is emitted when a cache operation fails.
type CacheDegradedEvent struct {
	Timestamp time.Time
	Key       string
	Op        string // "get", "set", "delete", "delete_pattern"
	Err       string
}

// LowStockEvent is emitted by the stock monitor for products under the
// threshold.
type LowStockEvent struct {
	Timestamp time.Time
	ProductID int64
	Name      string
	Stock     int
	Threshold int
}
