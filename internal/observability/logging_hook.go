package observability

import (
	"context"

	"github.com/rs/zerolog"
)

// LoggingHook logs every event. Registered in development environments so
// the event stream is visible without external tooling.
type LoggingHook struct {
	logger zerolog.Logger
}

// NewLoggingHook creates a hook that logs all events.
func NewLoggingHook(logger zerolog.Logger) *LoggingHook {
	return &LoggingHook{logger: logger}
}

func (h *LoggingHook) Name() string {
	return "logging"
}

func (h *LoggingHook) OnTokenIssued(ctx context.Context, event TokenIssuedEvent) {
	h.logger.Debug().
		Int64("user_id", event.UserID).
		Str("role", event.Role).
		Str("algorithm", event.Algorithm).
		Str("token_type", event.TokenType).
		Msg("token issued")
}

func (h *LoggingHook) OnTokenRevoked(ctx context.Context, event TokenRevokedEvent) {
	h.logger.Info().
		Int64("user_id", event.UserID).
		Str("token_id", event.TokenID).
		Str("token_type", event.TokenType).
		Msg("token revoked")
}

func (h *LoggingHook) OnCheckoutCompleted(ctx context.Context, event CheckoutCompletedEvent) {
	h.logger.Info().
		Int64("user_id", event.UserID).
		Int64("cart_id", event.CartID).
		Int64("sale_id", event.SaleID).
		Int64("invoice_id", event.InvoiceID).
		Str("total", event.Total.String()).
		Int("item_count", event.ItemCount).
		Str("payment_method", event.PaymentMethod).
		Dur("duration", event.Duration).
		Msg("checkout completed")
}

func (h *LoggingHook) OnCheckoutFailed(ctx context.Context, event CheckoutFailedEvent) {
	h.logger.Warn().
		Int64("user_id", event.UserID).
		Int64("cart_id", event.CartID).
		Str("reason", event.Reason).
		Dur("duration", event.Duration).
		Msg("checkout failed")
}

func (h *LoggingHook) OnCacheDegraded(ctx context.Context, event CacheDegradedEvent) {
	h.logger.Warn().
		Str("key", event.Key).
		Str("op", event.Op).
		Str("error", event.Err).
		Msg("cache degraded")
}

func (h *LoggingHook) OnLowStock(ctx context.Context, event LowStockEvent) {
	h.logger.Warn().
		Int64("product_id", event.ProductID).
		Str("product", event.Name).
		Int("stock", event.Stock).
		Int("threshold", event.Threshold).
		Msg("low stock")
}
