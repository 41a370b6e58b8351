package observability

import (
	"context"

	"github.com/lggm33/DUAD/internal/metrics"
)

// PrometheusHook adapts the Prometheus collectors to the hook interface so
// services emit events instead of touching metrics directly.
type PrometheusHook struct {
	metrics *metrics.Metrics
}

// NewPrometheusHook creates a hook that emits events to Prometheus metrics.
func NewPrometheusHook(m *metrics.Metrics) *PrometheusHook {
	return &PrometheusHook{metrics: m}
}

func (h *PrometheusHook) Name() string {
	return "prometheus"
}

func (h *PrometheusHook) OnTokenIssued(ctx context.Context, event TokenIssuedEvent) {
	h.metrics.ObserveTokenIssued(event.Algorithm, event.TokenType)
}

func (h *PrometheusHook) OnTokenRevoked(ctx context.Context, event TokenRevokedEvent) {
	h.metrics.ObserveTokenRevoked()
}

func (h *PrometheusHook) OnCheckoutCompleted(ctx context.Context, event CheckoutCompletedEvent) {
	h.metrics.ObserveCheckout("completed", event.ItemCount, event.Total.Minor(), event.Duration)
}

func (h *PrometheusHook) OnCheckoutFailed(ctx context.Context, event CheckoutFailedEvent) {
	h.metrics.ObserveCheckout("failed", 0, 0, event.Duration)
}

func (h *PrometheusHook) OnCacheDegraded(ctx context.Context, event CacheDegradedEvent) {
	// The cache stores already count errors per namespace; nothing extra
	// to record here.
}

func (h *PrometheusHook) OnLowStock(ctx context.Context, event LowStockEvent) {
	// The monitor sets the low stock gauge itself after each sweep.
}
