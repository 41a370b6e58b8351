package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the commerce backend.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Token engine metrics
	TokensIssuedTotal       *prometheus.CounterVec
	TokenVerificationsTotal *prometheus.CounterVec
	TokensRevokedTotal      prometheus.Counter

	// Cache metrics
	CacheOpsTotal *prometheus.CounterVec

	// Checkout metrics
	CheckoutsTotal   *prometheus.CounterVec
	CheckoutDuration prometheus.Histogram
	SaleAmountTotal  prometheus.Counter
	SaleItemsTotal   prometheus.Counter

	// Rate limiting metrics
	RateLimitHitsTotal *prometheus.CounterVec

	// Database metrics
	DBQueryDuration     *prometheus.HistogramVec
	DBConnectionsActive prometheus.Gauge

	// Inventory metrics
	LowStockProducts prometheus.Gauge

	// Archival metrics
	ArchivalWritesTotal   prometheus.Counter
	ArchivalFailuresTotal prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		// HTTP metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commerce_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "commerce_http_request_duration_seconds",
				Help:    "HTTP request duration (supports p50, p95, p99 percentiles)",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route"},
		),

		// Token engine metrics
		TokensIssuedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commerce_tokens_issued_total",
				Help: "Total number of tokens issued",
			},
			[]string{"algorithm", "type"},
		),
		TokenVerificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commerce_token_verifications_total",
				Help: "Total number of token verifications by outcome",
			},
			[]string{"algorithm", "outcome"},
		),
		TokensRevokedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "commerce_tokens_revoked_total",
				Help: "Total number of tokens added to the revocation store",
			},
		),

		// Cache metrics
		CacheOpsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commerce_cache_ops_total",
				Help: "Total number of cache operations by namespace and outcome",
			},
			[]string{"namespace", "outcome"},
		),

		// Checkout metrics
		CheckoutsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commerce_checkouts_total",
				Help: "Total number of checkout attempts",
			},
			[]string{"status"},
		),
		CheckoutDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "commerce_checkout_duration_seconds",
				Help:    "Time taken to complete checkout",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
		),
		SaleAmountTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "commerce_sale_amount_total",
				Help: "Total amount of completed sales in cents",
			},
		),
		SaleItemsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "commerce_sale_items_total",
				Help: "Total number of items sold",
			},
		),

		// Rate limiting metrics
		RateLimitHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commerce_rate_limit_hits_total",
				Help: "Total number of rate limit hits",
			},
			[]string{"limit_type", "identifier"},
		),

		// Database metrics
		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "commerce_db_query_duration_seconds",
				Help:    "Database query duration (supports p50, p95, p99 percentiles)",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5, 1, 2},
			},
			[]string{"operation", "backend"},
		),
		DBConnectionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "commerce_db_connections_active",
				Help: "Number of active database connections",
			},
		),

		// Inventory metrics
		LowStockProducts: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "commerce_low_stock_products",
				Help: "Number of products currently below the stock threshold",
			},
		),

		// Archival metrics
		ArchivalWritesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "commerce_archival_writes_total",
				Help: "Total number of sales archived",
			},
		),
		ArchivalFailuresTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "commerce_archival_failures_total",
				Help: "Total number of failed archival writes",
			},
		),
	}
}

// ObserveHTTPRequest records a completed HTTP request.
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveTokenIssued records a token issuance.
func (m *Metrics) ObserveTokenIssued(algorithm, tokenType string) {
	m.TokensIssuedTotal.WithLabelValues(algorithm, tokenType).Inc()
}

// ObserveTokenVerification records a verification outcome
// (valid, expired, malformed, revoked, wrong_type).
func (m *Metrics) ObserveTokenVerification(algorithm, outcome string) {
	m.TokenVerificationsTotal.WithLabelValues(algorithm, outcome).Inc()
}

// ObserveTokenRevoked records a token entering the revocation store.
func (m *Metrics) ObserveTokenRevoked() {
	m.TokensRevokedTotal.Inc()
}

// ObserveCacheOp records a cache operation outcome (hit, miss, error, skip).
func (m *Metrics) ObserveCacheOp(namespace, outcome string) {
	m.CacheOpsTotal.WithLabelValues(namespace, outcome).Inc()
}

// ObserveCheckout records a checkout attempt and its outcome.
func (m *Metrics) ObserveCheckout(status string, itemCount int, amountCents int64, duration time.Duration) {
	m.CheckoutsTotal.WithLabelValues(status).Inc()
	m.CheckoutDuration.Observe(duration.Seconds())
	if status == "completed" {
		m.SaleAmountTotal.Add(float64(amountCents))
		m.SaleItemsTotal.Add(float64(itemCount))
	}
}

// ObserveRateLimit records a rate limit hit.
func (m *Metrics) ObserveRateLimit(limitType, identifier string) {
	m.RateLimitHitsTotal.WithLabelValues(limitType, identifier).Inc()
}

// ObserveDBQuery records a database query.
func (m *Metrics) ObserveDBQuery(operation, backend string, duration time.Duration) {
	m.DBQueryDuration.WithLabelValues(operation, backend).Observe(duration.Seconds())
}

// SetLowStockProducts updates the low stock gauge.
func (m *Metrics) SetLowStockProducts(count int) {
	m.LowStockProducts.Set(float64(count))
}

// ObserveArchival records an archival write attempt.
func (m *Metrics) ObserveArchival(success bool) {
	if success {
		m.ArchivalWritesTotal.Inc()
		return
	}
	m.ArchivalFailuresTotal.Inc()
}
