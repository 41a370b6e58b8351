// Package monitoring runs the background sweep over the catalog and the cart
// table. Each pass reports products below the stock threshold and abandons
// active carts that have been idle past the configured age.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lggm33/DUAD/internal/circuitbreaker"
	"github.com/lggm33/DUAD/internal/config"
	"github.com/lggm33/DUAD/internal/httputil"
	"github.com/lggm33/DUAD/internal/metrics"
	"github.com/lggm33/DUAD/internal/observability"
	"github.com/lggm33/DUAD/internal/products"
)

// alertCooldown is how long a product stays muted after a webhook alert.
const alertCooldown = 24 * time.Hour

// Catalog lists products whose stock is at or below a threshold.
type Catalog interface {
	ListLowStock(ctx context.Context, threshold int) ([]products.Product, error)
}

// CartSweeper abandons active carts that have been idle too long.
type CartSweeper interface {
	AbandonStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// StockMonitor periodically scans stock levels, emits low stock events and
// sends webhook alerts when products run low. The same loop abandons stale
// carts so forgotten ones do not pile up as active.
type StockMonitor struct {
	cfg        config.MonitorConfig
	catalog    Catalog
	carts      CartSweeper
	hooks      *observability.Registry
	metrics    *metrics.Metrics
	breaker    *circuitbreaker.Manager
	httpClient *http.Client

	mu      sync.Mutex
	alerted map[int64]time.Time // Track which products we've already alerted about (id -> last alert time)

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewStockMonitor creates a monitor over the given catalog and cart stores.
func NewStockMonitor(cfg config.MonitorConfig, catalog Catalog, carts CartSweeper, hooks *observability.Registry, m *metrics.Metrics, breaker *circuitbreaker.Manager) *StockMonitor {
	return &StockMonitor{
		cfg:        cfg,
		catalog:    catalog,
		carts:      carts,
		hooks:      hooks,
		metrics:    m,
		breaker:    breaker,
		httpClient: httputil.NewClient(cfg.Timeout.Duration),
		alerted:    make(map[int64]time.Time),
		stopCh:     make(chan struct{}),
	}
}

// Start begins the monitoring loop.
func (m *StockMonitor) Start(ctx context.Context) {
	if !m.cfg.Enabled {
		log.Info().Msg("stock_monitor.disabled")
		return
	}

	log.Info().
		Int("stock_threshold", m.cfg.StockThreshold).
		Dur("check_interval", m.cfg.CheckInterval.Duration).
		Dur("cart_max_age", m.cfg.CartMaxAge.Duration).
		Bool("webhook_alerts", m.cfg.AlertURL != "").
		Msg("stock_monitor.started")

	m.wg.Add(1)
	go m.monitorLoop(ctx)
}

// Stop gracefully stops the monitoring loop.
func (m *StockMonitor) Stop() {
	close(m.stopCh)
	m.wg.Wait()
	log.Info().Msg("stock_monitor.stopped")
}

// monitorLoop runs the periodic sweeps.
func (m *StockMonitor) monitorLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.CheckInterval.Duration)
	defer ticker.Stop()

	// Run initial sweep immediately
	m.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

// sweep runs one pass: the stock scan first, then the cart cleanup.
func (m *StockMonitor) sweep(ctx context.Context) {
	m.checkStock(ctx)
	m.sweepCarts(ctx)
}

// checkStock scans the catalog and reports every product under the threshold.
func (m *StockMonitor) checkStock(ctx context.Context) {
	low, err := m.catalog.ListLowStock(ctx, m.cfg.StockThreshold)
	if err != nil {
		log.Error().Err(err).Msg("stock_monitor.scan_error")
		return
	}

	m.metrics.SetLowStockProducts(len(low))

	for _, p := range low {
		log.Debug().
			Int64("product_id", p.ID).
			Str("name", p.Name).
			Int("stock", p.Stock).
			Msg("stock_monitor.low_stock")

		m.hooks.EmitLowStock(ctx, observability.LowStockEvent{
			Timestamp: time.Now(),
			ProductID: p.ID,
			Name:      p.Name,
			Stock:     p.Stock,
			Threshold: m.cfg.StockThreshold,
		})

		if m.cfg.AlertURL != "" && m.shouldAlert(p.ID) {
			m.sendAlert(ctx, p)
		}
	}

	m.clearRecovered(low)
}

// sweepCarts abandons active carts older than the configured age.
func (m *StockMonitor) sweepCarts(ctx context.Context) {
	if m.cfg.CartMaxAge.Duration <= 0 {
		return
	}

	abandoned, err := m.carts.AbandonStale(ctx, m.cfg.CartMaxAge.Duration)
	if err != nil {
		log.Error().Err(err).Msg("stock_monitor.cart_sweep_error")
		return
	}
	if abandoned > 0 {
		log.Info().
			Int64("abandoned", abandoned).
			Dur("older_than", m.cfg.CartMaxAge.Duration).
			Msg("stock_monitor.carts_abandoned")
	}
}

// shouldAlert returns true if we should send an alert for this product.
// We only alert once per 24 hours to avoid spam.
func (m *StockMonitor) shouldAlert(productID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	lastAlert, exists := m.alerted[productID]
	if !exists {
		return true
	}

	return time.Since(lastAlert) > alertCooldown
}

// clearRecovered removes alert history for products whose stock recovered.
func (m *StockMonitor) clearRecovered(low []products.Product) {
	stillLow := make(map[int64]struct{}, len(low))
	for _, p := range low {
		stillLow[p.ID] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.alerted {
		if _, ok := stillLow[id]; !ok {
			delete(m.alerted, id)
		}
	}
}

// sendAlert posts a webhook notification about a low stock product.
func (m *StockMonitor) sendAlert(ctx context.Context, p products.Product) {
	// Default Discord webhook format
	body, err := json.Marshal(map[string]any{
		"content": fmt.Sprintf(
			"⚠️ **Low Stock Alert**\n\n"+
				"Product: **%s** (id %d)\n"+
				"Stock: **%d units**\n"+
				"Threshold: %d units\n\n"+
				"Restock soon to keep checkouts from failing.",
			p.Name, p.ID, p.Stock, m.cfg.StockThreshold,
		),
	})
	if err != nil {
		log.Error().Err(err).Int64("product_id", p.ID).Msg("stock_monitor.marshal_error")
		return
	}

	req, err := http.NewRequestWithContext(ctx, "POST", m.cfg.AlertURL, bytes.NewReader(body))
	if err != nil {
		log.Error().Err(err).Int64("product_id", p.ID).Msg("stock_monitor.request_error")
		return
	}

	// Set default Content-Type for Discord/Slack
	req.Header.Set("Content-Type", "application/json")

	// Apply custom headers
	for key, value := range m.cfg.Headers {
		req.Header.Set(key, value)
	}

	// A non-2xx response counts as a breaker failure and leaves the
	// product unmuted so the next sweep retries.
	_, err = m.breaker.Execute(circuitbreaker.ServiceAlerts, func() (interface{}, error) {
		resp, doErr := m.httpClient.Do(req)
		if doErr != nil {
			return nil, doErr
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("alert webhook returned status %d", resp.StatusCode)
		}
		return resp.StatusCode, nil
	})
	if err != nil {
		log.Warn().Err(err).Int64("product_id", p.ID).Msg("stock_monitor.alert_failed")
		return
	}

	log.Info().
		Int64("product_id", p.ID).
		Int("stock", p.Stock).
		Msg("stock_monitor.alert_sent")

	// Mark as alerted
	m.mu.Lock()
	m.alerted[p.ID] = time.Now()
	m.mu.Unlock()
}
