package metrics

import (
	"time"
)

// MeasureDBQuery wraps a database operation with timing instrumentation.
// All helpers are nil-safe so repositories can run without a collector.
// Usage:
//
//	defer metrics.MeasureDBQuery(m, "products.get_by_id", "postgres")()
func MeasureDBQuery(m *Metrics, operation, backend string) func() {
	if m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		m.ObserveDBQuery(operation, backend, time.Since(start))
	}
}

// RecordDBQuery records a database query duration directly (when timing is already captured).
func RecordDBQuery(m *Metrics, operation, backend string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ObserveDBQuery(operation, backend, duration)
}

// RecordCacheOp records a cache outcome for a key namespace, tolerating a nil collector.
func RecordCacheOp(m *Metrics, namespace, outcome string) {
	if m == nil {
		return
	}
	m.ObserveCacheOp(namespace, outcome)
}
