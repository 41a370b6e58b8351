// Package circuitbreaker isolates the external backends behind independent
// circuit breakers so one degraded dependency fails fast instead of tying up
// request handlers across service boundaries.
package circuitbreaker

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/lggm33/DUAD/internal/config"
)

// ServiceType identifies an external backend for circuit breaker isolation.
type ServiceType string

const (
	ServiceCache   ServiceType = "redis_cache"
	ServiceArchive ServiceType = "mongo_archive"
	ServiceAlerts  ServiceType = "alert_webhook"
)

// Manager holds one circuit breaker per external backend. Bulkhead isolation:
// a tripped cache breaker never blocks archive writes or alert delivery.
type Manager struct {
	breakers map[ServiceType]*gobreaker.CircuitBreaker
	enabled  bool
}

// BreakerConfig configures a single circuit breaker.
type BreakerConfig struct {
	// MaxRequests is the maximum number of requests allowed to pass through
	// when the circuit breaker is half-open.
	MaxRequests uint32

	// Interval is the cyclic period in closed state to clear the internal
	// counts. Zero never clears.
	Interval time.Duration

	// Timeout is the period of the open state after which the state becomes
	// half-open.
	Timeout time.Duration

	// Trip thresholds: consecutive failures, or failure ratio once MinRequests
	// have been observed.
	ConsecutiveFailures uint32
	FailureRatio        float64
	MinRequests         uint32
}

// NewManagerFromConfig creates a circuit breaker manager from application config.
func NewManagerFromConfig(cfg config.CircuitBreakerConfig, log zerolog.Logger) *Manager {
	m := &Manager{
		breakers: make(map[ServiceType]*gobreaker.CircuitBreaker),
		enabled:  cfg.Enabled,
	}
	if !cfg.Enabled {
		// No breakers means every Execute passes through.
		return m
	}

	services := map[ServiceType]config.BreakerServiceConfig{
		ServiceCache:   cfg.Cache,
		ServiceArchive: cfg.Archive,
		ServiceAlerts:  cfg.Alerts,
	}
	for service, sc := range services {
		m.breakers[service] = gobreaker.NewCircuitBreaker(toGobreakerSettings(string(service), BreakerConfig{
			MaxRequests:         sc.MaxRequests,
			Interval:            sc.Interval.Duration,
			Timeout:             sc.Timeout.Duration,
			ConsecutiveFailures: sc.ConsecutiveFailures,
			FailureRatio:        sc.FailureRatio,
			MinRequests:         sc.MinRequests,
		}, log))
	}
	return m
}

// Execute wraps a call with circuit breaker protection. When breakers are
// disabled or the service has none configured, fn runs directly.
func (m *Manager) Execute(service ServiceType, fn func() (interface{}, error)) (interface{}, error) {
	if !m.enabled {
		return fn()
	}

	breaker, ok := m.breakers[service]
	if !ok {
		return fn()
	}

	return breaker.Execute(fn)
}

// State returns the current state of a circuit breaker.
// Returns "disabled" when breakers are off, "not_configured" for unknown services.
func (m *Manager) State(service ServiceType) string {
	if !m.enabled {
		return "disabled"
	}

	breaker, ok := m.breakers[service]
	if !ok {
		return "not_configured"
	}

	return breaker.State().String()
}

// Counts returns the current counts for a circuit breaker.
func (m *Manager) Counts(service ServiceType) Counts {
	if !m.enabled {
		return Counts{}
	}

	breaker, ok := m.breakers[service]
	if !ok {
		return Counts{}
	}

	c := breaker.Counts()
	return Counts{
		Requests:             c.Requests,
		TotalSuccesses:       c.TotalSuccesses,
		TotalFailures:        c.TotalFailures,
		ConsecutiveSuccesses: c.ConsecutiveSuccesses,
		ConsecutiveFailures:  c.ConsecutiveFailures,
	}
}

// Counts represents circuit breaker statistics.
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// toGobreakerSettings converts our config to gobreaker.Settings.
func toGobreakerSettings(name string, cfg BreakerConfig, log zerolog.Logger) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if cfg.ConsecutiveFailures > 0 && counts.ConsecutiveFailures >= cfg.ConsecutiveFailures {
				return true
			}

			if cfg.FailureRatio > 0 && cfg.MinRequests > 0 && counts.Requests >= cfg.MinRequests {
				failureRate := float64(counts.TotalFailures) / float64(counts.Requests)
				if failureRate >= cfg.FailureRatio {
					return true
				}
			}

			return false
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit_breaker.state_change")
		},
	}
}
