package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/lggm33/DUAD/internal/config"
)

func testConfig(enabled bool) config.CircuitBreakerConfig {
	svc := config.BreakerServiceConfig{
		MaxRequests:         1,
		Timeout:             config.Duration{Duration: time.Minute},
		ConsecutiveFailures: 3,
	}
	return config.CircuitBreakerConfig{Enabled: enabled, Cache: svc, Archive: svc, Alerts: svc}
}

func TestExecute_PassThroughWhenDisabled(t *testing.T) {
	m := NewManagerFromConfig(testConfig(false), zerolog.Nop())

	calls := 0
	for i := 0; i < 10; i++ {
		_, _ = m.Execute(ServiceCache, func() (interface{}, error) {
			calls++
			return nil, errors.New("backend down")
		})
	}

	if calls != 10 {
		t.Errorf("calls = %d, want 10 (disabled manager must not trip)", calls)
	}
	if state := m.State(ServiceCache); state != "disabled" {
		t.Errorf("State() = %q, want %q", state, "disabled")
	}
}

func TestExecute_TripsAfterConsecutiveFailures(t *testing.T) {
	m := NewManagerFromConfig(testConfig(true), zerolog.Nop())

	backendErr := errors.New("backend down")
	for i := 0; i < 3; i++ {
		_, err := m.Execute(ServiceCache, func() (interface{}, error) {
			return nil, backendErr
		})
		if !errors.Is(err, backendErr) {
			t.Fatalf("Execute() error = %v, want %v", err, backendErr)
		}
	}

	if state := m.State(ServiceCache); state != gobreaker.StateOpen.String() {
		t.Fatalf("State() = %q after 3 failures, want open", state)
	}

	called := false
	_, err := m.Execute(ServiceCache, func() (interface{}, error) {
		called = true
		return nil, nil
	})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Execute() error = %v, want %v", err, gobreaker.ErrOpenState)
	}
	if called {
		t.Error("open breaker must not invoke the wrapped call")
	}

	// Other backends keep their own breakers.
	if state := m.State(ServiceArchive); state != gobreaker.StateClosed.String() {
		t.Errorf("State(archive) = %q, want closed", state)
	}
}

func TestExecute_SuccessKeepsClosed(t *testing.T) {
	m := NewManagerFromConfig(testConfig(true), zerolog.Nop())

	got, err := m.Execute(ServiceAlerts, func() (interface{}, error) {
		return "delivered", nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got != "delivered" {
		t.Errorf("Execute() = %v, want %q", got, "delivered")
	}

	counts := m.Counts(ServiceAlerts)
	if counts.TotalSuccesses != 1 {
		t.Errorf("TotalSuccesses = %d, want 1", counts.TotalSuccesses)
	}
}

func TestState_UnknownService(t *testing.T) {
	m := NewManagerFromConfig(testConfig(true), zerolog.Nop())
	if state := m.State(ServiceType("imaginary")); state != "not_configured" {
		t.Errorf("State() = %q, want %q", state, "not_configured")
	}
}
