// Package ratelimit wraps httprate limiters around the API. Requests are
// budgeted globally, per authenticated user and per IP, with a tighter
// budget on the credential endpoints.
package ratelimit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/lggm33/DUAD/internal/auth"
	"github.com/lggm33/DUAD/internal/config"
	"github.com/lggm33/DUAD/internal/metrics"
)

// Config holds rate limiting configuration.
type Config struct {
	// Global rate limiting (across all clients)
	GlobalEnabled bool
	GlobalLimit   int           // requests per window
	GlobalWindow  time.Duration // time window

	// Per-user rate limiting (identified by the authenticated principal)
	PerUserEnabled bool
	PerUserLimit   int
	PerUserWindow  time.Duration

	// Per-IP rate limiting (fallback when no principal is identified)
	PerIPEnabled bool
	PerIPLimit   int
	PerIPWindow  time.Duration

	// Credential endpoints get a tighter per-IP budget
	LoginLimit  int
	LoginWindow time.Duration

	// Metrics collector (optional)
	Metrics *metrics.Metrics
}

// rateLimitResponse is the JSON error body for a rejected request.
type rateLimitResponse struct {
	Error             string `json:"error"`
	Message           string `json:"message"`
	RetryAfterSeconds int    `json:"retry_after_seconds"`
}

// DefaultConfig returns generous limits that stop obvious spam without
// restricting legitimate use.
func DefaultConfig() Config {
	return Config{
		// Global: 1000 req/min (16.6 req/sec)
		GlobalEnabled: true,
		GlobalLimit:   1000,
		GlobalWindow:  1 * time.Minute,

		// Per-user: 120 req/min (2 req/sec avg)
		PerUserEnabled: true,
		PerUserLimit:   120,
		PerUserWindow:  1 * time.Minute,

		// Per-IP: 120 req/min, the fallback for anonymous requests
		PerIPEnabled: true,
		PerIPLimit:   120,
		PerIPWindow:  1 * time.Minute,

		// Credential endpoints: 10 req/min per IP
		LoginLimit:  10,
		LoginWindow: 1 * time.Minute,
	}
}

// FromConfig maps application settings onto a limiter Config.
func FromConfig(rc config.RateLimitConfig, m *metrics.Metrics) Config {
	return Config{
		GlobalEnabled:  rc.GlobalEnabled,
		GlobalLimit:    rc.GlobalLimit,
		GlobalWindow:   rc.GlobalWindow.Duration,
		PerUserEnabled: rc.PerUserEnabled,
		PerUserLimit:   rc.PerUserLimit,
		PerUserWindow:  rc.PerUserWindow.Duration,
		PerIPEnabled:   rc.PerIPEnabled,
		PerIPLimit:     rc.PerIPLimit,
		PerIPWindow:    rc.PerIPWindow.Duration,
		LoginLimit:     rc.LoginLimit,
		LoginWindow:    rc.LoginWindow.Duration,
		Metrics:        m,
	}
}

// createLimitHandler builds the shared 429 handler for one limiter tier.
func createLimitHandler(
	limitType string,
	windowSeconds int,
	extractIdentifier func(*http.Request) string,
	metricsCollector *metrics.Metrics,
) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		identifier := "all"
		if extractIdentifier != nil {
			if id := extractIdentifier(r); id != "" {
				identifier = id
			}
		}

		if metricsCollector != nil {
			metricsCollector.ObserveRateLimit(limitType, identifier)
		}

		var message string
		switch limitType {
		case "global":
			message = "Global rate limit exceeded. Please try again later."
		case "per_ip":
			message = "IP rate limit exceeded. Please try again later."
		case "login":
			message = "Too many authentication attempts. Please try again later."
		default:
			message = "Rate limit exceeded. Please try again later."
		}

		response := rateLimitResponse{
			Error:             "rate_limit_exceeded",
			Message:           message,
			RetryAfterSeconds: windowSeconds,
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", fmt.Sprintf("%d", windowSeconds))
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(response)
	}
}

// passthrough returns the middleware identity for disabled limiters.
func passthrough() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return next
	}
}

// GlobalLimiter budgets all requests together.
func GlobalLimiter(cfg Config) func(http.Handler) http.Handler {
	if !cfg.GlobalEnabled {
		return passthrough()
	}

	return httprate.Limit(
		cfg.GlobalLimit,
		cfg.GlobalWindow,
		httprate.WithLimitHandler(
			createLimitHandler(
				"global",
				int(cfg.GlobalWindow.Seconds()),
				nil, // No identifier for the global limiter
				cfg.Metrics,
			),
		),
	)
}

// UserLimiter budgets requests per authenticated principal. Requests without
// a principal fall back to their client IP.
func UserLimiter(cfg Config) func(http.Handler) http.Handler {
	if !cfg.PerUserEnabled {
		return passthrough()
	}

	return httprate.Limit(
		cfg.PerUserLimit,
		cfg.PerUserWindow,
		httprate.WithKeyFuncs(userKeyExtractor),
		httprate.WithLimitHandler(
			createLimitHandler(
				"per_user",
				int(cfg.PerUserWindow.Seconds()),
				extractUserFromRequest,
				cfg.Metrics,
			),
		),
	)
}

// IPLimiter budgets requests per client IP.
func IPLimiter(cfg Config) func(http.Handler) http.Handler {
	if !cfg.PerIPEnabled {
		return passthrough()
	}

	return httprate.Limit(
		cfg.PerIPLimit,
		cfg.PerIPWindow,
		httprate.WithKeyByIP(),
		httprate.WithLimitHandler(
			createLimitHandler(
				"per_ip",
				int(cfg.PerIPWindow.Seconds()),
				func(r *http.Request) string { return r.RemoteAddr },
				cfg.Metrics,
			),
		),
	)
}

// LoginLimiter budgets credential endpoints per client IP. Registration and
// login see far fewer legitimate requests than the rest of the API, so they
// get a much smaller window.
func LoginLimiter(cfg Config) func(http.Handler) http.Handler {
	if cfg.LoginLimit <= 0 {
		return passthrough()
	}

	return httprate.Limit(
		cfg.LoginLimit,
		cfg.LoginWindow,
		httprate.WithKeyByIP(),
		httprate.WithLimitHandler(
			createLimitHandler(
				"login",
				int(cfg.LoginWindow.Seconds()),
				func(r *http.Request) string { return r.RemoteAddr },
				cfg.Metrics,
			),
		),
	)
}

// userKeyExtractor keys the per-user limiter by principal, or by IP for
// requests admitted without one.
func userKeyExtractor(r *http.Request) (string, error) {
	if p, ok := auth.PrincipalFromContext(r.Context()); ok {
		return "user:" + strconv.FormatInt(p.UserID, 10), nil
	}
	return httprate.KeyByIP(r)
}

// extractUserFromRequest labels rate limit metrics with the principal.
func extractUserFromRequest(r *http.Request) string {
	if p, ok := auth.PrincipalFromContext(r.Context()); ok {
		return strconv.FormatInt(p.UserID, 10)
	}
	return ""
}
