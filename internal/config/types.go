package config

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support string based YAML decoding.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses duration values expressed as Go-style strings or numbers interpreted as seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		raw := strings.TrimSpace(value.Value)
		if raw == "" {
			d.Duration = 0
			return nil
		}
		parsed, err := time.ParseDuration(raw)
		if err == nil {
			d.Duration = parsed
			return nil
		}
		secs, convErr := time.ParseDuration(fmt.Sprintf("%ss", raw))
		if convErr == nil {
			d.Duration = secs
			return nil
		}
		return fmt.Errorf("invalid duration value %q: %w", raw, err)
	default:
		return fmt.Errorf("unsupported duration node kind: %v", value.Kind)
	}
}

// MarshalYAML renders the duration as a string to keep config edits human-friendly.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Config holds application level configuration aggregated from file and environment variables.
type Config struct {
	Server         ServerConfig         `yaml:"server"`
	Logging        LoggingConfig        `yaml:"logging"`
	Database       DatabaseConfig       `yaml:"database"`
	Redis          RedisConfig          `yaml:"redis"`
	Cache          CacheConfig          `yaml:"cache"`
	JWT            JWTConfig            `yaml:"jwt"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
	Idempotency    IdempotencyConfig    `yaml:"idempotency"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	Monitor        MonitorConfig        `yaml:"monitor"`
	Archive        ArchiveConfig        `yaml:"archive"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address            string   `yaml:"address"`
	ReadTimeout        Duration `yaml:"read_timeout"`
	WriteTimeout       Duration `yaml:"write_timeout"`
	IdleTimeout        Duration `yaml:"idle_timeout"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	RoutePrefix        string   `yaml:"route_prefix"`  // Optional prefix for all routes (e.g., "/api")
	MetricsToken       string   `yaml:"metrics_token"` // Optional bearer token to protect /metrics (leave empty to disable protection)
}

// LoggingConfig holds structured logging configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`       // debug, info, warn, error (default: info)
	Format      string `yaml:"format"`      // json, console (default: json)
	Environment string `yaml:"environment"` // production, staging, development
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	URL          string             `yaml:"url"`
	Pool         PostgresPoolConfig `yaml:"pool"`
	QueryTimeout Duration           `yaml:"query_timeout"` // Per-query deadline applied by repositories (default: 5s)
}

// PostgresPoolConfig holds PostgreSQL connection pool settings.
type PostgresPoolConfig struct {
	MaxOpenConns    int      `yaml:"max_open_conns"`    // Maximum number of open connections (default: 25)
	MaxIdleConns    int      `yaml:"max_idle_conns"`    // Maximum number of idle connections (default: 5)
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime"` // Maximum lifetime of connections (default: 5m)
}

// RedisConfig holds Redis connection configuration shared by the cache and
// the token revocation store.
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Addr renders the host:port pair for the Redis client.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// CacheConfig holds cache layer configuration. TTLs of zero fall back to
// DefaultTTL at load time.
type CacheConfig struct {
	Enabled        bool     `yaml:"enabled"`          // Use Redis-backed cache; disabled falls back to in-process memory
	DefaultTTL     Duration `yaml:"default_ttl"`      // Fallback TTL for cached values (default: 300s)
	ProductTTL     Duration `yaml:"product_ttl"`      // Single product reads (default: 1h)
	ProductListTTL Duration `yaml:"product_list_ttl"` // Full catalog listing (default: 30m)
	CartTotalTTL   Duration `yaml:"cart_total_ttl"`   // Per-user cart totals (default: 2m)
	AddressesTTL   Duration `yaml:"addresses_ttl"`    // Per-user delivery addresses (default: 10m)
	AdminReportTTL Duration `yaml:"admin_report_ttl"` // Admin sales/invoice listings (default: 10m)
}

// JWTConfig holds token engine configuration. Exactly one signing scheme is
// active: RS256 (private/public key pair) or HS256 (shared secret).
type JWTConfig struct {
	Algorithm      string   `yaml:"algorithm"`        // RS256 (default) or HS256
	Secret         string   `yaml:"secret"`           // HS256 shared secret
	PrivateKey     string   `yaml:"private_key"`      // RS256 signing key PEM (inline)
	PublicKey      string   `yaml:"public_key"`       // RS256 verification key PEM (inline)
	PrivateKeyFile string   `yaml:"private_key_file"` // Fallback path when private_key is empty (default: keys/private_key.pem)
	PublicKeyFile  string   `yaml:"public_key_file"`  // Fallback path when public_key is empty (default: keys/public_key.pem)
	AccessTTL      Duration `yaml:"access_ttl"`       // Access token lifetime (default: 900s)
	RefreshTTL     Duration `yaml:"refresh_ttl"`      // Refresh token lifetime (default: 604800s)
}

// RateLimitConfig holds rate limiting configuration.
// Provides multi-tier rate limiting to prevent spam while allowing legitimate use.
type RateLimitConfig struct {
	// Global rate limiting (across all users)
	GlobalEnabled bool     `yaml:"global_enabled"` // Enable global rate limiting
	GlobalLimit   int      `yaml:"global_limit"`   // Requests allowed per global window
	GlobalWindow  Duration `yaml:"global_window"`  // Time window for global limit

	// Per-user rate limiting (identified by the authenticated principal)
	PerUserEnabled bool     `yaml:"per_user_enabled"` // Enable per-user rate limiting
	PerUserLimit   int      `yaml:"per_user_limit"`   // Requests allowed per user per window
	PerUserWindow  Duration `yaml:"per_user_window"`  // Time window for per-user limit

	// Per-IP rate limiting (fallback when no principal is identified)
	PerIPEnabled bool     `yaml:"per_ip_enabled"` // Enable per-IP rate limiting
	PerIPLimit   int      `yaml:"per_ip_limit"`   // Requests allowed per IP per window
	PerIPWindow  Duration `yaml:"per_ip_window"`  // Time window for per-IP limit

	// Credential endpoints get a tighter per-IP budget
	LoginLimit  int      `yaml:"login_limit"`  // Requests to /users/login and /users/register per IP per window
	LoginWindow Duration `yaml:"login_window"` // Time window for the credential limit
}

// IdempotencyConfig holds replay protection configuration for checkout.
type IdempotencyConfig struct {
	Enabled bool     `yaml:"enabled"` // Honor Idempotency-Key headers on checkout (default: true)
	TTL     Duration `yaml:"ttl"`     // How long recorded responses replay (default: 24h)
}

// CircuitBreakerConfig holds circuit breaker configuration.
// Each external backend gets its own breaker so a degraded Redis, MongoDB or
// alert endpoint fails fast without dragging the others down.
type CircuitBreakerConfig struct {
	Enabled bool                 `yaml:"enabled"` // Enable circuit breakers (default: true)
	Cache   BreakerServiceConfig `yaml:"cache"`   // Redis cache circuit breaker
	Archive BreakerServiceConfig `yaml:"archive"` // MongoDB sale archive circuit breaker
	Alerts  BreakerServiceConfig `yaml:"alerts"`  // Low stock alert webhook circuit breaker
}

// BreakerServiceConfig configures a circuit breaker for a specific backend.
type BreakerServiceConfig struct {
	MaxRequests         uint32   `yaml:"max_requests"`         // Max requests in half-open state (default: 3)
	Interval            Duration `yaml:"interval"`             // Stats reset interval in closed state (default: 60s)
	Timeout             Duration `yaml:"timeout"`              // Open state timeout before half-open (default: 30s)
	ConsecutiveFailures uint32   `yaml:"consecutive_failures"` // Consecutive failures to trip (default: 5)
	FailureRatio        float64  `yaml:"failure_ratio"`        // Failure ratio to trip 0.0-1.0 (default: 0.5)
	MinRequests         uint32   `yaml:"min_requests"`         // Minimum requests before checking ratio (default: 10)
}

// MonitorConfig holds background monitoring configuration. The monitor scans
// stock levels and abandons idle carts on the same interval.
type MonitorConfig struct {
	Enabled        bool              `yaml:"enabled"`         // Enable the background monitor
	StockThreshold int               `yaml:"stock_threshold"` // Units remaining that trigger an alert (default: 5)
	CheckInterval  Duration          `yaml:"check_interval"`  // How often to run a sweep (default: 15m)
	AlertURL       string            `yaml:"alert_url"`       // Webhook URL for low stock alerts (Discord, Slack, etc.)
	Headers        map[string]string `yaml:"headers"`         // Custom headers for the alert webhook
	Timeout        Duration          `yaml:"timeout"`         // Alert request timeout (default: 5s)
	CartMaxAge     Duration          `yaml:"cart_max_age"`    // Active carts idle this long get abandoned (default: 168h, explicit 0 disables)
}

// ArchiveConfig holds completed sale archival configuration.
type ArchiveConfig struct {
	Enabled    bool   `yaml:"enabled"`    // Enable write-behind archival of completed sales
	MongoURL   string `yaml:"mongo_url"`  // MongoDB connection string
	Database   string `yaml:"database"`   // MongoDB database name (default: commerce)
	Collection string `yaml:"collection"` // MongoDB collection name (default: sales_archive)
}
