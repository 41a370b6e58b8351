package config

import (
	"net/textproto"
	"os"
	"strconv"
	"strings"
	"time"
)

// applyEnvOverrides applies environment variable overrides to the config.
// Environment variables take precedence over YAML configuration. Core
// variables (DATABASE_URL, REDIS_*, JWT_*, CACHE_DEFAULT_TIMEOUT) use bare
// names; everything operational uses the COMMERCE_ prefix.
func (c *Config) applyEnvOverrides() {
	// Server config
	setIfEnv(&c.Server.Address, "COMMERCE_SERVER_ADDRESS")
	setIfEnv(&c.Server.RoutePrefix, "COMMERCE_ROUTE_PREFIX")
	setIfEnv(&c.Server.MetricsToken, "COMMERCE_METRICS_TOKEN")

	// Normalize route prefix: ensure it starts with / and doesn't end with /
	if c.Server.RoutePrefix != "" {
		c.Server.RoutePrefix = normalizeRoutePrefix(c.Server.RoutePrefix)
	}

	// Logging config
	setIfEnv(&c.Logging.Level, "COMMERCE_LOG_LEVEL")
	setIfEnv(&c.Logging.Format, "COMMERCE_LOG_FORMAT")
	setIfEnv(&c.Logging.Environment, "COMMERCE_ENVIRONMENT")

	// Database config
	setIfEnv(&c.Database.URL, "DATABASE_URL")
	setIntIfEnv(&c.Database.Pool.MaxOpenConns, "COMMERCE_DB_MAX_OPEN_CONNS")
	setIntIfEnv(&c.Database.Pool.MaxIdleConns, "COMMERCE_DB_MAX_IDLE_CONNS")

	// Redis config
	setIfEnv(&c.Redis.Host, "REDIS_HOST")
	setIntIfEnv(&c.Redis.Port, "REDIS_PORT")
	setIfEnv(&c.Redis.Username, "REDIS_USERNAME")
	setIfEnv(&c.Redis.Password, "REDIS_PASSWORD")
	setIntIfEnv(&c.Redis.DB, "REDIS_DB")

	// Cache config
	setBoolIfEnv(&c.Cache.Enabled, "COMMERCE_CACHE_ENABLED")
	setSecondsIfEnv(&c.Cache.DefaultTTL, "CACHE_DEFAULT_TIMEOUT")
	setSecondsIfEnv(&c.Cache.ProductTTL, "COMMERCE_CACHE_PRODUCT_TTL")
	setSecondsIfEnv(&c.Cache.ProductListTTL, "COMMERCE_CACHE_PRODUCT_LIST_TTL")
	setSecondsIfEnv(&c.Cache.CartTotalTTL, "COMMERCE_CACHE_CART_TOTAL_TTL")
	setSecondsIfEnv(&c.Cache.AddressesTTL, "COMMERCE_CACHE_ADDRESSES_TTL")
	setSecondsIfEnv(&c.Cache.AdminReportTTL, "COMMERCE_CACHE_ADMIN_REPORT_TTL")

	// JWT config
	setIfEnv(&c.JWT.Algorithm, "JWT_ALGORITHM")
	setIfEnv(&c.JWT.Secret, "JWT_SECRET")
	setIfEnv(&c.JWT.PrivateKey, "JWT_PRIVATE_KEY")
	setIfEnv(&c.JWT.PublicKey, "JWT_PUBLIC_KEY")
	setIfEnv(&c.JWT.PrivateKeyFile, "JWT_PRIVATE_KEY_FILE")
	setIfEnv(&c.JWT.PublicKeyFile, "JWT_PUBLIC_KEY_FILE")
	setSecondsIfEnv(&c.JWT.AccessTTL, "JWT_ACCESS_TOKEN_EXPIRES")
	setSecondsIfEnv(&c.JWT.RefreshTTL, "JWT_REFRESH_TOKEN_EXPIRES")

	// Monitor config
	setBoolIfEnv(&c.Monitor.Enabled, "COMMERCE_MONITOR_ENABLED")
	setIntIfEnv(&c.Monitor.StockThreshold, "COMMERCE_MONITOR_STOCK_THRESHOLD")
	setDurationIfEnv(&c.Monitor.CheckInterval, "COMMERCE_MONITOR_CHECK_INTERVAL")
	setIfEnv(&c.Monitor.AlertURL, "COMMERCE_MONITOR_ALERT_URL")
	setDurationIfEnv(&c.Monitor.Timeout, "COMMERCE_MONITOR_TIMEOUT")
	setDurationIfEnv(&c.Monitor.CartMaxAge, "COMMERCE_MONITOR_CART_MAX_AGE")
	// Load monitor headers (COMMERCE_MONITOR_HEADER_*)
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, "COMMERCE_MONITOR_HEADER_") {
			continue
		}
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			continue
		}
		name := strings.TrimPrefix(parts[0], "COMMERCE_MONITOR_HEADER_")
		if name == "" {
			continue
		}
		if c.Monitor.Headers == nil {
			c.Monitor.Headers = make(map[string]string)
		}
		headerName := textproto.CanonicalMIMEHeaderKey(strings.ReplaceAll(name, "_", "-"))
		c.Monitor.Headers[headerName] = parts[1]
	}

	// Archive config
	setBoolIfEnv(&c.Archive.Enabled, "COMMERCE_ARCHIVE_ENABLED")
	setIfEnv(&c.Archive.MongoURL, "COMMERCE_ARCHIVE_MONGO_URL")
	setIfEnv(&c.Archive.Database, "COMMERCE_ARCHIVE_DATABASE")
	setIfEnv(&c.Archive.Collection, "COMMERCE_ARCHIVE_COLLECTION")

	// Idempotency config
	setBoolIfEnv(&c.Idempotency.Enabled, "COMMERCE_IDEMPOTENCY_ENABLED")
	setDurationIfEnv(&c.Idempotency.TTL, "COMMERCE_IDEMPOTENCY_TTL")
}

// setIfEnv sets a string pointer to the environment variable value if it exists.
func setIfEnv(target *string, key string) {
	if val := os.Getenv(key); val != "" {
		*target = val
	}
}

// setBoolIfEnv sets a boolean pointer from an environment variable.
// Accepts "1", "true", "TRUE", "True" as true values.
func setBoolIfEnv(target *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v == "1" || strings.EqualFold(v, "true")
	}
}

// setIntIfEnv sets an int pointer from an environment variable.
func setIntIfEnv(target *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}

// setDurationIfEnv sets a Duration pointer from an environment variable.
// Uses time.ParseDuration to parse values like "5m", "120s", "1h30m".
func setDurationIfEnv(target *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if dur, err := time.ParseDuration(v); err == nil {
			*target = Duration{Duration: dur}
		}
	}
}

// setSecondsIfEnv sets a Duration pointer from an environment variable that
// carries either a bare integer second count ("900") or a Go-style duration
// string ("15m").
func setSecondsIfEnv(target *Duration, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if secs, err := strconv.Atoi(v); err == nil {
		*target = Duration{Duration: time.Duration(secs) * time.Second}
		return
	}
	if dur, err := time.ParseDuration(v); err == nil {
		*target = Duration{Duration: dur}
	}
}

// normalizeRoutePrefix ensures the prefix starts with / and doesn't end with /.
// Examples: "api" -> "/api", "/api/" -> "/api"
func normalizeRoutePrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return ""
	}
	// Ensure it starts with /
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	// Ensure it doesn't end with /
	prefix = strings.TrimSuffix(prefix, "/")
	return prefix
}
