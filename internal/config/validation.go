package config

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// finalize applies defaults and validates the configuration.
func (c *Config) finalize() error {
	// Apply defaults
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Environment == "" {
		c.Logging.Environment = "production"
	}
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Database.QueryTimeout.Duration <= 0 {
		c.Database.QueryTimeout = Duration{Duration: 5 * time.Second}
	}

	// Cache TTLs fall back to the default timeout so a single knob tunes
	// everything that was not set explicitly.
	if c.Cache.DefaultTTL.Duration <= 0 {
		c.Cache.DefaultTTL = Duration{Duration: 300 * time.Second}
	}
	if c.Cache.ProductTTL.Duration <= 0 {
		c.Cache.ProductTTL = c.Cache.DefaultTTL
	}
	if c.Cache.ProductListTTL.Duration <= 0 {
		c.Cache.ProductListTTL = c.Cache.DefaultTTL
	}
	if c.Cache.CartTotalTTL.Duration <= 0 {
		c.Cache.CartTotalTTL = c.Cache.DefaultTTL
	}
	if c.Cache.AddressesTTL.Duration <= 0 {
		c.Cache.AddressesTTL = c.Cache.DefaultTTL
	}
	if c.Cache.AdminReportTTL.Duration <= 0 {
		c.Cache.AdminReportTTL = c.Cache.DefaultTTL
	}

	if c.JWT.Algorithm == "" {
		c.JWT.Algorithm = "RS256"
	}
	c.JWT.Algorithm = strings.ToUpper(strings.TrimSpace(c.JWT.Algorithm))
	if c.JWT.AccessTTL.Duration <= 0 {
		c.JWT.AccessTTL = Duration{Duration: 900 * time.Second}
	}
	if c.JWT.RefreshTTL.Duration <= 0 {
		c.JWT.RefreshTTL = Duration{Duration: 604800 * time.Second}
	}

	// RS256 key material may arrive inline or via file paths. Resolve the
	// files here so downstream consumers only ever see PEM text.
	if c.JWT.Algorithm == "RS256" {
		if c.JWT.PrivateKey == "" && c.JWT.PrivateKeyFile != "" {
			if data, err := os.ReadFile(c.JWT.PrivateKeyFile); err == nil {
				c.JWT.PrivateKey = string(data)
			}
		}
		if c.JWT.PublicKey == "" && c.JWT.PublicKeyFile != "" {
			if data, err := os.ReadFile(c.JWT.PublicKeyFile); err == nil {
				c.JWT.PublicKey = string(data)
			}
		}
	}

	if c.Monitor.StockThreshold <= 0 {
		c.Monitor.StockThreshold = 5
	}
	if c.Monitor.CheckInterval.Duration <= 0 {
		c.Monitor.CheckInterval = Duration{Duration: 15 * time.Minute}
	}
	if c.Monitor.Timeout.Duration <= 0 {
		c.Monitor.Timeout = Duration{Duration: 5 * time.Second}
	}
	if c.Monitor.Headers == nil {
		c.Monitor.Headers = make(map[string]string)
	}
	// Zero stays zero so the cart sweep can be switched off explicitly.
	if c.Monitor.CartMaxAge.Duration < 0 {
		c.Monitor.CartMaxAge = Duration{}
	}

	if c.Idempotency.TTL.Duration <= 0 {
		c.Idempotency.TTL = Duration{Duration: 24 * time.Hour}
	}
	if c.Archive.Database == "" {
		c.Archive.Database = "commerce"
	}
	if c.Archive.Collection == "" {
		c.Archive.Collection = "sales_archive"
	}

	return c.validate()
}

// validate checks that required configuration fields are set correctly.
func (c *Config) validate() error {
	var errs []string

	if c.Database.URL == "" {
		errs = append(errs, "database.url (DATABASE_URL) is required")
	}

	switch c.JWT.Algorithm {
	case "RS256":
		if c.JWT.PrivateKey == "" {
			errs = append(errs, "jwt.private_key (JWT_PRIVATE_KEY or JWT_PRIVATE_KEY_FILE) is required for RS256")
		}
		if c.JWT.PublicKey == "" {
			errs = append(errs, "jwt.public_key (JWT_PUBLIC_KEY or JWT_PUBLIC_KEY_FILE) is required for RS256")
		}
		if c.JWT.Secret != "" {
			errs = append(errs, "jwt.secret is set but algorithm is RS256; remove one to avoid ambiguity")
		}
	case "HS256":
		if c.JWT.Secret == "" {
			errs = append(errs, "jwt.secret (JWT_SECRET) is required for HS256")
		}
	default:
		errs = append(errs, fmt.Sprintf("jwt.algorithm %q is not supported (use RS256 or HS256)", c.JWT.Algorithm))
	}

	if c.JWT.AccessTTL.Duration >= c.JWT.RefreshTTL.Duration {
		errs = append(errs, "jwt.access_ttl must be shorter than jwt.refresh_ttl")
	}

	if c.Archive.Enabled && c.Archive.MongoURL == "" {
		errs = append(errs, "archive.mongo_url is required when archival is enabled")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// ApplyPostgresPoolSettings applies connection pool settings to a database connection.
// If pool config is not specified, applies sensible defaults.
func ApplyPostgresPoolSettings(db *sql.DB, pool PostgresPoolConfig) {
	maxOpen := pool.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25 // default
	}

	maxIdle := pool.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 5 // default
	}

	// Validate: maxIdle cannot exceed maxOpen
	if maxIdle > maxOpen {
		maxIdle = maxOpen
	}

	maxLifetime := pool.ConnMaxLifetime.Duration
	if maxLifetime <= 0 {
		maxLifetime = 5 * time.Minute // default
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)
}
