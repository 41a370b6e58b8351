package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		if err := cfg.parseFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.finalize(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:      ":8080",
			ReadTimeout:  Duration{Duration: 15 * time.Second},
			WriteTimeout: Duration{Duration: 15 * time.Second},
			IdleTimeout:  Duration{Duration: 60 * time.Second},
		},
		Database: DatabaseConfig{
			QueryTimeout: Duration{Duration: 5 * time.Second},
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
		},
		Cache: CacheConfig{
			Enabled:        true,
			DefaultTTL:     Duration{Duration: 300 * time.Second},
			ProductTTL:     Duration{Duration: 1 * time.Hour},
			ProductListTTL: Duration{Duration: 30 * time.Minute},
			CartTotalTTL:   Duration{Duration: 2 * time.Minute},
			AddressesTTL:   Duration{Duration: 10 * time.Minute},
			AdminReportTTL: Duration{Duration: 10 * time.Minute},
		},
		JWT: JWTConfig{
			Algorithm:      "RS256",
			PrivateKeyFile: "keys/private_key.pem",
			PublicKeyFile:  "keys/public_key.pem",
			AccessTTL:      Duration{Duration: 900 * time.Second},
			RefreshTTL:     Duration{Duration: 604800 * time.Second},
		},
		RateLimit: RateLimitConfig{
			// Generous limits - designed to prevent spam, not restrict legitimate use
			GlobalEnabled:  true,
			GlobalLimit:    1000,
			GlobalWindow:   Duration{Duration: 1 * time.Minute},
			PerUserEnabled: true,
			PerUserLimit:   120,
			PerUserWindow:  Duration{Duration: 1 * time.Minute},
			PerIPEnabled:   true,
			PerIPLimit:     120,
			PerIPWindow:    Duration{Duration: 1 * time.Minute},
			LoginLimit:     10,
			LoginWindow:    Duration{Duration: 1 * time.Minute},
		},
		Idempotency: IdempotencyConfig{
			Enabled: true,
			TTL:     Duration{Duration: 24 * time.Hour},
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled: true,
			Cache: BreakerServiceConfig{
				MaxRequests:         3,
				Interval:            Duration{Duration: 60 * time.Second},
				Timeout:             Duration{Duration: 30 * time.Second},
				ConsecutiveFailures: 5,
				FailureRatio:        0.5,
				MinRequests:         10,
			},
			Archive: BreakerServiceConfig{
				MaxRequests:         3,
				Interval:            Duration{Duration: 60 * time.Second},
				Timeout:             Duration{Duration: 30 * time.Second},
				ConsecutiveFailures: 5,
				FailureRatio:        0.5,
				MinRequests:         10,
			},
			Alerts: BreakerServiceConfig{
				MaxRequests:         5,
				Interval:            Duration{Duration: 60 * time.Second},
				Timeout:             Duration{Duration: 60 * time.Second}, // Alert endpoints recover slowly
				ConsecutiveFailures: 10,                                   // More tolerant for webhooks
				FailureRatio:        0.7,
				MinRequests:         20,
			},
		},
		Monitor: MonitorConfig{
			StockThreshold: 5,
			CheckInterval:  Duration{Duration: 15 * time.Minute},
			Headers:        make(map[string]string),
			Timeout:        Duration{Duration: 5 * time.Second},
			CartMaxAge:     Duration{Duration: 168 * time.Hour},
		},
		Archive: ArchiveConfig{
			Database:   "commerce",
			Collection: "sales_archive",
		},
	}
}

// parseFile reads and unmarshals a YAML configuration file.
func (c *Config) parseFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}
	return nil
}
