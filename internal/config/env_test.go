package config

import (
	"os"
	"testing"
	"time"
)

func TestEnvOverrides_ServerConfig(t *testing.T) {
	defer os.Clearenv()

	tests := []struct {
		name      string
		envVars   map[string]string
		checkFunc func(*testing.T, *Config)
	}{
		{
			name: "COMMERCE_SERVER_ADDRESS overrides default",
			envVars: map[string]string{
				"COMMERCE_SERVER_ADDRESS": ":3000",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.Server.Address != ":3000" {
					t.Errorf("Expected :3000, got %s", cfg.Server.Address)
				}
			},
		},
		{
			name: "COMMERCE_ROUTE_PREFIX override",
			envVars: map[string]string{
				"COMMERCE_ROUTE_PREFIX": "api",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.Server.RoutePrefix != "/api" {
					t.Errorf("Expected /api, got %s", cfg.Server.RoutePrefix)
				}
			},
		},
		{
			name: "COMMERCE_METRICS_TOKEN override",
			envVars: map[string]string{
				"COMMERCE_METRICS_TOKEN": "sekrit",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.Server.MetricsToken != "sekrit" {
					t.Errorf("Expected sekrit, got %s", cfg.Server.MetricsToken)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg := defaultConfig()
			cfg.applyEnvOverrides()
			tt.checkFunc(t, cfg)
		})
	}
}

func TestEnvOverrides_RedisConfig(t *testing.T) {
	defer os.Clearenv()

	os.Clearenv()
	os.Setenv("REDIS_HOST", "cache.internal")
	os.Setenv("REDIS_PORT", "6380")
	os.Setenv("REDIS_USERNAME", "app")
	os.Setenv("REDIS_PASSWORD", "hunter2")

	cfg := defaultConfig()
	cfg.applyEnvOverrides()

	if cfg.Redis.Host != "cache.internal" {
		t.Errorf("Expected cache.internal, got %s", cfg.Redis.Host)
	}
	if cfg.Redis.Port != 6380 {
		t.Errorf("Expected 6380, got %d", cfg.Redis.Port)
	}
	if cfg.Redis.Addr() != "cache.internal:6380" {
		t.Errorf("Expected cache.internal:6380, got %s", cfg.Redis.Addr())
	}
	if cfg.Redis.Username != "app" || cfg.Redis.Password != "hunter2" {
		t.Errorf("Expected credentials to be applied, got %s/%s", cfg.Redis.Username, cfg.Redis.Password)
	}
}

func TestEnvOverrides_JWTConfig(t *testing.T) {
	defer os.Clearenv()

	tests := []struct {
		name      string
		envVars   map[string]string
		checkFunc func(*testing.T, *Config)
	}{
		{
			name: "JWT_ALGORITHM override",
			envVars: map[string]string{
				"JWT_ALGORITHM": "HS256",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.JWT.Algorithm != "HS256" {
					t.Errorf("Expected HS256, got %s", cfg.JWT.Algorithm)
				}
			},
		},
		{
			name: "JWT_ACCESS_TOKEN_EXPIRES as bare seconds",
			envVars: map[string]string{
				"JWT_ACCESS_TOKEN_EXPIRES": "600",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.JWT.AccessTTL.Duration != 600*time.Second {
					t.Errorf("Expected 600s, got %v", cfg.JWT.AccessTTL.Duration)
				}
			},
		},
		{
			name: "JWT_REFRESH_TOKEN_EXPIRES as duration string",
			envVars: map[string]string{
				"JWT_REFRESH_TOKEN_EXPIRES": "72h",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.JWT.RefreshTTL.Duration != 72*time.Hour {
					t.Errorf("Expected 72h, got %v", cfg.JWT.RefreshTTL.Duration)
				}
			},
		},
		{
			name: "JWT_SECRET override",
			envVars: map[string]string{
				"JWT_SECRET": "super-secret",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.JWT.Secret != "super-secret" {
					t.Errorf("Expected super-secret, got %s", cfg.JWT.Secret)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg := defaultConfig()
			cfg.applyEnvOverrides()
			tt.checkFunc(t, cfg)
		})
	}
}

func TestEnvOverrides_CacheConfig(t *testing.T) {
	defer os.Clearenv()

	os.Clearenv()
	os.Setenv("CACHE_DEFAULT_TIMEOUT", "120")
	os.Setenv("COMMERCE_CACHE_PRODUCT_TTL", "45m")
	os.Setenv("COMMERCE_CACHE_ENABLED", "false")

	cfg := defaultConfig()
	cfg.applyEnvOverrides()

	if cfg.Cache.DefaultTTL.Duration != 120*time.Second {
		t.Errorf("Expected 120s default TTL, got %v", cfg.Cache.DefaultTTL.Duration)
	}
	if cfg.Cache.ProductTTL.Duration != 45*time.Minute {
		t.Errorf("Expected 45m product TTL, got %v", cfg.Cache.ProductTTL.Duration)
	}
	if cfg.Cache.Enabled {
		t.Error("Expected cache disabled")
	}
}

func TestEnvOverrides_MonitorHeaders(t *testing.T) {
	defer os.Clearenv()

	os.Clearenv()
	os.Setenv("COMMERCE_MONITOR_HEADER_AUTHORIZATION", "Bearer tok")
	os.Setenv("COMMERCE_MONITOR_HEADER_X_CUSTOM_TAG", "stock")

	cfg := defaultConfig()
	cfg.applyEnvOverrides()

	if got := cfg.Monitor.Headers["Authorization"]; got != "Bearer tok" {
		t.Errorf("Expected Authorization header, got %q", got)
	}
	if got := cfg.Monitor.Headers["X-Custom-Tag"]; got != "stock" {
		t.Errorf("Expected X-Custom-Tag header, got %q", got)
	}
}

func TestSetSecondsIfEnv_InvalidValueIgnored(t *testing.T) {
	defer os.Clearenv()

	os.Clearenv()
	os.Setenv("JWT_ACCESS_TOKEN_EXPIRES", "not-a-number")

	cfg := defaultConfig()
	cfg.applyEnvOverrides()

	if cfg.JWT.AccessTTL.Duration != 900*time.Second {
		t.Errorf("Expected default 900s when value is invalid, got %v", cfg.JWT.AccessTTL.Duration)
	}
}
