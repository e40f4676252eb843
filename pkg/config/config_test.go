package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/laman/pkg/observability"
	"github.com/platinummonkey/laman/pkg/storage"
)

// TestGetEnv tests the getEnv helper function
func TestGetEnv(t *testing.T) {
	t.Setenv("LAMAN_TEST_VAR", "custom")

	assert.Equal(t, "custom", getEnv("LAMAN_TEST_VAR", "default"))
	assert.Equal(t, "default", getEnv("LAMAN_TEST_VAR_NOT_SET", "default"))
}

// TestGetEnvBool tests the getEnvBool helper function
func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue bool
		want         bool
	}{
		{"returns true for 'true'", "true", false, true},
		{"returns true for 'TRUE'", "TRUE", false, true},
		{"returns true for '1'", "1", false, true},
		{"returns false for 'false'", "false", true, false},
		{"returns false for garbage", "yes", true, false},
		{"returns default when unset", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LAMAN_TEST_BOOL", tt.envValue)
			assert.Equal(t, tt.want, getEnvBool("LAMAN_TEST_BOOL", tt.defaultValue))
		})
	}
}

// TestGetEnvInt tests the getEnvInt helper function
func TestGetEnvInt(t *testing.T) {
	t.Setenv("LAMAN_TEST_INT", "42")
	assert.Equal(t, 42, getEnvInt("LAMAN_TEST_INT", 7))

	t.Setenv("LAMAN_TEST_INT", "forty-two")
	assert.Equal(t, 7, getEnvInt("LAMAN_TEST_INT", 7))
}

// TestGetEnvDuration tests the getEnvDuration helper function
func TestGetEnvDuration(t *testing.T) {
	t.Setenv("LAMAN_TEST_DURATION", "90s")
	assert.Equal(t, 90*time.Second, getEnvDuration("LAMAN_TEST_DURATION", time.Second))

	t.Setenv("LAMAN_TEST_DURATION", "soon")
	assert.Equal(t, time.Second, getEnvDuration("LAMAN_TEST_DURATION", time.Second))
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("LAMAN_TEST_LIST", " https://app.example.com, ,https://admin.example.com ")
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, getEnvList("LAMAN_TEST_LIST"))

	t.Setenv("LAMAN_TEST_LIST", "")
	assert.Nil(t, getEnvList("LAMAN_TEST_LIST"))
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("LAMAN_POSTGRES_URL", "postgres://localhost/laman")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "*/15 * * * *", cfg.Entitlements.RolloverSchedule)
	assert.Equal(t, "renew", cfg.Entitlements.RolloverMode)
	assert.Equal(t, 30, cfg.Entitlements.GenerateRateLimit)
	assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)
	assert.False(t, cfg.Auth.OIDCEnabled())
	assert.False(t, cfg.Storage.RedisEnabled())
	assert.Equal(t, 10*time.Minute, cfg.Storage.PageCacheTTL)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("LAMAN_POSTGRES_URL", "postgres://db/laman")
	t.Setenv("LAMAN_POSTGRES_REPLICA_URLS", "postgres://r1/laman")
	t.Setenv("LAMAN_POSTGRES_MAX_CONNS", "50")
	t.Setenv("LAMAN_REDIS_URL", "redis://cache:6379")
	t.Setenv("LAMAN_REDIS_DB", "2")
	t.Setenv("LAMAN_PAGE_CACHE_TTL", "1m")
	t.Setenv("LAMAN_S3_BUCKET", "exports")
	t.Setenv("LAMAN_S3_USE_PATH_STYLE", "true")
	t.Setenv("LAMAN_ROLLOVER_MODE", "EXPIRE")
	t.Setenv("LAMAN_GENERATE_RATE_LIMIT", "0")
	t.Setenv("LAMAN_OIDC_ISSUER", "https://accounts.example.com")
	t.Setenv("LAMAN_OIDC_CLIENT_ID", "laman")
	t.Setenv("LAMAN_LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "postgres://r1/laman", cfg.Storage.PostgresReplicaURLs)
	assert.Equal(t, 50, cfg.Storage.PostgresMaxConns)
	assert.Equal(t, 2, cfg.Storage.RedisDB)
	assert.Equal(t, time.Minute, cfg.Storage.PageCacheTTL)
	assert.True(t, cfg.Storage.S3Enabled())
	assert.True(t, cfg.Storage.S3UsePathStyle)
	assert.Equal(t, "expire", cfg.Entitlements.RolloverMode)
	assert.Equal(t, 0, cfg.Entitlements.GenerateRateLimit)
	assert.True(t, cfg.Auth.OIDCEnabled())
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
}

func TestLoadConfig_MissingPostgres(t *testing.T) {
	t.Setenv("LAMAN_POSTGRES_URL", "")

	cfg, err := LoadConfig()
	assert.Nil(t, cfg)
	assert.ErrorContains(t, err, "postgres URL is required")
}

func validConfig() *Config {
	s := storage.DefaultConfig()
	s.PostgresURL = "postgres://localhost/laman"
	return &Config{
		Server: ServerConfig{Port: "8080", HealthPort: "9090"},
		Storage: s,
		Entitlements: EntitlementsConfig{
			RolloverSchedule:  "*/15 * * * *",
			RolloverMode:      "renew",
			GenerateRateLimit: 30,
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing port", func(c *Config) { c.Server.Port = "" }, "server port is required"},
		{"same ports", func(c *Config) { c.Server.HealthPort = "8080" }, "must be different"},
		{"min exceeds max", func(c *Config) { c.Storage.PostgresMinConns = 50 }, "exceeds max connections"},
		{"s3 without region", func(c *Config) {
			c.Storage.S3Bucket = "exports"
			c.Storage.S3Region = ""
		}, "S3 region is required"},
		{"bad rollover mode", func(c *Config) { c.Entitlements.RolloverMode = "reset" }, "invalid rollover mode"},
		{"bad schedule", func(c *Config) { c.Entitlements.RolloverSchedule = "every minute" }, "invalid rollover schedule"},
		{"negative rate limit", func(c *Config) { c.Entitlements.GenerateRateLimit = -1 }, "must not be negative"},
		{"oidc without client", func(c *Config) { c.Auth.OIDCIssuer = "https://issuer" }, "OIDC client ID is required"},
		{"otel without endpoint", func(c *Config) {
			c.Observability.OTelEnabled = true
			c.Observability.OTelServiceName = "laman"
		}, "OpenTelemetry endpoint is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("LAMAN_DOTENV_ONLY=from-file\nLAMAN_DOTENV_SET=from-file\n"), 0o600))

	t.Setenv("LAMAN_DOTENV_SET", "from-env")
	t.Cleanup(func() { os.Unsetenv("LAMAN_DOTENV_ONLY") })

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))

	assert.Equal(t, "from-file", os.Getenv("LAMAN_DOTENV_ONLY"))
	assert.Equal(t, "from-env", os.Getenv("LAMAN_DOTENV_SET"))
}
