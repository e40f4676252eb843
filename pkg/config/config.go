package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/laman/pkg/observability"
	"github.com/platinummonkey/laman/pkg/storage"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Storage configuration
	Storage storage.Config

	// Quota and rollover configuration
	Entitlements EntitlementsConfig

	// Authentication configuration
	Auth AuthConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string

	// Browser origins allowed to call the API; empty disables CORS
	CORSOrigins []string
}

// EntitlementsConfig holds subscription period and quota settings
type EntitlementsConfig struct {
	RolloverSchedule  string // cron expression
	RolloverMode      string // "renew" or "expire"
	GenerateRateLimit int    // requests per minute per user, 0 disables
}

// AuthConfig holds optional OIDC settings. API tokens are always accepted.
type AuthConfig struct {
	OIDCIssuer   string
	OIDCClientID string
}

// OIDCEnabled reports whether bearer ID tokens should be verified
func (a AuthConfig) OIDCEnabled() bool {
	return a.OIDCIssuer != ""
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// LoadDotEnv loads variables from the given .env files (".env" when none
// are given) without overriding the real environment. Missing files are
// ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Storage:       loadStorageConfig(),
		Entitlements:  loadEntitlementsConfig(),
		Auth:          loadAuthConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("LAMAN_HOST", "0.0.0.0"),
		Port:            getEnv("LAMAN_PORT", "8080"),
		ReadTimeout:     getEnvDuration("LAMAN_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("LAMAN_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("LAMAN_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("LAMAN_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("LAMAN_HEALTH_PORT", "9090"),
		CORSOrigins:     getEnvList("LAMAN_CORS_ORIGINS"),
	}
}

func loadStorageConfig() storage.Config {
	cfg := storage.DefaultConfig()

	// PostgreSQL config
	cfg.PostgresURL = getEnv("LAMAN_POSTGRES_URL", cfg.PostgresURL)
	cfg.PostgresReplicaURLs = getEnv("LAMAN_POSTGRES_REPLICA_URLS", cfg.PostgresReplicaURLs)
	if maxConns := getEnvInt("LAMAN_POSTGRES_MAX_CONNS", 0); maxConns > 0 {
		cfg.PostgresMaxConns = maxConns
	}
	if minConns := getEnvInt("LAMAN_POSTGRES_MIN_CONNS", 0); minConns > 0 {
		cfg.PostgresMinConns = minConns
	}
	if timeout := getEnvDuration("LAMAN_POSTGRES_TIMEOUT", 0); timeout > 0 {
		cfg.PostgresTimeout = timeout
	}

	// Redis config
	cfg.RedisURL = getEnv("LAMAN_REDIS_URL", cfg.RedisURL)
	cfg.RedisPassword = getEnv("LAMAN_REDIS_PASSWORD", cfg.RedisPassword)
	if redisDB := getEnvInt("LAMAN_REDIS_DB", -1); redisDB >= 0 {
		cfg.RedisDB = redisDB
	}
	if poolSize := getEnvInt("LAMAN_REDIS_POOL_SIZE", 0); poolSize > 0 {
		cfg.RedisPoolSize = poolSize
	}
	cfg.PageCacheTTL = getEnvDuration("LAMAN_PAGE_CACHE_TTL", cfg.PageCacheTTL)

	// S3 config
	cfg.S3Endpoint = getEnv("LAMAN_S3_ENDPOINT", cfg.S3Endpoint)
	cfg.S3Region = getEnv("LAMAN_S3_REGION", cfg.S3Region)
	cfg.S3Bucket = getEnv("LAMAN_S3_BUCKET", cfg.S3Bucket)
	cfg.S3AccessKey = getEnv("LAMAN_S3_ACCESS_KEY", cfg.S3AccessKey)
	cfg.S3SecretKey = getEnv("LAMAN_S3_SECRET_KEY", cfg.S3SecretKey)
	cfg.S3UsePathStyle = getEnvBool("LAMAN_S3_USE_PATH_STYLE", cfg.S3UsePathStyle)

	// Plan cache
	if size := getEnvInt("LAMAN_PLAN_CACHE_SIZE", 0); size > 0 {
		cfg.PlanCacheSize = size
	}

	return cfg
}

func loadEntitlementsConfig() EntitlementsConfig {
	return EntitlementsConfig{
		RolloverSchedule:  getEnv("LAMAN_ROLLOVER_SCHEDULE", "*/15 * * * *"),
		RolloverMode:      strings.ToLower(getEnv("LAMAN_ROLLOVER_MODE", "renew")),
		GenerateRateLimit: getEnvInt("LAMAN_GENERATE_RATE_LIMIT", 30),
	}
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		OIDCIssuer:   getEnv("LAMAN_OIDC_ISSUER", ""),
		OIDCClientID: getEnv("LAMAN_OIDC_CLIENT_ID", ""),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           observability.ParseLogLevel(getEnv("LAMAN_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("LAMAN_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("LAMAN_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("LAMAN_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("LAMAN_OTEL_SERVICE_NAME", "laman"),
		OTelServiceVersion: getEnv("LAMAN_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("LAMAN_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	// Validate storage config
	if c.Storage.PostgresURL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Storage.PostgresMinConns > c.Storage.PostgresMaxConns {
		return fmt.Errorf("postgres min connections (%d) exceeds max connections (%d)",
			c.Storage.PostgresMinConns, c.Storage.PostgresMaxConns)
	}
	if c.Storage.S3Enabled() && c.Storage.S3Region == "" {
		return fmt.Errorf("S3 region is required when an S3 bucket is configured")
	}

	// Validate entitlements config
	switch c.Entitlements.RolloverMode {
	case "renew", "expire":
	default:
		return fmt.Errorf("invalid rollover mode: %s (must be renew or expire)", c.Entitlements.RolloverMode)
	}
	if _, err := cron.ParseStandard(c.Entitlements.RolloverSchedule); err != nil {
		return fmt.Errorf("invalid rollover schedule %q: %w", c.Entitlements.RolloverSchedule, err)
	}
	if c.Entitlements.GenerateRateLimit < 0 {
		return fmt.Errorf("generate rate limit must not be negative")
	}

	// Validate auth config
	if c.Auth.OIDCEnabled() && c.Auth.OIDCClientID == "" {
		return fmt.Errorf("OIDC client ID is required when an OIDC issuer is configured")
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList returns a comma-separated environment variable as a list
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
