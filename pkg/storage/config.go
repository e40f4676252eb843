package storage

import "time"

// Config for the persistence backends
type Config struct {
	// PostgreSQL config
	PostgresURL         string
	PostgresReplicaURLs string // comma separated
	PostgresMaxConns    int
	PostgresMinConns    int
	PostgresTimeout     time.Duration

	// Redis config (optional, enables page cache and distributed rate limiting)
	RedisURL        string
	RedisPassword   string
	RedisDB         int
	RedisMaxRetries int
	RedisPoolSize   int

	// S3 config (optional, enables page export)
	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool

	// Cache config
	PageCacheTTL  time.Duration
	PlanCacheSize int
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		PostgresMaxConns: 20,
		PostgresMinConns: 2,
		PostgresTimeout:  10 * time.Second,
		RedisDB:          0,
		RedisMaxRetries:  3,
		RedisPoolSize:    10,
		S3Region:         "us-east-1",
		PageCacheTTL:     10 * time.Minute,
		PlanCacheSize:    64,
	}
}

// RedisEnabled reports whether a Redis URL was configured
func (c Config) RedisEnabled() bool {
	return c.RedisURL != ""
}

// S3Enabled reports whether page export to S3 is configured
func (c Config) S3Enabled() bool {
	return c.S3Bucket != ""
}
