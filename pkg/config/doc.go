// Package config loads laman's configuration from environment variables,
// optionally seeded from a .env file, and validates it.
//
// Server settings:
//
//	LAMAN_HOST="0.0.0.0"
//	LAMAN_PORT="8080"
//	LAMAN_HEALTH_PORT="9090"
//	LAMAN_SHUTDOWN_TIMEOUT="30s"
//
// Storage settings:
//
//	LAMAN_POSTGRES_URL="postgres://localhost/laman?sslmode=disable"
//	LAMAN_POSTGRES_REPLICA_URLS="postgres://replica1/laman,postgres://replica2/laman"
//	LAMAN_REDIS_URL="redis://localhost:6379"   # enables page cache and rate limiting
//	LAMAN_PAGE_CACHE_TTL="10m"
//	LAMAN_S3_BUCKET="laman-exports"            # enables page export
//	LAMAN_S3_ENDPOINT="http://localhost:9000"
//
// Quota settings:
//
//	LAMAN_ROLLOVER_SCHEDULE="*/15 * * * *"
//	LAMAN_ROLLOVER_MODE="renew"                # renew or expire
//	LAMAN_GENERATE_RATE_LIMIT="30"             # per user per minute
//
// Observability settings:
//
//	LAMAN_LOG_LEVEL="info"
//	LAMAN_OTEL_ENABLED="true"
//	LAMAN_OTEL_ENDPOINT="otel-collector:4317"
//
// Usage:
//
//	if err := config.LoadDotEnv(); err != nil {
//		log.Fatal(err)
//	}
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
package config
