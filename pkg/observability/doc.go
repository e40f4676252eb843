// Package observability provides structured logging, Prometheus metrics,
// OpenTelemetry tracing, health checks and graceful shutdown.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("page_id", page.ID).Info("Page generated")
//
// Request-scoped logging:
//
//	observability.FromContext(r.Context()).WithError(err).Error("Generation failed")
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.GenerationsTotal.WithLabelValues("modern", "completed").Inc()
//
// # Health Checks
//
// Postgres is critical; Redis and any check added with AddCheck(name, false, fn)
// only degrade readiness.
//
//	checker := observability.NewHealthChecker(db, redisClient).
//		AddCheck("s3", false, s3Client.HealthCheck)
//	observability.RegisterHealthRoutes(healthMux, checker)
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, cfg, logger)
//	defer providers.Shutdown(ctx)
//
// # Related Packages
//
//   - pkg/config: Observability configuration
//   - pkg/middleware: Request logging middleware
package observability
