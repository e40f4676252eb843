package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/laman/pkg/api"
	"github.com/platinummonkey/laman/pkg/auth"
	"github.com/platinummonkey/laman/pkg/config"
	"github.com/platinummonkey/laman/pkg/entitlements"
	"github.com/platinummonkey/laman/pkg/middleware"
	"github.com/platinummonkey/laman/pkg/observability"
	"github.com/platinummonkey/laman/pkg/pages"
	"github.com/platinummonkey/laman/pkg/plans"
	"github.com/platinummonkey/laman/pkg/storage"
	"github.com/platinummonkey/laman/pkg/storage/postgres"
	"github.com/platinummonkey/laman/pkg/templater"
)

const (
	planCacheTTL       = 5 * time.Minute
	dbStatsInterval    = 15 * time.Second
	replicaCheckPeriod = 30 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "laman: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	otelMetrics, err := observability.NewOTelMetrics()
	if err != nil {
		return fmt.Errorf("failed to create OpenTelemetry instruments: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	// Storage
	cm, err := postgres.NewConnectionManager(ctx, postgres.ConnectionConfigFrom(cfg.Storage), logger)
	if err != nil {
		return err
	}
	if err := storage.Migrate(ctx, cm.Primary()); err != nil {
		return err
	}
	cm.StartHealthCheckRoutine(ctx, replicaCheckPeriod)
	go observeDBStats(ctx, cm, metrics)

	var redisClient *redis.Client
	if cfg.Storage.RedisEnabled() {
		redisClient, err = postgres.NewRedisClient(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		logger.Info("Redis connected, page cache and distributed rate limiting enabled")
	}

	var s3Client *postgres.S3Client
	if cfg.Storage.S3Enabled() {
		s3Client, err = postgres.NewS3Client(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		logger.WithField("bucket", s3Client.Bucket()).Info("S3 connected, page export enabled")
	}

	// Plans and entitlements
	planStore := plans.NewCachedStore(plans.NewPostgresStore(cm.Primary()), cfg.Storage.PlanCacheSize, planCacheTTL, metrics)
	if err := seedIfEmpty(ctx, planStore, logger); err != nil {
		return err
	}
	tracker := entitlements.NewTracker(cm.Primary(), planStore, logger).WithMetrics(metrics, otelMetrics)

	// Pages
	generator := templater.NewGenerator(uint64(time.Now().UnixNano()))
	pageService := pages.NewService(cm.Primary(), pages.TrackerQuota(tracker), generator, logger).
		WithReadReplica(cm.Replica).
		WithMetrics(metrics, otelMetrics)
	if redisClient != nil {
		pageService.WithCache(pages.NewCache(redisClient, cfg.Storage.PageCacheTTL))
	}
	if s3Client != nil {
		pageService.WithExporter(pages.NewExporter(s3Client))
	}

	// Authentication
	audit := auth.NewAuditLogger(logger)
	tokens := auth.NewTokenManager(auth.NewPostgresTokenStore(cm.Primary()))
	authMiddleware := middleware.NewAuthMiddleware(tokens, false).WithAudit(audit)
	if cfg.Auth.OIDCEnabled() {
		oidcAuth, err := auth.NewOIDCAuthenticator(ctx, cfg.Auth.OIDCIssuer, cfg.Auth.OIDCClientID, auth.NewPostgresUserStore(cm.Primary()))
		if err != nil {
			return err
		}
		authMiddleware.WithOIDC(oidcAuth)
		logger.WithField("issuer", cfg.Auth.OIDCIssuer).Info("OIDC ID tokens accepted")
	}

	var rateLimit *middleware.RateLimitMiddleware
	if perMinute := cfg.Entitlements.GenerateRateLimit; perMinute > 0 {
		rlConfig := middleware.GenerationRateLimitConfig(perMinute)
		var distributed *middleware.DistributedRateLimiter
		if redisClient != nil {
			distributed = middleware.NewDistributedRateLimiter(redisClient, rlConfig, "laman:ratelimit:")
		}
		rateLimit = middleware.NewRateLimitMiddleware(rlConfig, distributed, logger).WithAudit(audit)
		rateLimit.Local().StartCleanup(ctx)
	}

	var serverMetrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		serverMetrics = metrics
	}
	server := api.NewServer(api.Options{
		Plans:         planStore,
		Subscriptions: tracker,
		Pages:         pageService,
		Tokens:        tokens,
		Auth:          authMiddleware,
		RateLimit:     rateLimit,
		Audit:         audit,
		Logger:        logger,
		Metrics:       serverMetrics,
		CORSOrigins:   cfg.Server.CORSOrigins,
	})

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	checker := observability.NewHealthChecker(cm.Primary(), redisClient).
		AddCheck("postgres_replicas", false, cm.HealthCheck)
	if s3Client != nil {
		checker.AddCheck("s3", false, s3Client.HealthCheck)
	}
	observability.RegisterHealthRoutes(healthMux, checker)
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:           healthMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout)
	shutdown.AddServer(httpServer)
	shutdown.AddServer(healthServer)
	shutdown.RegisterShutdownFunc(otelProviders.Shutdown)
	if redisClient != nil {
		shutdown.RegisterShutdownFunc(func(context.Context) error { return redisClient.Close() })
	}
	shutdown.RegisterShutdownFunc(func(context.Context) error { return cm.Close() })

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Starting laman API on %s", httpServer.Addr)
		return serve(httpServer)
	})
	g.Go(func() error {
		logger.Infof("Starting health server on %s", healthServer.Addr)
		return serve(healthServer)
	})
	g.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.WithField("signal", sig.String()).Info("Shutting down gracefully...")
		case <-gctx.Done():
			logger.Warn("server stopped unexpectedly, shutting down")
		}
		cancel()
		return shutdown.Shutdown()
	})

	return g.Wait()
}

// serve runs srv until it is shut down
func serve(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server on %s failed: %w", srv.Addr, err)
	}
	return nil
}

// seedIfEmpty installs the built-in catalog on a fresh database. Catalog
// changes on a live database go through laman-admin.
func seedIfEmpty(ctx context.Context, store plans.Store, logger *observability.Logger) error {
	active, err := store.ListActive(ctx)
	if err != nil {
		return err
	}
	if len(active) > 0 {
		return nil
	}
	_, err = plans.NewSeeder(store, logger).Seed(ctx, plans.DefaultCatalog())
	return err
}

func observeDBStats(ctx context.Context, cm *postgres.ConnectionManager, metrics *observability.Metrics) {
	ticker := time.NewTicker(dbStatsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			metrics.ObserveDBStats(cm.Primary().Stats())
		case <-ctx.Done():
			return
		}
	}
}
