package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/laman/pkg/config"
	"github.com/platinummonkey/laman/pkg/entitlements"
	"github.com/platinummonkey/laman/pkg/observability"
	"github.com/platinummonkey/laman/pkg/plans"
	"github.com/platinummonkey/laman/pkg/storage"
	"github.com/platinummonkey/laman/pkg/storage/postgres"
)

var (
	runOnce     = flag.Bool("run-once", false, "Run one rollover and exit")
	rolloverRun = flag.Duration("timeout", 5*time.Minute, "Maximum duration of a single rollover")
)

func main() {
	flag.Parse()

	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)

	if err := config.LoadDotEnv(); err != nil {
		logger.WithError(err).Error("Failed to load .env")
		os.Exit(1)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Error("Invalid configuration")
		os.Exit(1)
	}
	logger = observability.NewLogger(cfg.Observability.LogLevel, os.Stdout).WithField("component", "rollover")

	mode, err := entitlements.ParseRolloverMode(cfg.Entitlements.RolloverMode)
	if err != nil {
		logger.WithError(err).Error("Invalid rollover mode")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cm, err := postgres.NewConnectionManager(ctx, postgres.ConnectionConfigFrom(cfg.Storage), logger)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to database")
		os.Exit(1)
	}
	defer cm.Close()

	if err := storage.Migrate(ctx, cm.Primary()); err != nil {
		logger.WithError(err).Error("Failed to migrate database")
		os.Exit(1)
	}

	tracker := entitlements.NewTracker(cm.Primary(), plans.NewPostgresStore(cm.Primary()), logger)

	// Run once mode (for testing or catching up after an outage)
	if *runOnce {
		if err := rollOver(ctx, tracker, mode); err != nil {
			logger.WithError(err).Error("Rollover failed")
			os.Exit(1)
		}
		return
	}

	// Scheduled mode
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err = c.AddFunc(cfg.Entitlements.RolloverSchedule, func() {
		defer observability.RecoverPanic(logger, "scheduled rollover")
		if err := rollOver(ctx, tracker, mode); err != nil {
			logger.WithError(err).Error("Scheduled rollover failed")
		}
	})
	if err != nil {
		logger.WithError(err).Error("Failed to schedule rollover")
		os.Exit(1)
	}

	c.Start()
	logger.WithFields(map[string]interface{}{
		"schedule": cfg.Entitlements.RolloverSchedule,
		"mode":     mode,
	}).Info("Laman rollover worker started")

	// Wait for termination signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutting down gracefully...")

	// Let a running rollover finish before the deferred cancel
	stopped := c.Stop()
	<-stopped.Done()

	logger.Info("Rollover worker stopped")
}

func rollOver(ctx context.Context, tracker *entitlements.Tracker, mode entitlements.RolloverMode) error {
	ctx, cancel := context.WithTimeout(ctx, *rolloverRun)
	defer cancel()

	_, err := tracker.RollOver(ctx, mode)
	return err
}
