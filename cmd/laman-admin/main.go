package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/platinummonkey/laman/pkg/auth"
	"github.com/platinummonkey/laman/pkg/cli"
	"github.com/platinummonkey/laman/pkg/config"
	"github.com/platinummonkey/laman/pkg/entitlements"
	"github.com/platinummonkey/laman/pkg/observability"
	"github.com/platinummonkey/laman/pkg/plans"
	"github.com/platinummonkey/laman/pkg/storage"
	"github.com/platinummonkey/laman/pkg/storage/postgres"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	logger := observability.NewTextLogger(cfg.Observability.LogLevel, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cm, err := postgres.NewConnectionManager(ctx, postgres.ConnectionConfigFrom(cfg.Storage), logger)
	if err != nil {
		return err
	}
	defer cm.Close()

	db := cm.Primary()
	if err := storage.Migrate(ctx, db); err != nil {
		return err
	}

	planStore := plans.NewPostgresStore(db)
	root := cli.NewRootCommand(&cli.Env{
		Plans:         planStore,
		Seeder:        plans.NewSeeder(planStore, logger),
		Users:         auth.NewPostgresUserStore(db),
		Tokens:        auth.NewTokenManager(auth.NewPostgresTokenStore(db)),
		Subscriptions: entitlements.NewTracker(db, planStore, logger),
		Out:           os.Stdout,
	})
	return root.Execute(ctx, args, os.Stdout)
}
