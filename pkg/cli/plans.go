package cli

import (
	"context"
	"fmt"

	"github.com/platinummonkey/laman/pkg/plans"
)

func newSeedCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "seed",
		Description: "Insert or update the plan catalog",
	}
	cmd.Flags = newFlagSet("seed", env.out())
	catalogPath := cmd.Flags.String("catalog", "", "YAML catalog file (built-in catalog when empty)")

	cmd.Run = func(ctx context.Context, args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}

		catalog := plans.DefaultCatalog()
		if *catalogPath != "" {
			var err error
			if catalog, err = plans.LoadCatalogFile(*catalogPath); err != nil {
				return err
			}
		}

		n, err := env.Seeder.Seed(ctx, catalog)
		if err != nil {
			return err
		}
		fmt.Fprintf(env.out(), "Seeded %d plans\n", n)
		return nil
	}
	return cmd
}

func newWatchCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "watch",
		Description: "Re-seed the plan catalog whenever its file changes",
	}
	cmd.Flags = newFlagSet("watch", env.out())
	catalogPath := cmd.Flags.String("catalog", "", "YAML catalog file to watch")

	cmd.Run = func(ctx context.Context, args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if *catalogPath == "" {
			return fmt.Errorf("catalog is required")
		}
		fmt.Fprintf(env.out(), "Watching %s\n", *catalogPath)
		return env.Seeder.Watch(ctx, *catalogPath)
	}
	return cmd
}

func newPlansCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "plans",
		Description: "List the active plans",
	}
	cmd.Flags = newFlagSet("plans", env.out())

	cmd.Run = func(ctx context.Context, args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}

		list, err := env.Plans.ListActive(ctx)
		if err != nil {
			return err
		}

		w := env.out()
		fmt.Fprintf(w, "%-4s %-12s %-10s %-8s %s\n", "ID", "NAME", "PRICE", "PERIOD", "LIMIT")
		for _, p := range list {
			limit := "unlimited"
			if !p.IsUnlimited() {
				limit = fmt.Sprint(*p.GenerationLimit)
			}
			fmt.Fprintf(w, "%-4d %-12s %-10s %-8s %s\n", p.ID, p.Name, p.FormattedPrice(), p.BillingPeriod, limit)
		}
		return nil
	}
	return cmd
}
