package cli

import (
	"context"
	"fmt"

	"github.com/platinummonkey/laman/pkg/entitlements"
)

func newRolloverCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "rollover",
		Description: "Roll lapsed subscription periods over once",
	}
	cmd.Flags = newFlagSet("rollover", env.out())
	mode := cmd.Flags.String("mode", string(entitlements.RolloverRenew), "renew or expire")

	cmd.Run = func(ctx context.Context, args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		m, err := entitlements.ParseRolloverMode(*mode)
		if err != nil {
			return err
		}

		result, err := env.Subscriptions.RollOver(ctx, m)
		if err != nil {
			return err
		}
		fmt.Fprintf(env.out(), "Rollover (%s): %d renewed, %d expired\n", result.Mode, result.Renewed, result.Expired)
		return nil
	}
	return cmd
}
