package cli

import (
	"context"
	"fmt"
)

func newUserCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "user",
		Description: "Manage users",
		Subcommands: make(map[string]*Command),
	}
	cmd.Subcommands["create"] = newUserCreateCommand(env)
	return cmd
}

func newUserCreateCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "create",
		Description: "Create a user, optionally subscribed to a plan",
	}
	cmd.Flags = newFlagSet("user create", env.out())
	email := cmd.Flags.String("email", "", "User email")
	name := cmd.Flags.String("name", "", "Display name (defaults to the email)")
	planName := cmd.Flags.String("plan", "", "Plan to subscribe the user to")

	cmd.Run = func(ctx context.Context, args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if *email == "" {
			return fmt.Errorf("email is required")
		}

		user, err := env.Users.Create(ctx, *email, *name)
		if err != nil {
			return err
		}
		fmt.Fprintf(env.out(), "Created user %d (%s)\n", user.ID, user.Email)

		if *planName == "" {
			return nil
		}
		plan, err := env.Plans.GetByName(ctx, *planName)
		if err != nil {
			return fmt.Errorf("failed to find plan %s: %w", *planName, err)
		}
		sub, err := env.Subscriptions.Subscribe(ctx, user.ID, plan.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(env.out(), "Subscribed to %s until %s\n", plan.Name, sub.CurrentPeriodEnd.Format("2006-01-02"))
		return nil
	}
	return cmd
}
