package cli

import (
	"context"
	"fmt"
	"time"
)

func newTokenCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "token",
		Description: "Manage API tokens",
		Subcommands: make(map[string]*Command),
	}
	cmd.Subcommands["create"] = newTokenCreateCommand(env)
	cmd.Subcommands["list"] = newTokenListCommand(env)
	cmd.Subcommands["revoke"] = newTokenRevokeCommand(env)
	return cmd
}

func newTokenCreateCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "create",
		Description: "Issue an API token for a user",
	}
	cmd.Flags = newFlagSet("token create", env.out())
	email := cmd.Flags.String("email", "", "Owner email")
	name := cmd.Flags.String("name", "", "Token name")
	expires := cmd.Flags.Duration("expires", 0, "Lifetime, e.g. 720h (never expires when zero)")

	cmd.Run = func(ctx context.Context, args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if *name == "" {
			return fmt.Errorf("name is required")
		}
		if *expires < 0 {
			return fmt.Errorf("expires must not be negative")
		}

		user, err := lookupUser(ctx, env.Users, *email)
		if err != nil {
			return err
		}

		var expiresAt *time.Time
		if *expires > 0 {
			at := time.Now().Add(*expires)
			expiresAt = &at
		}

		token, raw, err := env.Tokens.CreateToken(ctx, user.ID, *name, expiresAt)
		if err != nil {
			return err
		}
		fmt.Fprintf(env.out(), "Created token %d for %s\n", token.ID, user.Email)
		fmt.Fprintf(env.out(), "%s\n", raw)
		fmt.Fprintf(env.out(), "Store it now, it will not be shown again.\n")
		return nil
	}
	return cmd
}

func newTokenListCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "list",
		Description: "List a user's API tokens",
	}
	cmd.Flags = newFlagSet("token list", env.out())
	email := cmd.Flags.String("email", "", "Owner email")

	cmd.Run = func(ctx context.Context, args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}

		user, err := lookupUser(ctx, env.Users, *email)
		if err != nil {
			return err
		}
		tokens, err := env.Tokens.ListUserTokens(ctx, user.ID)
		if err != nil {
			return err
		}

		w := env.out()
		fmt.Fprintf(w, "%-4s %-20s %-12s %s\n", "ID", "NAME", "PREFIX", "STATE")
		for _, t := range tokens {
			state := "active"
			switch {
			case t.RevokedAt != nil:
				state = "revoked"
			case t.ExpiresAt != nil && time.Now().After(*t.ExpiresAt):
				state = "expired"
			}
			fmt.Fprintf(w, "%-4d %-20s %-12s %s\n", t.ID, t.Name, t.TokenPrefix, state)
		}
		return nil
	}
	return cmd
}

func newTokenRevokeCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "revoke",
		Description: "Revoke an API token",
	}
	cmd.Flags = newFlagSet("token revoke", env.out())
	email := cmd.Flags.String("email", "", "Owner email")
	id := cmd.Flags.Int64("id", 0, "Token id")

	cmd.Run = func(ctx context.Context, args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if *id <= 0 {
			return fmt.Errorf("id is required")
		}

		user, err := lookupUser(ctx, env.Users, *email)
		if err != nil {
			return err
		}
		if err := env.Tokens.RevokeToken(ctx, user.ID, *id); err != nil {
			return err
		}
		fmt.Fprintf(env.out(), "Revoked token %d\n", *id)
		return nil
	}
	return cmd
}
