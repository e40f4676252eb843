package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/platinummonkey/laman/pkg/auth"
	"github.com/platinummonkey/laman/pkg/entitlements"
	"github.com/platinummonkey/laman/pkg/plans"
)

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Run         func(ctx context.Context, args []string) error
	Subcommands map[string]*Command
	Flags       *flag.FlagSet
}

// UserStore creates and finds users
type UserStore interface {
	Create(ctx context.Context, email, name string) (*auth.User, error)
	GetByEmail(ctx context.Context, email string) (*auth.User, error)
}

// TokenService manages API tokens
type TokenService interface {
	CreateToken(ctx context.Context, userID int64, name string, expiresAt *time.Time) (*auth.APIToken, string, error)
	ListUserTokens(ctx context.Context, userID int64) ([]*auth.APIToken, error)
	RevokeToken(ctx context.Context, userID, tokenID int64) error
}

// Subscriptions assigns plans and rolls billing periods over
type Subscriptions interface {
	Subscribe(ctx context.Context, userID, planID int64) (*entitlements.Subscription, error)
	RollOver(ctx context.Context, mode entitlements.RolloverMode) (*entitlements.RolloverResult, error)
}

// Env is what the admin commands operate on
type Env struct {
	Plans         plans.Store
	Seeder        *plans.Seeder
	Users         UserStore
	Tokens        TokenService
	Subscriptions Subscriptions
	Out           io.Writer
}

func (e *Env) out() io.Writer {
	if e.Out == nil {
		return os.Stdout
	}
	return e.Out
}

// NewRootCommand creates the root command
func NewRootCommand(env *Env) *Command {
	root := &Command{
		Name:        "laman-admin",
		Description: "Laman - page generator administration",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("laman-admin", flag.ContinueOnError),
	}

	root.Subcommands["seed"] = newSeedCommand(env)
	root.Subcommands["watch"] = newWatchCommand(env)
	root.Subcommands["plans"] = newPlansCommand(env)
	root.Subcommands["user"] = newUserCommand(env)
	root.Subcommands["token"] = newTokenCommand(env)
	root.Subcommands["rollover"] = newRolloverCommand(env)

	return root
}

// Execute dispatches args to the matching subcommand
func (c *Command) Execute(ctx context.Context, args []string, w io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" {
		return c.usage(w)
	}

	if subcmd, ok := c.Subcommands[args[0]]; ok {
		if len(subcmd.Subcommands) > 0 {
			return subcmd.Execute(ctx, args[1:], w)
		}
		return subcmd.Run(ctx, args[1:])
	}

	return fmt.Errorf("unknown command: %s", args[0])
}

// usage prints the command usage
func (c *Command) usage(w io.Writer) error {
	fmt.Fprintf(w, "Usage: %s <command> [args]\n\n", c.Name)
	fmt.Fprintf(w, "Commands:\n")

	names := make([]string, 0, len(c.Subcommands))
	for name := range c.Subcommands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-15s %s\n", name, c.Subcommands[name].Description)
	}
	return nil
}

func newFlagSet(name string, w io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(w)
	return fs
}

// lookupUser resolves the -email flag shared by user and token commands
func lookupUser(ctx context.Context, users UserStore, email string) (*auth.User, error) {
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	user, err := users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user %s: %w", email, err)
	}
	return user, nil
}
