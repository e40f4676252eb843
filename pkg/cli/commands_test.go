package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/laman/pkg/auth"
	"github.com/platinummonkey/laman/pkg/entitlements"
	"github.com/platinummonkey/laman/pkg/observability"
	"github.com/platinummonkey/laman/pkg/plans"
	"github.com/platinummonkey/laman/pkg/storage/storagetest"
)

type mockSubscriptions struct {
	subscribeFunc func(ctx context.Context, userID, planID int64) (*entitlements.Subscription, error)
	rollOverFunc  func(ctx context.Context, mode entitlements.RolloverMode) (*entitlements.RolloverResult, error)
}

func (m *mockSubscriptions) Subscribe(ctx context.Context, userID, planID int64) (*entitlements.Subscription, error) {
	return m.subscribeFunc(ctx, userID, planID)
}

func (m *mockSubscriptions) RollOver(ctx context.Context, mode entitlements.RolloverMode) (*entitlements.RolloverResult, error) {
	return m.rollOverFunc(ctx, mode)
}

type testEnv struct {
	*Env
	out           *bytes.Buffer
	subscriptions *mockSubscriptions
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := storagetest.OpenSQLite(t)
	store := plans.NewPostgresStore(db)
	logger := observability.NewLogger(observability.DebugLevel, &bytes.Buffer{})

	te := &testEnv{out: &bytes.Buffer{}, subscriptions: &mockSubscriptions{}}
	te.Env = &Env{
		Plans:         store,
		Seeder:        plans.NewSeeder(store, logger),
		Users:         auth.NewPostgresUserStore(db),
		Tokens:        auth.NewTokenManager(auth.NewPostgresTokenStore(db)),
		Subscriptions: te.subscriptions,
		Out:           te.out,
	}
	return te
}

func (te *testEnv) run(t *testing.T, args ...string) error {
	t.Helper()
	return NewRootCommand(te.Env).Execute(context.Background(), args, te.out)
}

func TestSeedAndListPlans(t *testing.T) {
	te := newTestEnv(t)

	require.NoError(t, te.run(t, "seed"))
	assert.Contains(t, te.out.String(), "Seeded 5 plans")

	te.out.Reset()
	require.NoError(t, te.run(t, "plans"))
	output := te.out.String()
	assert.Contains(t, output, "Free")
	assert.Contains(t, output, "$0.00")
	assert.Contains(t, output, "unlimited")
}

func TestSeed_FromFile(t *testing.T) {
	te := newTestEnv(t)

	path := filepath.Join(t.TempDir(), "plans.yaml")
	catalog := `plans:
  - name: Starter
    price_cents: 500
    billing_period: monthly
    generation_limit: 10
    is_active: true
`
	require.NoError(t, os.WriteFile(path, []byte(catalog), 0o644))

	require.NoError(t, te.run(t, "seed", "-catalog", path))
	assert.Contains(t, te.out.String(), "Seeded 1 plans")

	plan, err := te.Plans.GetByName(context.Background(), "Starter")
	require.NoError(t, err)
	assert.Equal(t, 10, *plan.GenerationLimit)

	assert.Error(t, te.run(t, "seed", "-catalog", filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestWatch_RequiresCatalog(t *testing.T) {
	te := newTestEnv(t)
	assert.EqualError(t, te.run(t, "watch"), "catalog is required")
}

func TestUserCreate(t *testing.T) {
	te := newTestEnv(t)
	require.NoError(t, te.run(t, "seed"))

	var subscribed int64
	te.subscriptions.subscribeFunc = func(ctx context.Context, userID, planID int64) (*entitlements.Subscription, error) {
		subscribed = planID
		return &entitlements.Subscription{
			UserID:           userID,
			PlanID:           planID,
			CurrentPeriodEnd: time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC),
		}, nil
	}

	require.NoError(t, te.run(t, "user", "create", "-email", "Owner@Example.com", "-plan", "Pro"))
	output := te.out.String()
	assert.Contains(t, output, "(owner@example.com)")
	assert.Contains(t, output, "Subscribed to Pro until 2026-04-15")

	pro, err := te.Plans.GetByName(context.Background(), "Pro")
	require.NoError(t, err)
	assert.Equal(t, pro.ID, subscribed)

	err = te.run(t, "user", "create", "-email", "second@example.com", "-plan", "Platinum")
	assert.ErrorIs(t, err, plans.ErrPlanNotFound)

	assert.EqualError(t, te.run(t, "user", "create"), "email is required")
}

func TestTokenLifecycle(t *testing.T) {
	te := newTestEnv(t)
	require.NoError(t, te.run(t, "user", "create", "-email", "owner@example.com"))

	te.out.Reset()
	require.NoError(t, te.run(t, "token", "create", "-email", "owner@example.com", "-name", "ci", "-expires", "720h"))
	assert.Contains(t, te.out.String(), "laman_")

	te.out.Reset()
	require.NoError(t, te.run(t, "token", "list", "-email", "owner@example.com"))
	assert.Contains(t, te.out.String(), "ci")
	assert.Contains(t, te.out.String(), "active")

	require.NoError(t, te.run(t, "token", "revoke", "-email", "owner@example.com", "-id", "1"))

	te.out.Reset()
	require.NoError(t, te.run(t, "token", "list", "-email", "owner@example.com"))
	assert.Contains(t, te.out.String(), "revoked")

	err := te.run(t, "token", "revoke", "-email", "owner@example.com", "-id", "1")
	assert.ErrorIs(t, err, auth.ErrTokenNotFound)
}

func TestTokenCreate_Validation(t *testing.T) {
	te := newTestEnv(t)

	assert.EqualError(t, te.run(t, "token", "create", "-email", "owner@example.com"), "name is required")
	assert.EqualError(t, te.run(t, "token", "create", "-name", "ci"), "email is required")

	err := te.run(t, "token", "create", "-email", "nobody@example.com", "-name", "ci")
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
}

func TestRollover(t *testing.T) {
	te := newTestEnv(t)

	var gotMode entitlements.RolloverMode
	te.subscriptions.rollOverFunc = func(ctx context.Context, mode entitlements.RolloverMode) (*entitlements.RolloverResult, error) {
		gotMode = mode
		return &entitlements.RolloverResult{Mode: mode, Expired: 4}, nil
	}

	require.NoError(t, te.run(t, "rollover", "-mode", "expire"))
	assert.Equal(t, entitlements.RolloverExpire, gotMode)
	assert.Contains(t, te.out.String(), "Rollover (expire): 0 renewed, 4 expired")

	assert.Error(t, te.run(t, "rollover", "-mode", "pause"))

	te.subscriptions.rollOverFunc = func(ctx context.Context, mode entitlements.RolloverMode) (*entitlements.RolloverResult, error) {
		return nil, errors.New("connection refused")
	}
	assert.EqualError(t, te.run(t, "rollover"), "connection refused")
}
