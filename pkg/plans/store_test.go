package plans

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/laman/pkg/storage/storagetest"
)

func newTestStore(t *testing.T) *PostgresStore {
	store := NewPostgresStore(storagetest.OpenSQLite(t))
	store.now = func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) }
	return store
}

func TestPostgresStore_UpsertAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	plan := &Plan{
		Name:            "Pro",
		Description:     "For professionals",
		PriceCents:      1999,
		BillingPeriod:   BillingMonthly,
		GenerationLimit: Limit(50),
		Features:        []string{"Priority support"},
		IsActive:        true,
		SortOrder:       2,
	}
	require.NoError(t, store.Upsert(ctx, plan))
	require.NotZero(t, plan.ID)
	assert.False(t, plan.CreatedAt.IsZero())

	got, err := store.Get(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pro", got.Name)
	assert.Equal(t, "For professionals", got.Description)
	assert.Equal(t, 50, *got.GenerationLimit)
	assert.Equal(t, []string{"Priority support"}, got.Features)
	assert.True(t, got.IsActive)

	byName, err := store.GetByName(ctx, "Pro")
	require.NoError(t, err)
	assert.Equal(t, plan.ID, byName.ID)
}

func TestPostgresStore_UpsertUpdatesByName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := &Plan{Name: "Business", PriceCents: 4999, BillingPeriod: BillingMonthly, IsActive: true}
	require.NoError(t, store.Upsert(ctx, first))

	second := &Plan{Name: "Business", PriceCents: 5999, BillingPeriod: BillingMonthly, IsActive: false}
	require.NoError(t, store.Upsert(ctx, second))

	assert.Equal(t, first.ID, second.ID)

	got, err := store.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5999), got.PriceCents)
	assert.False(t, got.IsActive)
	assert.Nil(t, got.GenerationLimit)
	assert.Empty(t, got.Description)
}

func TestPostgresStore_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), 999)
	assert.ErrorIs(t, err, ErrPlanNotFound)

	_, err = store.GetByName(context.Background(), "Nope")
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestPostgresStore_ListActive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, p := range DefaultCatalog().Plans {
		p := p
		require.NoError(t, store.Upsert(ctx, &p))
	}
	retired := &Plan{Name: "Legacy", BillingPeriod: BillingMonthly, IsActive: false, SortOrder: 0}
	require.NoError(t, store.Upsert(ctx, retired))

	list, err := store.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, list, 5)

	names := make([]string, len(list))
	for i, p := range list {
		names[i] = p.Name
	}
	assert.Equal(t, []string{"Free", "Pro", "Business", "Pro Annual", "Business Annual"}, names)
}

func TestPostgresStore_UpsertValidates(t *testing.T) {
	store := newTestStore(t)
	err := store.Upsert(context.Background(), &Plan{Name: "", BillingPeriod: BillingMonthly})
	assert.ErrorContains(t, err, "plan name is required")
}
