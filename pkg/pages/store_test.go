package pages

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/laman/pkg/storage/storagetest"
)

func TestPostgresStore_CRUD(t *testing.T) {
	db := storagetest.OpenSQLite(t)
	store := NewPostgresStore(db)
	userID := storagetest.InsertUser(t, db, "store@example.com")
	ctx := context.Background()

	page := &Page{
		UserID:    userID,
		Title:     "Store test",
		Prompt:    samplePrompt,
		Style:     "classic",
		Status:    StatusGenerating,
		CreatedAt: fixedNow,
		UpdatedAt: fixedNow,
	}
	require.NoError(t, store.Create(ctx, page))
	require.NotZero(t, page.ID)

	got, err := store.Get(ctx, page.ID)
	require.NoError(t, err)
	assert.Equal(t, "Store test", got.Title)
	assert.Empty(t, got.Description)
	assert.Empty(t, got.CSS)
	assert.Equal(t, StatusGenerating, got.Status)
	assert.True(t, fixedNow.Equal(got.CreatedAt))

	got.HTML = "<p>done</p>"
	got.CSS = "p {}"
	got.Description = "now described"
	got.Status = StatusCompleted
	got.Metadata = map[string]any{"keywords": []string{"bread"}}
	got.UpdatedAt = fixedNow.Add(time.Minute)
	require.NoError(t, store.Update(ctx, got))

	got, err = store.Get(ctx, page.ID)
	require.NoError(t, err)
	assert.Equal(t, "<p>done</p>", got.HTML)
	assert.Equal(t, "p {}", got.CSS)
	assert.Equal(t, "now described", got.Description)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, []any{"bread"}, got.Metadata["keywords"])

	require.NoError(t, store.Delete(ctx, page.ID))
	_, err = store.Get(ctx, page.ID)
	assert.ErrorIs(t, err, ErrPageNotFound)
}

func TestPostgresStore_MissingRows(t *testing.T) {
	db := storagetest.OpenSQLite(t)
	store := NewPostgresStore(db)
	ctx := context.Background()

	assert.ErrorIs(t, store.Update(ctx, &Page{ID: 404}), ErrPageNotFound)
	assert.ErrorIs(t, store.Delete(ctx, 404), ErrPageNotFound)

	pages, err := store.ListRecent(ctx, 1, 5)
	require.NoError(t, err)
	assert.Empty(t, pages)
}
