package pages

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCache(client, time.Minute), mr
}

func TestCache_SetGetDelete(t *testing.T) {
	cache, mr := setupCache(t)
	ctx := context.Background()

	page := &Page{ID: 5, UserID: 2, Title: "Cached", HTML: "<p>hi</p>", Status: StatusCompleted}
	require.NoError(t, cache.Set(ctx, page))
	assert.True(t, mr.Exists("page:5"))
	assert.Equal(t, time.Minute, mr.TTL("page:5"))

	got, err := cache.Get(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Cached", got.Title)
	assert.Equal(t, "<p>hi</p>", got.HTML)

	require.NoError(t, cache.Delete(ctx, 5))
	got, err = cache.Get(ctx, 5)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCache_ExpiresWithTTL(t *testing.T) {
	cache, mr := setupCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, &Page{ID: 9}))
	mr.FastForward(2 * time.Minute)

	got, err := cache.Get(ctx, 9)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCache_DefaultTTL(t *testing.T) {
	assert.Equal(t, DefaultCacheTTL, NewCache(nil, 0).ttl)
}

func TestCache_CorruptEntry(t *testing.T) {
	cache, mr := setupCache(t)
	require.NoError(t, mr.Set("page:1", "not json"))

	_, err := cache.Get(context.Background(), 1)
	assert.Error(t, err)
}
