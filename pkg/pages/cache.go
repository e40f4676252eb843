package pages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultCacheTTL bounds how long a cached page may lag behind the database
const DefaultCacheTTL = 10 * time.Minute

// Cache keeps rendered pages in Redis under page:{id}
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache creates a page cache; a zero ttl uses DefaultCacheTTL
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func cacheKey(id int64) string {
	return "page:" + strconv.FormatInt(id, 10)
}

// Get returns the cached page, or nil on a miss
func (c *Cache) Get(ctx context.Context, id int64) (*Page, error) {
	data, err := c.client.Get(ctx, cacheKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read page cache: %w", err)
	}

	var page Page
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("failed to decode cached page: %w", err)
	}
	return &page, nil
}

// Set stores page with the cache TTL
func (c *Cache) Set(ctx context.Context, page *Page) error {
	data, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("failed to encode page: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(page.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write page cache: %w", err)
	}
	return nil
}

// Delete drops the cached copy of page id
func (c *Cache) Delete(ctx context.Context, id int64) error {
	if err := c.client.Del(ctx, cacheKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate page cache: %w", err)
	}
	return nil
}
