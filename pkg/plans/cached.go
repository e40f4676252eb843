package plans

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/platinummonkey/laman/pkg/observability"
)

const activeListKey = "active"

// CachedStore is a read-through LRU in front of another Store. Plans change
// rarely, so entries live for ttl even when another process re-seeds; an
// Upsert through this store purges immediately.
type CachedStore struct {
	next    Store
	byID    *lru.LRU[int64, *Plan]
	byName  *lru.LRU[string, *Plan]
	lists   *lru.LRU[string, []*Plan]
	metrics *observability.Metrics
}

// NewCachedStore wraps next with caches of the given size. metrics may be nil.
func NewCachedStore(next Store, size int, ttl time.Duration, metrics *observability.Metrics) *CachedStore {
	if size <= 0 {
		size = 64
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedStore{
		next:    next,
		byID:    lru.NewLRU[int64, *Plan](size, nil, ttl),
		byName:  lru.NewLRU[string, *Plan](size, nil, ttl),
		lists:   lru.NewLRU[string, []*Plan](1, nil, ttl),
		metrics: metrics,
	}
}

// Get returns a plan by id
func (c *CachedStore) Get(ctx context.Context, id int64) (*Plan, error) {
	if plan, ok := c.byID.Get(id); ok {
		c.hit()
		return plan.Clone(), nil
	}
	c.miss()

	plan, err := c.next.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.byID.Add(id, plan.Clone())
	return plan, nil
}

// GetByName returns a plan by name
func (c *CachedStore) GetByName(ctx context.Context, name string) (*Plan, error) {
	if plan, ok := c.byName.Get(name); ok {
		c.hit()
		return plan.Clone(), nil
	}
	c.miss()

	plan, err := c.next.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	c.byName.Add(name, plan.Clone())
	return plan, nil
}

// ListActive returns the active plans
func (c *CachedStore) ListActive(ctx context.Context) ([]*Plan, error) {
	if list, ok := c.lists.Get(activeListKey); ok {
		c.hit()
		return cloneAll(list), nil
	}
	c.miss()

	list, err := c.next.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	c.lists.Add(activeListKey, cloneAll(list))
	return list, nil
}

// Upsert writes through and purges every cached entry
func (c *CachedStore) Upsert(ctx context.Context, plan *Plan) error {
	if err := c.next.Upsert(ctx, plan); err != nil {
		return err
	}
	c.Purge()
	return nil
}

// Purge drops all cached plans
func (c *CachedStore) Purge() {
	c.byID.Purge()
	c.byName.Purge()
	c.lists.Purge()
}

func (c *CachedStore) hit() {
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.WithLabelValues("plan").Inc()
	}
}

func (c *CachedStore) miss() {
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.WithLabelValues("plan").Inc()
	}
}

func cloneAll(list []*Plan) []*Plan {
	out := make([]*Plan, len(list))
	for i, p := range list {
		out[i] = p.Clone()
	}
	return out
}
