package preview

import (
	"context"
	"sync"
	"time"
)

type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]*Preview
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*Preview),
	}
}

func (c *MemoryCache) Put(_ context.Context, p *Preview) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictExpired()
	p.ExpiresAt = c.now().Add(c.ttl)
	c.entries[p.ID] = clone(p)

	return nil
}

func (c *MemoryCache) Get(_ context.Context, id string) (*Preview, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.entries[id]
	if !ok {
		return nil, ErrPreviewNotFound
	}
	if !c.now().Before(p.ExpiresAt) {
		delete(c.entries, id)

		return nil, ErrPreviewNotFound
	}

	return clone(p), nil
}

func (c *MemoryCache) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[id]; !ok {
		return ErrPreviewNotFound
	}
	delete(c.entries, id)

	return nil
}

func (c *MemoryCache) Close() error {
	return nil
}

// Len returns the number of live previews (useful for testing)
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictExpired()

	return len(c.entries)
}

// caller holds c.mu
func (c *MemoryCache) evictExpired() {
	now := c.now()
	for id, p := range c.entries {
		if !now.Before(p.ExpiresAt) {
			delete(c.entries, id)
		}
	}
}
