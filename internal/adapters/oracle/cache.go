package oracle

import (
	"context"
	"sync"
	"time"

	"github.com/0xWizop/cypherx-engine/internal/ports"
)

// Cache wraps a PriceOracle with a TTL'd per-token price cache. It is an
// explicit, injected object: callers that need fresh prices invalidate the
// entry instead of reaching around a process-wide map.
//
// Zero prices are never cached — an unavailable feed should be retried on
// the next lookup, not remembered.
type Cache struct {
	upstream ports.PriceOracle
	ttl      time.Duration

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	price     float64
	fetchedAt time.Time
}

// NewCache wraps upstream with the given TTL.
func NewCache(upstream ports.PriceOracle, ttl time.Duration) *Cache {
	return &Cache{
		upstream: upstream,
		ttl:      ttl,
		entries:  make(map[string]cacheEntry),
	}
}

// GetPrice returns the cached price when fresh, otherwise asks upstream.
func (c *Cache) GetPrice(ctx context.Context, tokenAddress string) (float64, error) {
	c.mu.RLock()
	e, ok := c.entries[tokenAddress]
	c.mu.RUnlock()
	if ok && time.Since(e.fetchedAt) < c.ttl {
		return e.price, nil
	}

	price, err := c.upstream.GetPrice(ctx, tokenAddress)
	if err != nil {
		return 0, err
	}
	if price > 0 {
		c.mu.Lock()
		c.entries[tokenAddress] = cacheEntry{price: price, fetchedAt: time.Now()}
		c.mu.Unlock()
	}
	return price, nil
}

// Invalidate drops a single token's cached price.
func (c *Cache) Invalidate(tokenAddress string) {
	c.mu.Lock()
	delete(c.entries, tokenAddress)
	c.mu.Unlock()
}

// InvalidateAll drops every cached price.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}
