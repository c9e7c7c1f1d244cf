package memory

import (
	"context"

	"unified-thinking/pkg/cache"
)

// CachedStore layers an in-memory LRU cache over GetNode in front of any
// Store, so that repeated lookups of the same node within a reasoning loop
// (e.g. the proof engine re-reading a lemma it just cited, or the epistemic
// verifier re-checking a claim's source node) skip the round trip to
// SQLite/Neo4j. Every mutation that can change or remove a node drops its
// cache entry once the backing store call succeeds, so a GetNode issued
// after the mutation returns reads the node from the backing store.
type CachedStore struct {
	Store
	nodes *cache.LRU[string, *Node]
}

// NewCachedStore wraps store with an LRU cache of the given size. A zero or
// negative size falls back to cache.DefaultConfig's 1000-entry, 1-hour TTL
// default.
func NewCachedStore(store Store, maxEntries int) *CachedStore {
	cfg := cache.DefaultConfig()
	if maxEntries > 0 {
		cfg.MaxEntries = maxEntries
	}
	return &CachedStore{
		Store: store,
		nodes: cache.New[string, *Node](cfg),
	}
}

var _ Store = (*CachedStore)(nil)

// GetNode serves from cache when possible, otherwise reads through to the
// backing store and populates the cache for the next lookup.
func (c *CachedStore) GetNode(ctx context.Context, id string) (*Node, error) {
	if n, ok := c.nodes.Get(id); ok {
		return n, nil
	}
	n, err := c.Store.GetNode(ctx, id)
	if err != nil {
		return nil, err
	}
	if n != nil {
		c.nodes.Set(id, n)
	}
	return n, nil
}

// UpdateNode drops the cached copy once the backing store update succeeds,
// so a later GetNode cannot observe the pre-update value.
func (c *CachedStore) UpdateNode(ctx context.Context, n *Node) error {
	if err := c.Store.UpdateNode(ctx, n); err != nil {
		return err
	}
	c.nodes.Delete(n.ID)
	return nil
}

// DeleteNode drops the cached copy once the backing store delete succeeds.
func (c *CachedStore) DeleteNode(ctx context.Context, id string) error {
	if err := c.Store.DeleteNode(ctx, id); err != nil {
		return err
	}
	c.nodes.Delete(id)
	return nil
}

// Promote changes node tiers/confidence, so every affected node's cache
// entry is dropped once the backing store confirms the promotion.
func (c *CachedStore) Promote(ctx context.Context, nodeIDs []string, reason string) ([]*Node, error) {
	promoted, err := c.Store.Promote(ctx, nodeIDs, reason)
	if err != nil {
		return nil, err
	}
	for _, id := range nodeIDs {
		c.nodes.Delete(id)
	}
	return promoted, nil
}

// Decay can silently touch any node's confidence, so rather than track
// which ones changed, a decay pass clears the whole cache.
func (c *CachedStore) Decay(ctx context.Context, factor, minConfidence float64) ([]*Node, error) {
	decayed, err := c.Store.Decay(ctx, factor, minConfidence)
	if err != nil {
		return nil, err
	}
	c.nodes.Clear()
	return decayed, nil
}

// Consolidate moves nodes between tiers in bulk; clear the cache rather than
// tracking the affected set node-by-node.
func (c *CachedStore) Consolidate(ctx context.Context, fromTier, toTier Tier) (*ConsolidationResult, error) {
	result, err := c.Store.Consolidate(ctx, fromTier, toTier)
	if err != nil {
		return nil, err
	}
	c.nodes.Clear()
	return result, nil
}

// CacheStats exposes the underlying LRU's hit/miss/eviction counters for
// diagnostics.
func (c *CachedStore) CacheStats() map[string]interface{} {
	return c.nodes.Stats()
}
