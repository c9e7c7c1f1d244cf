package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedStore_GetNodeServesFromCacheAfterFirstRead(t *testing.T) {
	backing := newTestStore(t)
	ctx := context.Background()

	n := &Node{Kind: KindFact, Content: "cached fact", Confidence: 0.7, Tier: TierTask}
	require.NoError(t, backing.AddNode(ctx, n))

	cached := NewCachedStore(backing, 10)

	got, err := cached.GetNode(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, n.Content, got.Content)

	stats := cached.CacheStats()
	assert.EqualValues(t, 1, stats["misses"], "first read should be a cache miss")

	got2, err := cached.GetNode(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, n.Content, got2.Content)

	stats = cached.CacheStats()
	assert.EqualValues(t, 1, stats["hits"], "second read of the same id should hit the cache")
}

func TestCachedStore_UpdateNodeInvalidatesCache(t *testing.T) {
	backing := newTestStore(t)
	ctx := context.Background()

	n := &Node{Kind: KindFact, Content: "before update", Confidence: 0.5, Tier: TierTask}
	require.NoError(t, backing.AddNode(ctx, n))

	cached := NewCachedStore(backing, 10)
	_, err := cached.GetNode(ctx, n.ID)
	require.NoError(t, err)

	n.Content = "after update"
	require.NoError(t, cached.UpdateNode(ctx, n))

	got, err := cached.GetNode(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "after update", got.Content, "cache must not serve the stale pre-update value")
}

func TestCachedStore_DeleteNodeInvalidatesCache(t *testing.T) {
	backing := newTestStore(t)
	ctx := context.Background()

	n := &Node{Kind: KindEntity, Content: "to delete"}
	require.NoError(t, backing.AddNode(ctx, n))

	cached := NewCachedStore(backing, 10)
	_, err := cached.GetNode(ctx, n.ID)
	require.NoError(t, err)

	require.NoError(t, cached.DeleteNode(ctx, n.ID))

	got, err := cached.GetNode(ctx, n.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
