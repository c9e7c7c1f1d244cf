package memory

import (
	"context"
	"fmt"

	chromem "github.com/philippgille/chromem-go"
)

// EmbeddingIndex layers semantic nearest-neighbor search over a Store using
// chromem-go, so that components (e.g. the proof engine's "similar past
// attempts" lookup) can find nodes by meaning rather than exact token
// match — a second retrieval path alongside SearchContent's full-text
// index.
type EmbeddingIndex struct {
	store      Store
	db         *chromem.DB
	collection *chromem.Collection
}

// NewEmbeddingIndex wraps store with an in-memory chromem-go collection.
// The collection stores pre-computed embeddings only (embeddingFunc is nil)
// since callers provide vectors already attached to the Node.
func NewEmbeddingIndex(store Store) (*EmbeddingIndex, error) {
	db := chromem.NewDB()
	col, err := db.CreateCollection("memory_nodes", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("embedding index: create collection: %w", err)
	}
	return &EmbeddingIndex{store: store, db: db, collection: col}, nil
}

// Index adds or refreshes a node's vector in the similarity index. Nodes
// without an embedding are skipped.
func (idx *EmbeddingIndex) Index(ctx context.Context, n *Node) error {
	if len(n.Embedding) == 0 {
		return nil
	}
	vec := make([]float32, len(n.Embedding))
	copy(vec, n.Embedding)
	return idx.collection.AddDocument(ctx, chromem.Document{
		ID:        n.ID,
		Content:   n.Content,
		Embedding: vec,
		Metadata:  map[string]string{"node_type": string(n.Kind), "subtype": n.Subtype},
	})
}

// SearchByEmbedding returns the k nodes whose indexed embedding is closest
// (cosine similarity) to query, hydrated from the backing store.
func (idx *EmbeddingIndex) SearchByEmbedding(ctx context.Context, query []float32, k int) ([]*Node, error) {
	if k <= 0 {
		k = 10
	}
	count := idx.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}
	results, err := idx.collection.QueryEmbedding(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("embedding index: query: %w", err)
	}

	out := make([]*Node, 0, len(results))
	for _, r := range results {
		n, err := idx.store.GetNode(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		if n != nil {
			out = append(out, n)
		}
	}
	return out, nil
}

// Remove drops a node from the similarity index (called alongside
// Store.DeleteNode so the index never points at a gone node).
func (idx *EmbeddingIndex) Remove(ctx context.Context, nodeID string) error {
	return idx.collection.Delete(ctx, nil, nil, nodeID)
}
