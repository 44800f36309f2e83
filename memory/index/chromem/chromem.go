// Package chromem adapts chromem-go, an embedded pure-Go vector database,
// to the memory.VectorIndex contract. It is an alternative to the default
// flat index for callers that already operate chromem collections.
package chromem

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	chromemgo "github.com/philippgille/chromem-go"

	"github.com/becomeliminal/recall/memory"
)

// Index stores vectors in a single chromem collection keyed by content
// hash. Embeddings are always supplied by the caller, so the collection is
// created without an embedding function.
type Index struct {
	mu  sync.Mutex
	db  *chromemgo.DB
	col *chromemgo.Collection
}

var _ memory.VectorIndex = (*Index)(nil)

// New creates an in-memory chromem collection.
func New() (*Index, error) {
	db := chromemgo.NewDB()
	col, err := db.CreateCollection("recall", nil, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create chromem collection")
	}
	return &Index{db: db, col: col}, nil
}

// Insert adds or overwrites the vector for a hash. chromem keys documents
// by ID, so re-adding the same hash replaces the previous document.
func (ix *Index) Insert(ctx context.Context, hash string, vec []float32) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	err := ix.col.AddDocument(ctx, chromemgo.Document{
		ID:        hash,
		Content:   hash,
		Embedding: vec,
	})
	if err != nil {
		return goerr.Wrap(err, "failed to add document", goerr.V("content_hash", hash))
	}
	return nil
}

// Remove deletes the document for a hash; absent hashes are a no-op.
func (ix *Index) Remove(ctx context.Context, hash string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.col.Count() == 0 {
		return nil
	}
	if err := ix.col.Delete(ctx, nil, nil, hash); err != nil {
		return goerr.Wrap(err, "failed to delete document", goerr.V("content_hash", hash))
	}
	return nil
}

// Search queries the collection. chromem requires nResults <= collection
// size, so k is clamped before the query.
func (ix *Index) Search(ctx context.Context, query []float32, k int) ([]memory.Match, error) {
	n := ix.col.Count()
	if n == 0 || k <= 0 {
		return nil, nil
	}
	if k > n {
		k = n
	}

	results, err := ix.col.QueryEmbedding(ctx, query, k, nil, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "chromem query failed")
	}

	matches := make([]memory.Match, 0, len(results))
	for _, r := range results {
		matches = append(matches, memory.Match{
			Hash: r.ID,
			// chromem reports cosine similarity in [-1,1]; map to [0,1] to
			// match the flat index score contract.
			Score: (1 + float64(r.Similarity)) / 2,
		})
	}
	return matches, nil
}

// Len reports the number of stored documents.
func (ix *Index) Len() int {
	return ix.col.Count()
}
