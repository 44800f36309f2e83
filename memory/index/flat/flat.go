// Package flat provides a brute-force cosine similarity index.
//
// Vectors are L2-normalized on insert, so similarity is a dot product. A
// bounded min-heap keeps top-k selection at O(n log k). For the collection
// sizes a single memory store holds, exact scan beats approximate structures
// on both recall and simplicity.
package flat

import (
	"container/heap"
	"context"
	"math"
	"slices"
	"sync"

	"github.com/becomeliminal/recall/memory"
)

// Index is a flat vector index keyed by content hash. Safe for concurrent
// use; searches take a read lock only.
type Index struct {
	mu      sync.RWMutex
	vectors map[string][]float32
}

var _ memory.VectorIndex = (*Index)(nil)

// New creates an empty index.
func New() *Index {
	return &Index{vectors: make(map[string][]float32)}
}

// Insert adds or overwrites the vector for a hash.
func (ix *Index) Insert(ctx context.Context, hash string, vec []float32) error {
	v := normalize(vec)

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.vectors[hash] = v
	return nil
}

// Remove deletes the vector for a hash; absent hashes are a no-op.
func (ix *Index) Remove(ctx context.Context, hash string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.vectors, hash)
	return nil
}

// Search scans every vector and returns up to k matches by descending
// score. Equal scores tie-break on hash so the retained set and its order
// do not depend on map iteration order.
func (ix *Index) Search(ctx context.Context, query []float32, k int) ([]memory.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}
	q := normalize(query)

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	h := &matchHeap{}
	heap.Init(h)
	for hash, vec := range ix.vectors {
		m := memory.Match{Hash: hash, Score: score(q, vec)}
		if h.Len() < k {
			heap.Push(h, m)
		} else if worse((*h)[0], m) {
			(*h)[0] = m
			heap.Fix(h, 0)
		}
	}

	out := make([]memory.Match, h.Len())
	for i := h.Len() - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(memory.Match)
	}
	return out, nil
}

// Len reports the number of indexed vectors.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.vectors)
}

// score maps cosine similarity of unit vectors into [0,1].
func score(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	s := (1 + dot) / 2
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// worse reports whether a ranks below b: lower score, or equal score with a
// lexicographically greater hash. The heap keeps the worst retained match at
// the root, so ties at the cut boundary resolve deterministically in favor
// of smaller hashes.
func worse(a, b memory.Match) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.Hash > b.Hash
}

type matchHeap []memory.Match

func (h matchHeap) Len() int            { return len(h) }
func (h matchHeap) Less(i, j int) bool  { return worse(h[i], h[j]) }
func (h matchHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *matchHeap) Push(x interface{}) { *h = append(*h, x.(memory.Match)) }
func (h *matchHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func normalize(vec []float32) []float32 {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	out := slices.Clone(vec)
	if norm == 0 {
		return out
	}
	inv := 1 / math.Sqrt(norm)
	for i, v := range out {
		out[i] = float32(float64(v) * inv)
	}
	return out
}
