// Package mock provides a deterministic embedder for tests and local
// development. It needs no model files and never fails.
package mock

import (
	"context"
	"hash/fnv"
	"math"
)

// DefaultDimensions matches all-MiniLM-L6-v2 so mock and ONNX embedders are
// interchangeable in wiring.
const DefaultDimensions = 384

// Embedder derives unit vectors from an FNV hash of the input text.
// Identical texts always produce identical embeddings; distinct texts
// produce effectively uncorrelated ones. There is no real semantic
// similarity, which is exactly what determinism-focused tests want.
type Embedder struct {
	dimensions int
}

// New creates a mock embedder with DefaultDimensions.
func New() *Embedder {
	return NewWithDimensions(DefaultDimensions)
}

// NewWithDimensions creates a mock embedder producing vectors of size d.
func NewWithDimensions(d int) *Embedder {
	return &Embedder{dimensions: d}
}

// Embed generates a deterministic unit vector from the text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, e.dimensions)
	for i := range vec {
		// LCG over the hash seed; maps each step into [-1,1].
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := 1 / math.Sqrt(norm)
		for i, v := range vec {
			vec[i] = float32(float64(v) * inv)
		}
	}
	return vec, nil
}

// Dimensions returns the embedding vector size.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}
