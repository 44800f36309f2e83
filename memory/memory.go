package memory

import (
	"context"
	"slices"
	"strings"
	"time"
)

// MemoryRecord is a stored memory. All fields except Tags are immutable
// after creation; ContentHash is the primary key across every structure.
type MemoryRecord struct {
	// Content is the user-supplied text payload.
	Content string `json:"content"`

	// ContentHash is the fingerprint of (Content, Metadata). See Fingerprint.
	ContentHash string `json:"content_hash"`

	// MemoryType is an optional free-form classification label.
	MemoryType string `json:"memory_type,omitempty"`

	// Tags are normalized labels (trimmed, deduplicated, sorted).
	Tags []string `json:"tags,omitempty"`

	// Metadata is caller-supplied context that participates in the fingerprint.
	Metadata map[string]string `json:"metadata,omitempty"`

	// Embedding is the vector derived from Content. Persisted so indexes can
	// be rebuilt without re-embedding.
	Embedding []float32 `json:"embedding,omitempty"`

	// CreatedAt is assigned at first successful store.
	CreatedAt time.Time `json:"created_at"`
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (r *MemoryRecord) Clone() *MemoryRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.Tags = slices.Clone(r.Tags)
	c.Embedding = slices.Clone(r.Embedding)
	if r.Metadata != nil {
		c.Metadata = make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// SearchResult pairs a record with its relevance score for one query.
// Results are produced fresh per query and never cached.
type SearchResult struct {
	Record *MemoryRecord
	// Score is cosine similarity mapped to [0,1]; higher is more relevant.
	Score float64
}

// Match is a raw vector index hit, before record hydration.
type Match struct {
	Hash  string
	Score float64
}

// Embedder converts text to vector embeddings.
// Implementations: mock (testing), onnx (local model), gemini (API),
// cached (decorator).
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}

// VectorIndex answers top-k nearest-neighbor queries over stored vectors
// keyed by content hash. Implementations: flat (default), chromem.
type VectorIndex interface {
	// Insert adds or overwrites the vector for a hash. Inserting the same
	// (hash, vector) pair again is a no-op.
	Insert(ctx context.Context, hash string, vec []float32) error

	// Remove deletes the vector for a hash. Absent hashes are a no-op.
	Remove(ctx context.Context, hash string) error

	// Search returns up to k matches ordered by descending score.
	// An empty index yields an empty result, never an error.
	Search(ctx context.Context, query []float32, k int) ([]Match, error)

	// Len reports the number of indexed vectors.
	Len() int
}

// RecordStore is the durable key-value substrate holding the record table.
// It is the source of truth; both indexes are derived from it.
// Implementations: inmem (tests/dev), redis (production).
type RecordStore interface {
	// Initialize must complete before any other operation is accepted.
	Initialize(ctx context.Context) error

	// Put writes a record keyed by its ContentHash.
	Put(ctx context.Context, rec *MemoryRecord) error

	// Get returns the record for a hash, or an ErrNotFound error.
	Get(ctx context.Context, hash string) (*MemoryRecord, error)

	// Delete removes the record for a hash. Absent hashes are a no-op.
	Delete(ctx context.Context, hash string) error

	// Scan iterates every record, stopping at the first error from fn.
	Scan(ctx context.Context, fn func(rec *MemoryRecord) error) error

	// Count returns the number of stored records.
	Count(ctx context.Context) (int64, error)

	// Close flushes and releases resources.
	Close() error
}

// NormalizeTags trims tags, drops empties, collapses duplicates and sorts
// the result. The returned slice is the canonical tag set stored on records
// and in the tag index.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	slices.Sort(out)
	return out
}
