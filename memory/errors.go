package memory

import "github.com/m-mizutani/goerr/v2"

// Error taxonomy. Expected conditions (duplicate, not-found) are reported as
// structured outcomes by Store and never surface as errors; the sentinels
// below cover the remaining failure classes so callers can branch with
// errors.Is.
var (
	// ErrNotFound marks a lookup for a content hash with no durable record.
	ErrNotFound = goerr.New("memory not found")

	// ErrEmbeddingUnavailable marks an embedding backend failure. The
	// triggering operation aborts entirely; no partial state is written.
	ErrEmbeddingUnavailable = goerr.New("embedding unavailable")

	// ErrDimensionMismatch marks an embedding whose length differs from the
	// embedder's declared dimensions. This is a defect guard, fatal to the
	// single operation.
	ErrDimensionMismatch = goerr.New("embedding dimension mismatch")

	// ErrEmptyContent marks a store call without content.
	ErrEmptyContent = goerr.New("content is required")

	// ErrNotInitialized marks an operation issued before Initialize or after
	// Close.
	ErrNotInitialized = goerr.New("store not initialized")
)
