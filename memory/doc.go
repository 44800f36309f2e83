// Package memory provides a deduplicating, tag-aware semantic memory store.
//
// A memory is a short piece of natural-language text identified by a
// deterministic fingerprint of its content. The store keeps three structures
// consistent for every memory:
//   - a durable record table (RecordStore: in-memory for tests, Redis for
//     production)
//   - a vector index over content embeddings for similarity retrieval
//     (VectorIndex: flat cosine index by default, chromem-go as an
//     alternative backend)
//   - an inverted tag index for exact-match tag search
//
// Architecture:
//   - RecordStore: durable key-value substrate, source of truth
//   - VectorIndex: approximate nearest-neighbor retrieval over embeddings
//   - Embedder: text-to-vector conversion (mock for tests, ONNX or Gemini
//     for real semantic search)
//   - Store: orchestrates fingerprinting, embedding, and both indexes so
//     that store/delete are atomic from the caller's perspective
//
// Storing identical content twice is a logical no-op: the second store
// reports a duplicate without touching any structure, so callers can retry
// freely. Deletes are identified by content hash and remove the memory from
// all three structures.
package memory
