package memory

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	tagindex "github.com/becomeliminal/recall/memory/index/tag"
)

// lockStripes is the number of per-fingerprint mutex stripes. Store and
// delete on the same content hash always map to the same stripe, so they
// serialize; operations on different hashes almost always proceed in
// parallel.
const lockStripes = 64

// Store orchestrates fingerprinting, embedding and the three storage
// structures. It guarantees that a content hash visible in either index
// always has a durable record: writes go record -> vector -> tags, deletes
// run the same chain in reverse, and failures after the durable write are
// compensated.
//
// When a store races a delete on the same fingerprint, the stripe lock
// serializes them and the later acquirer wins (last-writer-wins).
type Store struct {
	id       string
	records  RecordStore
	index    VectorIndex
	tags     *tagindex.Index
	embedder Embedder
	config   *Config
	logger   *slog.Logger

	locks [lockStripes]sync.Mutex
	ready atomic.Bool
}

// Option configures the store.
type Option func(*Store)

// WithLogger sets the logger used for operational events and consistency
// violation reports. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a Store. The record substrate, vector index and embedder are
// injected; the tag index is owned internally. Call Initialize before use.
func New(records RecordStore, index VectorIndex, embedder Embedder, config *Config, opts ...Option) (*Store, error) {
	if records == nil {
		return nil, goerr.New("record store is required")
	}
	if index == nil {
		return nil, goerr.New("vector index is required")
	}
	if embedder == nil {
		return nil, goerr.New("embedder is required")
	}
	if config == nil {
		config = DefaultConfig
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	s := &Store{
		id:       uuid.NewString(),
		records:  records,
		index:    index,
		tags:     tagindex.New(),
		embedder: embedder,
		config:   config,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("store_id", s.id))

	return s, nil
}

// Initialize opens the durable substrate and rebuilds both derived indexes
// from it. Embeddings are persisted on records, so recovery never calls the
// embedder.
func (s *Store) Initialize(ctx context.Context) error {
	if err := s.records.Initialize(ctx); err != nil {
		return goerr.Wrap(err, "failed to initialize record store")
	}

	var restored int
	err := s.records.Scan(ctx, func(rec *MemoryRecord) error {
		if len(rec.Embedding) != s.embedder.Dimensions() {
			// Records embedded with a different model are unreachable by
			// similarity search; keep them tag-searchable and report.
			s.logger.Warn("skipping vector index rebuild for record with stale embedding",
				slog.String("content_hash", rec.ContentHash),
				slog.Int("dimensions", len(rec.Embedding)))
		} else if err := s.index.Insert(ctx, rec.ContentHash, rec.Embedding); err != nil {
			return goerr.Wrap(err, "failed to rebuild vector index", goerr.V("content_hash", rec.ContentHash))
		}
		s.tags.Add(rec.ContentHash, rec.Tags)
		restored++
		return nil
	})
	if err != nil {
		return err
	}

	s.ready.Store(true)
	s.logger.Info("memory store initialized", slog.Int("records", restored))
	return nil
}

// Close releases the durable substrate. The store accepts no operations
// afterwards.
func (s *Store) Close() error {
	s.ready.Store(false)
	return s.records.Close()
}

// StoreInput is the validated shape of a store request.
type StoreInput struct {
	Content    string
	MemoryType string
	Tags       []string
	Metadata   map[string]string
}

// StoreResult reports the outcome of a store operation. A duplicate is a
// successful no-op with Success=false, not an error.
type StoreResult struct {
	Success     bool
	Message     string
	ContentHash string
}

// Store fingerprints the content, embeds it and writes the record plus both
// index entries. Identical content (after normalization) is reported as a
// duplicate without touching any structure. If the embedding backend fails,
// nothing is written and the error wraps ErrEmbeddingUnavailable.
func (s *Store) Store(ctx context.Context, in StoreInput) (StoreResult, error) {
	if !s.ready.Load() {
		return StoreResult{}, goerr.Wrap(ErrNotInitialized, "store rejected")
	}
	if normalizeContent(in.Content) == "" {
		return StoreResult{}, goerr.Wrap(ErrEmptyContent, "store rejected")
	}

	hash := Fingerprint(in.Content, in.Metadata)
	tags := NormalizeTags(in.Tags)

	// Cheap duplicate probe before paying for an embedding.
	if _, err := s.records.Get(ctx, hash); err == nil {
		return duplicateResult(hash), nil
	} else if !errors.Is(err, ErrNotFound) {
		return StoreResult{}, goerr.Wrap(err, "failed to check for duplicate", goerr.V("content_hash", hash))
	}

	vec, err := s.embedder.Embed(ctx, in.Content)
	if err != nil {
		return StoreResult{}, goerr.Wrap(ErrEmbeddingUnavailable, "failed to embed content",
			goerr.V("content_hash", hash), goerr.V("cause", err.Error()))
	}
	if len(vec) != s.embedder.Dimensions() {
		return StoreResult{}, goerr.Wrap(ErrDimensionMismatch, "embedder returned unexpected vector",
			goerr.V("got", len(vec)), goerr.V("want", s.embedder.Dimensions()))
	}

	// A caller timeout during embedding must not leave durable state.
	if err := ctx.Err(); err != nil {
		return StoreResult{}, goerr.Wrap(err, "store cancelled before durable write")
	}

	lock := s.lockFor(hash)
	lock.Lock()
	defer lock.Unlock()

	// Re-check under the stripe lock: a concurrent store of the same content
	// may have won the race while we were embedding.
	if _, err := s.records.Get(ctx, hash); err == nil {
		return duplicateResult(hash), nil
	} else if !errors.Is(err, ErrNotFound) {
		return StoreResult{}, goerr.Wrap(err, "failed to check for duplicate", goerr.V("content_hash", hash))
	}

	rec := &MemoryRecord{
		Content:     in.Content,
		ContentHash: hash,
		MemoryType:  in.MemoryType,
		Tags:        tags,
		Metadata:    in.Metadata,
		Embedding:   vec,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.records.Put(ctx, rec); err != nil {
		return StoreResult{}, goerr.Wrap(err, "failed to write record", goerr.V("content_hash", hash))
	}
	if err := s.index.Insert(ctx, hash, vec); err != nil {
		// Compensate: a record without an index entry would violate the
		// record/index consistency invariant.
		if derr := s.records.Delete(ctx, hash); derr != nil {
			s.logger.Error("rollback of record write failed",
				slog.String("content_hash", hash), slog.Any("error", derr))
		}
		return StoreResult{}, goerr.Wrap(err, "failed to index embedding", goerr.V("content_hash", hash))
	}
	s.tags.Add(hash, tags)

	s.logger.Debug("memory stored", slog.String("content_hash", hash), slog.Int("tags", len(tags)))
	return StoreResult{Success: true, Message: "memory stored", ContentHash: hash}, nil
}

func duplicateResult(hash string) StoreResult {
	return StoreResult{
		Success:     false,
		Message:     "duplicate content detected, not storing",
		ContentHash: hash,
	}
}

// Retrieve embeds the query and returns up to limit records ranked by
// similarity. A non-positive limit falls back to Config.MaxResults.
// Ordering is deterministic: descending score, then most recent CreatedAt,
// then hash.
func (s *Store) Retrieve(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if !s.ready.Load() {
		return nil, goerr.Wrap(ErrNotInitialized, "retrieve rejected")
	}
	if limit <= 0 {
		limit = s.config.MaxResults
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, goerr.Wrap(ErrEmbeddingUnavailable, "failed to embed query", goerr.V("cause", err.Error()))
	}
	if len(vec) != s.embedder.Dimensions() {
		return nil, goerr.Wrap(ErrDimensionMismatch, "embedder returned unexpected vector",
			goerr.V("got", len(vec)), goerr.V("want", s.embedder.Dimensions()))
	}

	matches, err := s.index.Search(ctx, vec, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "vector search failed")
	}

	results := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		if m.Score < s.config.MinScore {
			continue
		}
		rec, err := s.hydrate(ctx, m.Hash)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			continue
		}
		results = append(results, SearchResult{Record: rec, Score: m.Score})
	}

	slices.SortFunc(results, func(a, b SearchResult) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		if c := b.Record.CreatedAt.Compare(a.Record.CreatedAt); c != 0 {
			return c
		}
		return cmpString(a.Record.ContentHash, b.Record.ContentHash)
	})
	return results, nil
}

// SearchByTag returns records carrying every given tag (intersection
// semantics). An empty tag set matches nothing. Results are ordered oldest
// first with hash tie-break, so repeated queries are reproducible.
func (s *Store) SearchByTag(ctx context.Context, tags []string) ([]*MemoryRecord, error) {
	if !s.ready.Load() {
		return nil, goerr.Wrap(ErrNotInitialized, "search rejected")
	}

	hashes := s.tags.Query(NormalizeTags(tags))
	records := make([]*MemoryRecord, 0, len(hashes))
	for _, h := range hashes {
		rec, err := s.hydrate(ctx, h)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			continue
		}
		records = append(records, rec)
	}

	slices.SortFunc(records, func(a, b *MemoryRecord) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmpString(a.ContentHash, b.ContentHash)
	})
	return records, nil
}

// DeleteResult reports the outcome of a delete operation. Deleting an
// unknown hash is an expected, reportable condition, not an error.
type DeleteResult struct {
	Success bool
	Message string
}

// Delete removes the memory identified by hash from both indexes and the
// durable substrate. Index entries go first so no reader can observe an
// index hit without a durable record; if the final record delete fails, the
// index entries are restored.
func (s *Store) Delete(ctx context.Context, hash string) (DeleteResult, error) {
	if !s.ready.Load() {
		return DeleteResult{}, goerr.Wrap(ErrNotInitialized, "delete rejected")
	}
	if hash == "" {
		return DeleteResult{Success: false, Message: "content hash is required"}, nil
	}

	lock := s.lockFor(hash)
	lock.Lock()
	defer lock.Unlock()

	rec, err := s.records.Get(ctx, hash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return DeleteResult{Success: false, Message: "memory not found"}, nil
		}
		return DeleteResult{}, goerr.Wrap(err, "failed to load record", goerr.V("content_hash", hash))
	}

	s.tags.Remove(hash)
	if err := s.index.Remove(ctx, hash); err != nil {
		s.tags.Add(hash, rec.Tags)
		return DeleteResult{}, goerr.Wrap(err, "failed to remove vector", goerr.V("content_hash", hash))
	}
	if err := s.records.Delete(ctx, hash); err != nil {
		// Restore the derived entries; the record is still the source of truth.
		if ierr := s.index.Insert(ctx, hash, rec.Embedding); ierr != nil {
			s.logger.Error("rollback of vector removal failed",
				slog.String("content_hash", hash), slog.Any("error", ierr))
		}
		s.tags.Add(hash, rec.Tags)
		return DeleteResult{}, goerr.Wrap(err, "failed to delete record", goerr.V("content_hash", hash))
	}

	s.logger.Debug("memory deleted", slog.String("content_hash", hash))
	return DeleteResult{Success: true, Message: "memory deleted"}, nil
}

// Count returns the number of durable records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	if !s.ready.Load() {
		return 0, goerr.Wrap(ErrNotInitialized, "count rejected")
	}
	return s.records.Count(ctx)
}

// hydrate loads the record behind an index hit. A missing record means the
// indexes diverged from the substrate (a prior bug, not expected runtime
// behavior): it is reported and degraded to not-found instead of failing
// the query.
func (s *Store) hydrate(ctx context.Context, hash string) (*MemoryRecord, error) {
	rec, err := s.records.Get(ctx, hash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.Error("index references a missing record", slog.String("content_hash", hash))
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to hydrate record", goerr.V("content_hash", hash))
	}
	return rec, nil
}

func (s *Store) lockFor(hash string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(hash))
	return &s.locks[h.Sum32()%lockStripes]
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
