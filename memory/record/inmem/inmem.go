// Package inmem provides a RecordStore backed by a mutex-guarded map. It is
// the default substrate for tests and local development; contents do not
// survive the process.
package inmem

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"github.com/becomeliminal/recall/memory"
)

// Store holds records in process memory. Records are cloned on the way in
// and out so callers cannot alias stored state.
type Store struct {
	mu      sync.RWMutex
	records map[string]*memory.MemoryRecord
}

var _ memory.RecordStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{records: make(map[string]*memory.MemoryRecord)}
}

// Initialize is a no-op; the map is ready at construction.
func (s *Store) Initialize(ctx context.Context) error {
	return nil
}

// Put writes a record keyed by its ContentHash.
func (s *Store) Put(ctx context.Context, rec *memory.MemoryRecord) error {
	if rec == nil || rec.ContentHash == "" {
		return goerr.New("record requires a content hash")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ContentHash] = rec.Clone()
	return nil
}

// Get returns the record for a hash, or ErrNotFound.
func (s *Store) Get(ctx context.Context, hash string) (*memory.MemoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[hash]
	if !ok {
		return nil, goerr.Wrap(memory.ErrNotFound, "no record for hash", goerr.V("content_hash", hash))
	}
	return rec.Clone(), nil
}

// Delete removes the record for a hash; absent hashes are a no-op.
func (s *Store) Delete(ctx context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, hash)
	return nil
}

// Scan iterates a snapshot of all records.
func (s *Store) Scan(ctx context.Context, fn func(rec *memory.MemoryRecord) error) error {
	s.mu.RLock()
	snapshot := make([]*memory.MemoryRecord, 0, len(s.records))
	for _, rec := range s.records {
		snapshot = append(snapshot, rec.Clone())
	}
	s.mu.RUnlock()

	for _, rec := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.records)), nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
