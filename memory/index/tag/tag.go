// Package tag provides an inverted index from tags to content hashes.
//
// Content hashes are interned to dense uint32 ids so each tag's membership
// is a roaring bitmap; intersection queries reduce to bitmap ANDs.
package tag

import (
	"slices"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

// Index maps tags to sets of content hashes and back. All methods are safe
// for concurrent use.
type Index struct {
	mu sync.RWMutex

	next   uint32
	ids    map[string]uint32 // content hash -> interned id
	hashes map[uint32]string // interned id -> content hash
	byTag  map[string]*roaring.Bitmap
	byHash map[string][]string // content hash -> tags carried
}

// New creates an empty index.
func New() *Index {
	return &Index{
		ids:    make(map[string]uint32),
		hashes: make(map[uint32]string),
		byTag:  make(map[string]*roaring.Bitmap),
		byHash: make(map[string][]string),
	}
}

// Add associates every tag with the hash. Re-adding overlapping tags is
// idempotent (set union).
func (ix *Index) Add(hash string, tags []string) {
	if hash == "" || len(tags) == 0 {
		return
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	id, ok := ix.ids[hash]
	if !ok {
		id = ix.next
		ix.next++
		ix.ids[hash] = id
		ix.hashes[id] = hash
	}

	current := ix.byHash[hash]
	for _, t := range tags {
		bm, ok := ix.byTag[t]
		if !ok {
			bm = roaring.New()
			ix.byTag[t] = bm
		}
		bm.Add(id)
		if !slices.Contains(current, t) {
			current = append(current, t)
		}
	}
	slices.Sort(current)
	ix.byHash[hash] = current
}

// Remove detaches the hash from every tag it carries and prunes tags left
// with no members. Unknown hashes are a no-op.
func (ix *Index) Remove(hash string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	id, ok := ix.ids[hash]
	if !ok {
		return
	}
	for _, t := range ix.byHash[hash] {
		bm, ok := ix.byTag[t]
		if !ok {
			continue
		}
		bm.Remove(id)
		if bm.IsEmpty() {
			delete(ix.byTag, t)
		}
	}
	delete(ix.byHash, hash)
	delete(ix.ids, hash)
	delete(ix.hashes, id)
}

// Query returns the hashes associated with all given tags (intersection).
// An empty tag set matches nothing; so does any unknown tag. The result is
// sorted for deterministic downstream ordering.
func (ix *Index) Query(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var acc *roaring.Bitmap
	for _, t := range tags {
		bm, ok := ix.byTag[t]
		if !ok {
			return nil
		}
		if acc == nil {
			acc = bm.Clone()
		} else {
			acc.And(bm)
		}
		if acc.IsEmpty() {
			return nil
		}
	}

	out := make([]string, 0, acc.GetCardinality())
	it := acc.Iterator()
	for it.HasNext() {
		out = append(out, ix.hashes[it.Next()])
	}
	slices.Sort(out)
	return out
}

// Tags returns the sorted tag set currently carried by the hash.
func (ix *Index) Tags(hash string) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return slices.Clone(ix.byHash[hash])
}

// Len reports the number of hashes with at least one tag.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.byHash)
}
