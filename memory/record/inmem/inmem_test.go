package inmem

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/becomeliminal/recall/memory"
)

func testRecord(hash, content string) *memory.MemoryRecord {
	return &memory.MemoryRecord{
		Content:     content,
		ContentHash: hash,
		Tags:        []string{"test"},
		Embedding:   []float32{0.1, 0.2, 0.3},
		CreatedAt:   time.Now().UTC(),
	}
}

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.Initialize(ctx); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	rec := testRecord("h1", "buy milk")
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	got, err := s.Get(ctx, "h1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Content != "buy milk" || got.ContentHash != "h1" {
		t.Errorf("got %+v", got)
	}

	if err := s.Delete(ctx, "h1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := s.Get(ctx, "h1"); !errors.Is(err, memory.ErrNotFound) {
		t.Errorf("get after delete: %v, want ErrNotFound", err)
	}

	// Deleting an absent hash is a no-op.
	if err := s.Delete(ctx, "h1"); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New()

	rec := testRecord("h1", "buy milk")
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	// Mutating the original after Put must not affect stored state.
	rec.Content = "changed"
	rec.Embedding[0] = 999

	got, err := s.Get(ctx, "h1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Content != "buy milk" || got.Embedding[0] != 0.1 {
		t.Error("stored record aliased caller memory")
	}

	// Mutating a returned record must not affect stored state either.
	got.Tags[0] = "mutated"
	again, err := s.Get(ctx, "h1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if again.Tags[0] != "test" {
		t.Error("returned record aliased stored memory")
	}
}

func TestPutRequiresHash(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.Put(ctx, nil); err == nil {
		t.Error("expected error for nil record")
	}
	if err := s.Put(ctx, &memory.MemoryRecord{Content: "x"}); err == nil {
		t.Error("expected error for missing hash")
	}
}

func TestScanAndCount(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, h := range []string{"h1", "h2", "h3"} {
		if err := s.Put(ctx, testRecord(h, "content "+h)); err != nil {
			t.Fatalf("put %s failed: %v", h, err)
		}
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}

	seen := map[string]bool{}
	err = s.Scan(ctx, func(rec *memory.MemoryRecord) error {
		seen[rec.ContentHash] = true
		return nil
	})
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(seen) != 3 {
		t.Errorf("scan visited %d records, want 3", len(seen))
	}

	// Callback errors abort the scan.
	sentinel := errors.New("stop")
	err = s.Scan(ctx, func(rec *memory.MemoryRecord) error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Errorf("scan error = %v, want sentinel", err)
	}
}

func TestScanCancelledContext(t *testing.T) {
	s := New()
	if err := s.Put(context.Background(), testRecord("h1", "x")); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Scan(ctx, func(rec *memory.MemoryRecord) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("scan with cancelled context = %v", err)
	}
}
