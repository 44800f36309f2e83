package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/becomeliminal/recall/memory"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)

	s, err := New(Options{URL: fmt.Sprintf("redis://%s", mr.Addr())})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testRecord(hash, content string) *memory.MemoryRecord {
	return &memory.MemoryRecord{
		Content:     content,
		ContentHash: hash,
		MemoryType:  "note",
		Tags:        []string{"test"},
		Metadata:    map[string]string{"source": "test"},
		Embedding:   []float32{0.1, 0.2, 0.3},
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec := testRecord("h1", "buy milk")
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	got, err := s.Get(ctx, "h1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Content != rec.Content || got.ContentHash != rec.ContentHash {
		t.Errorf("got %+v", got)
	}
	if len(got.Embedding) != 3 || got.Embedding[0] != 0.1 {
		t.Errorf("embedding did not round-trip: %v", got.Embedding)
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, rec.CreatedAt)
	}

	if err := s.Delete(ctx, "h1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := s.Get(ctx, "h1"); !errors.Is(err, memory.ErrNotFound) {
		t.Errorf("get after delete: %v, want ErrNotFound", err)
	}

	if err := s.Delete(ctx, "h1"); err != nil {
		t.Errorf("deleting an absent hash should be a no-op: %v", err)
	}
}

func TestGetNotFound(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, memory.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPutRequiresHash(t *testing.T) {
	s := newTestStore(t)

	if err := s.Put(context.Background(), nil); err == nil {
		t.Error("expected error for nil record")
	}
	if err := s.Put(context.Background(), &memory.MemoryRecord{Content: "x"}); err == nil {
		t.Error("expected error for missing hash")
	}
}

func TestScanAndCount(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		h := fmt.Sprintf("h%d", i)
		if err := s.Put(ctx, testRecord(h, "content "+h)); err != nil {
			t.Fatalf("put %s failed: %v", h, err)
		}
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 5 {
		t.Errorf("count = %d, want 5", count)
	}

	seen := map[string]bool{}
	err = s.Scan(ctx, func(rec *memory.MemoryRecord) error {
		seen[rec.ContentHash] = true
		return nil
	})
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(seen) != 5 {
		t.Errorf("scan visited %d records, want 5", len(seen))
	}
}

func TestNamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	url := fmt.Sprintf("redis://%s", mr.Addr())

	a, err := New(Options{URL: url, Namespace: "tenant-a"})
	if err != nil {
		t.Fatalf("failed to create store a: %v", err)
	}
	defer a.Close()
	b, err := New(Options{URL: url, Namespace: "tenant-b"})
	if err != nil {
		t.Fatalf("failed to create store b: %v", err)
	}
	defer b.Close()

	if err := a.Put(ctx, testRecord("h1", "tenant a record")); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	if _, err := b.Get(ctx, "h1"); !errors.Is(err, memory.ErrNotFound) {
		t.Errorf("cross-namespace get: %v, want ErrNotFound", err)
	}
	count, err := b.Count(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("tenant-b count = %d, want 0", count)
	}
}

func TestInvalidURL(t *testing.T) {
	if _, err := New(Options{URL: "not a url"}); err == nil {
		t.Error("expected error for malformed URL")
	}
}

func TestInitializeUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	s, err := New(Options{URL: fmt.Sprintf("redis://%s", addr), ConnectTimeout: 200 * time.Millisecond})
	if err != nil {
		t.Fatalf("construction should not dial: %v", err)
	}
	defer s.Close()

	if err := s.Initialize(context.Background()); err == nil {
		t.Error("expected initialize to fail against a closed server")
	}
}
