package mock

import (
	"context"
	"math"
	"slices"
	"testing"
)

func TestEmbedDeterministic(t *testing.T) {
	ctx := context.Background()
	e := New()

	a, err := e.Embed(ctx, "buy milk")
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	b, err := e.Embed(ctx, "buy milk")
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if !slices.Equal(a, b) {
		t.Error("identical text produced different embeddings")
	}
	if len(a) != DefaultDimensions {
		t.Errorf("vector size = %d, want %d", len(a), DefaultDimensions)
	}

	c, err := e.Embed(ctx, "buy bread")
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if slices.Equal(a, c) {
		t.Error("distinct texts produced identical embeddings")
	}
}

func TestEmbedUnitNorm(t *testing.T) {
	e := NewWithDimensions(32)

	vec, err := e.Embed(context.Background(), "anything at all")
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(norm)-1) > 1e-5 {
		t.Errorf("vector norm = %v, want 1", math.Sqrt(norm))
	}
	if e.Dimensions() != 32 {
		t.Errorf("Dimensions = %d, want 32", e.Dimensions())
	}
}
