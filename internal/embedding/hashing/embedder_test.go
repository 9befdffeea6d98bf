package hashing

import (
	"context"
	"math"
	"testing"
)

func TestNew_RejectsNonPositiveDims(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Error("expected error for dims=0")
	}
	if _, err := New(-5); err == nil {
		t.Error("expected error for negative dims")
	}
}

func TestEmbed_Deterministic(t *testing.T) {
	e, err := New(64)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	a, err := e.Embed(ctx, "The quick brown fox")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	b, err := e.Embed(ctx, "The quick brown fox")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}

	if len(a.Embedding) != 64 {
		t.Fatalf("vector len = %d, want 64", len(a.Embedding))
	}
	for i := range a.Embedding {
		if a.Embedding[i] != b.Embedding[i] {
			t.Fatalf("vectors differ at %d", i)
		}
	}
}

func TestEmbed_UnitNorm(t *testing.T) {
	e, err := New(128)
	if err != nil {
		t.Fatal(err)
	}

	result, err := e.Embed(context.Background(), "some words to hash into a vector")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}

	var sum float64
	for _, v := range result.Embedding {
		sum += float64(v) * float64(v)
	}
	if math.Abs(sum-1) > 1e-5 {
		t.Errorf("squared norm = %f, want 1", sum)
	}
}

func TestEmbed_EmptyTextIsZeroVector(t *testing.T) {
	e, err := New(32)
	if err != nil {
		t.Fatal(err)
	}

	result, err := e.Embed(context.Background(), "   \n\t ")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	for i, v := range result.Embedding {
		if v != 0 {
			t.Fatalf("element %d = %f, want 0 for empty input", i, v)
		}
	}
}

func TestEmbed_SimilarTextsCloserThanUnrelated(t *testing.T) {
	e, err := New(256)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	base, _ := e.Embed(ctx, "the sky is blue today")
	similar, _ := e.Embed(ctx, "the sky is blue")
	unrelated, _ := e.Embed(ctx, "quarterly revenue projections spreadsheet")

	if dot(base.Embedding, similar.Embedding) <= dot(base.Embedding, unrelated.Embedding) {
		t.Error("overlapping text must score higher than unrelated text")
	}
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}
