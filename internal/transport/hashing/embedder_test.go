package hashing

import (
	"context"
	"math"
	"testing"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestNew_RejectsNonPositiveDim(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatal("expected error")
	}
}

func TestEmbed_DeterministicAndNormalized(t *testing.T) {
	e, _ := New(64)
	ctx := context.Background()

	a, err := e.Embed(ctx, "Dream heist with AI")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := e.Embed(ctx, "dream HEIST, with ai!")

	if len(a.Embedding) != 64 {
		t.Fatalf("expected 64 dims, got %d", len(a.Embedding))
	}
	if sim := cosine(a.Embedding, b.Embedding); math.Abs(sim-1) > 1e-6 {
		t.Errorf("case and punctuation must not matter, similarity %f", sim)
	}

	var n float64
	for _, v := range a.Embedding {
		n += float64(v) * float64(v)
	}
	if math.Abs(n-1) > 1e-5 {
		t.Errorf("expected unit norm, got %f", n)
	}
	if a.TotalTokens != 4 {
		t.Errorf("expected 4 tokens, got %d", a.TotalTokens)
	}
}

func TestEmbed_SharedWordsAreCloser(t *testing.T) {
	e, _ := New(256)
	ctx := context.Background()

	q, _ := e.Embed(ctx, "a heist movie about dreams")
	inception, _ := e.Embed(ctx, "Inception - Dream heist with AI")
	dune, _ := e.Embed(ctx, "Dune - Desert planet saga")

	if cosine(q.Embedding, inception.Embedding) <= cosine(q.Embedding, dune.Embedding) {
		t.Error("expected the heist query closer to Inception than to Dune")
	}
}

func TestEmbed_EmptyTextIsZeroVector(t *testing.T) {
	e, _ := New(8)
	res, err := e.Embed(context.Background(), "  ...  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, v := range res.Embedding {
		if v != 0 {
			t.Fatalf("expected zero vector, got %v", res.Embedding)
		}
	}
}

func TestBatchEmbed_MatchesEmbed(t *testing.T) {
	e, _ := New(32)
	ctx := context.Background()
	texts := []string{"first text", "second text"}

	batch, err := e.BatchEmbed(ctx, texts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, text := range texts {
		single, _ := e.Embed(ctx, text)
		for j := range single.Embedding {
			if single.Embedding[j] != batch.Embeddings[i][j] {
				t.Fatalf("batch vector %d differs from single embed", i)
			}
		}
	}
	if batch.TotalTokens != 4 {
		t.Errorf("expected 4 tokens, got %d", batch.TotalTokens)
	}
}

func TestEmbed_CanceledContext(t *testing.T) {
	e, _ := New(8)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Embed(ctx, "x"); err == nil {
		t.Fatal("expected error")
	}
}
