// Package memory is an in-process corpus index with exact cosine k-NN search.
package memory

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/kailas-cloud/ragrec/internal/domain"
	"github.com/kailas-cloud/ragrec/internal/domain/item"
	"github.com/kailas-cloud/ragrec/internal/domain/retrieval"
)

type entry struct {
	item item.CorpusItem
	vec  []float32
	norm float64
}

// Index stores vectorized items in insertion order.
// Add is batch-atomic: a concurrent Search sees either none or all of a batch.
type Index struct {
	dim int

	mu      sync.RWMutex
	entries []entry
}

// New creates an empty index for vectors of length dim.
func New(dim int) (*Index, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("index dimensions must be positive, got %d", dim)
	}
	return &Index{dim: dim}, nil
}

// Dimensions returns the vector length accepted by the index.
func (x *Index) Dimensions() int { return x.dim }

// Add appends a batch. A single malformed vector rejects the whole batch.
func (x *Index) Add(_ context.Context, items []item.Vectorized) error {
	if len(items) == 0 {
		return nil
	}

	batch := make([]entry, len(items))
	for i, v := range items {
		if err := domain.CheckDimensions(v.Vector, x.dim); err != nil {
			return fmt.Errorf("item %q: %w", v.Item.ID(), err)
		}
		vec := make([]float32, len(v.Vector))
		copy(vec, v.Vector)
		batch[i] = entry{item: v.Item, vec: vec, norm: norm(vec)}
	}

	x.mu.Lock()
	x.entries = append(x.entries, batch...)
	x.mu.Unlock()
	return nil
}

// Search returns up to k hits by descending cosine similarity.
// Equal scores keep insertion order. An empty index yields an empty slice.
func (x *Index) Search(_ context.Context, vec []float32, k int) ([]retrieval.Hit, error) {
	if err := domain.CheckDimensions(vec, x.dim); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if k <= 0 {
		return []retrieval.Hit{}, nil
	}
	qnorm := norm(vec)

	x.mu.RLock()
	defer x.mu.RUnlock()

	top := make([]scored, 0, min(k, len(x.entries)))
	for i := range x.entries {
		e := &x.entries[i]
		top = insertTopK(top, scored{idx: i, score: cosine(vec, qnorm, e.vec, e.norm)}, k)
	}

	hits := make([]retrieval.Hit, len(top))
	for i, s := range top {
		hits[i] = retrieval.NewHit(x.entries[s.idx].item, s.score)
	}
	return hits, nil
}

// Count returns the number of stored items, duplicates included.
func (x *Index) Count(_ context.Context) (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries), nil
}

// Reset drops every item.
func (x *Index) Reset(_ context.Context) error {
	x.mu.Lock()
	x.entries = nil
	x.mu.Unlock()
	return nil
}

// Ping always succeeds; present for health checks.
func (x *Index) Ping(_ context.Context) error { return nil }

type scored struct {
	idx   int
	score float64
}

// insertTopK keeps top sorted by descending score, capped at k.
// A candidate goes after every entry with an equal score, so earlier inserts win ties.
func insertTopK(top []scored, c scored, k int) []scored {
	pos := len(top)
	for pos > 0 && top[pos-1].score < c.score {
		pos--
	}
	if pos >= k {
		return top
	}
	if len(top) < k {
		top = append(top, scored{})
	}
	copy(top[pos+1:], top[pos:len(top)-1])
	top[pos] = c
	return top
}

func norm(v []float32) float64 {
	var s float64
	for _, f := range v {
		s += float64(f) * float64(f)
	}
	return math.Sqrt(s)
}

// cosine returns 0 when either vector has zero length.
func cosine(a []float32, na float64, b []float32, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (na * nb)
}
