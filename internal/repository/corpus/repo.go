// Package corpus is the Redis/Valkey-backed corpus index.
package corpus

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/kailas-cloud/ragrec/internal/db"
	"github.com/kailas-cloud/ragrec/internal/domain"
	"github.com/kailas-cloud/ragrec/internal/domain/item"
	"github.com/kailas-cloud/ragrec/internal/domain/retrieval"
)

// store is the consumer interface for the corpus index (ISP).
//
//nolint:interfacebloat // corpus repo needs hash, counter, index and search operations
type store interface {
	Ping(ctx context.Context) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string, deleteDocs bool) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Repo stores corpus items as hashes under a FLAT COSINE FT index.
// Every item gets a sequence number from a Redis counter; it orders ties.
type Repo struct {
	store     store
	dim       int
	indexName string
	keyPrefix string
	seqKey    string
}

// New creates a corpus repository. keyPrefix namespaces all keys (e.g. "ragrec:").
func New(s store, dim int, keyPrefix string) (*Repo, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("index dimensions must be positive, got %d", dim)
	}
	return &Repo{
		store:     s,
		dim:       dim,
		indexName: keyPrefix + "corpus:idx",
		keyPrefix: keyPrefix + "item:",
		seqKey:    keyPrefix + "corpus:seq",
	}, nil
}

// Dimensions returns the vector length accepted by the index.
func (r *Repo) Dimensions() int { return r.dim }

// EnsureIndex creates the FT index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.indexName)
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.indexName, err)
	}
	if exists {
		return nil
	}
	if err := r.store.CreateIndex(ctx, r.indexDefinition()); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", r.indexName, err)
	}
	return nil
}

// Add writes the batch in one MULTI/EXEC transaction.
// A single malformed vector rejects the whole batch before anything is written.
func (r *Repo) Add(ctx context.Context, items []item.Vectorized) error {
	if len(items) == 0 {
		return nil
	}
	for _, v := range items {
		if err := domain.CheckDimensions(v.Vector, r.dim); err != nil {
			return fmt.Errorf("item %q: %w", v.Item.ID(), err)
		}
	}

	last, err := r.store.IncrBy(ctx, r.seqKey, int64(len(items)))
	if err != nil {
		return fmt.Errorf("reserve sequence: %w", err)
	}
	first := last - int64(len(items)) + 1

	batch := make([]db.HashSetItem, len(items))
	for i, v := range items {
		seq := first + int64(i)
		fields, err := buildHashFields(v, seq)
		if err != nil {
			return err
		}
		batch[i] = db.HashSetItem{Key: r.keyPrefix + strconv.FormatInt(seq, 10), Fields: fields}
	}

	if err := r.store.HSetMulti(ctx, batch); err != nil {
		return fmt.Errorf("write %d items: %w", len(items), err)
	}
	return nil
}

// Search returns up to k hits by descending cosine similarity; ties keep insertion order.
func (r *Repo) Search(ctx context.Context, vec []float32, k int) ([]retrieval.Hit, error) {
	if err := domain.CheckDimensions(vec, r.dim); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if k <= 0 {
		return []retrieval.Hit{}, nil
	}

	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName,
		VectorField:  fieldVector,
		Vector:       vec,
		K:            k,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}

	type ranked struct {
		hit retrieval.Hit
		seq int64
	}
	rows := make([]ranked, 0, len(res.Entries))
	for _, e := range res.Entries {
		it, seq, err := parseHashFields(e.Fields)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", e.Key, err)
		}
		rows = append(rows, ranked{hit: retrieval.NewHit(it, e.Score), seq: seq})
	}

	slices.SortStableFunc(rows, func(a, b ranked) int {
		if c := cmp.Compare(b.hit.Score(), a.hit.Score()); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
	if len(rows) > k {
		rows = rows[:k]
	}

	hits := make([]retrieval.Hit, len(rows))
	for i := range rows {
		hits[i] = rows[i].hit
	}
	return hits, nil
}

// Count returns the number of indexed items.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.indexName, "*")
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// Reset drops the index together with its hashes and recreates it empty.
func (r *Repo) Reset(ctx context.Context) error {
	if err := r.store.DropIndex(ctx, r.indexName, true); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", r.indexName, err)
	}
	if err := r.store.CreateIndex(ctx, r.indexDefinition()); err != nil {
		return fmt.Errorf("recreate index %s: %w", r.indexName, err)
	}
	return nil
}

// Ping checks store connectivity.
func (r *Repo) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

func (r *Repo) indexDefinition() *db.IndexDefinition {
	return db.NewIndex(r.indexName).
		Prefix(r.keyPrefix).
		Tag(fieldItemID).
		Numeric(fieldSeq, true).
		Vector(fieldVector, r.dim, db.VectorFlat, db.DistanceCosine).
		MustBuild()
}
