package ingest

import (
	"context"

	"github.com/kailas-cloud/ragrec/internal/domain/item"
)

// Index is the write side of the corpus index.
type Index interface {
	Add(ctx context.Context, items []item.Vectorized) error
	Count(ctx context.Context) (int, error)
	Reset(ctx context.Context) error
}
