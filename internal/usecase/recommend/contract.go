package recommend

import (
	"context"

	"github.com/kailas-cloud/ragrec/internal/domain"
	"github.com/kailas-cloud/ragrec/internal/domain/retrieval"
	"github.com/kailas-cloud/ragrec/internal/usecase/generation"
)

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Index finds the k items nearest to a query vector.
type Index interface {
	Search(ctx context.Context, vector []float32, k int) ([]retrieval.Hit, error)
}

// Generator runs a prompt against the configured model backends.
type Generator interface {
	Generate(ctx context.Context, prompt string) (generation.Result, error)
}
