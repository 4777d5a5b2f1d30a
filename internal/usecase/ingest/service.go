// Package ingest embeds corpus items and adds them to the index.
package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/ragrec/internal/domain"
	"github.com/kailas-cloud/ragrec/internal/domain/item"
	"github.com/kailas-cloud/ragrec/internal/ingest/source"
	logpkg "github.com/kailas-cloud/ragrec/internal/logger"
	"github.com/kailas-cloud/ragrec/internal/metrics"
)

// DefaultConcurrency bounds parallel source loads.
const DefaultConcurrency = 4

// Report summarizes one ingestion run.
type Report struct {
	Items    int
	BySource map[string]int
}

// Service loads, embeds and indexes corpus items.
type Service struct {
	embed       domain.Embedder
	index       Index
	concurrency int
	logger      *zap.Logger
}

// New creates an ingestion service. concurrency <= 0 uses DefaultConcurrency.
func New(embed domain.Embedder, index Index, concurrency int, logger *zap.Logger) *Service {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{embed: embed, index: index, concurrency: concurrency, logger: logger}
}

// KindAPI labels items handed to Add directly rather than read by a loader.
const KindAPI = "api"

// Load runs every loader concurrently and returns all items in loader order.
// The first failing loader cancels the rest.
func (s *Service) Load(ctx context.Context, loaders []source.Loader) ([]item.CorpusItem, error) {
	batches, err := s.load(ctx, loaders)
	if err != nil {
		return nil, err
	}
	var all []item.CorpusItem
	for _, b := range batches {
		all = append(all, b...)
	}
	return all, nil
}

func (s *Service) load(ctx context.Context, loaders []source.Loader) ([][]item.CorpusItem, error) {
	results := make([][]item.CorpusItem, len(loaders))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, l := range loaders {
		g.Go(func() error {
			items, err := l.Load(gctx)
			if err != nil {
				return fmt.Errorf("load %s %s: %w", l.Kind(), l.Origin(), err)
			}
			s.logger.Debug("Source loaded",
				zap.String("kind", l.Kind()),
				zap.String("origin", l.Origin()),
				zap.Int("items", len(items)),
			)
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err //nolint:wrapcheck // already wrapped per loader
	}
	return results, nil
}

// Ingest loads every source and indexes the result as one batch.
// Items are counted by the kind of loader that produced them.
func (s *Service) Ingest(ctx context.Context, loaders []source.Loader) (Report, error) {
	batches, err := s.load(ctx, loaders)
	if err != nil {
		return Report{}, err
	}
	var all []item.CorpusItem
	bySource := make(map[string]int)
	for i, b := range batches {
		if len(b) == 0 {
			continue
		}
		all = append(all, b...)
		bySource[loaders[i].Kind()] += len(b)
	}
	return s.add(ctx, all, bySource)
}

// Add embeds items with one batch call and appends them in one atomic index
// write: either every item becomes searchable or none does. The items are
// counted under KindAPI whatever their tags say.
func (s *Service) Add(ctx context.Context, items []item.CorpusItem) (Report, error) {
	return s.add(ctx, items, map[string]int{KindAPI: len(items)})
}

func (s *Service) add(ctx context.Context, items []item.CorpusItem, bySource map[string]int) (Report, error) {
	if len(items) == 0 {
		return Report{BySource: map[string]int{}}, nil
	}

	texts := make([]string, len(items))
	for i, it := range items {
		texts[i] = it.EmbeddingText()
	}
	res, err := domain.EmbedBatch(ctx, s.embed, texts)
	if err != nil {
		return Report{}, fmt.Errorf("embed %d items: %w", len(items), err)
	}

	batch := make([]item.Vectorized, len(items))
	for i, it := range items {
		batch[i] = item.Vectorized{Item: it, Vector: res.Embeddings[i]}
	}
	if err := s.index.Add(ctx, batch); err != nil {
		return Report{}, fmt.Errorf("index %d items: %w", len(items), err)
	}

	for kind, n := range bySource {
		metrics.IngestItemsTotal.WithLabelValues(kind).Add(float64(n))
	}
	report := Report{Items: len(items), BySource: bySource}

	logpkg.FromContextOr(ctx, s.logger).Info("Items indexed",
		zap.Int("items", report.Items),
		zap.Int("prompt_tokens", res.PromptTokens),
		zap.Any("by_source", report.BySource),
	)
	return report, nil
}

// Count returns the number of indexed items.
func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.index.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// Reset drops the whole corpus.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.index.Reset(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	logpkg.FromContextOr(ctx, s.logger).Info("Corpus reset")
	return nil
}
