package ragrec

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	dbRedis "github.com/kailas-cloud/ragrec/internal/db/redis"
	"github.com/kailas-cloud/ragrec/internal/domain"
	"github.com/kailas-cloud/ragrec/internal/domain/item"
	"github.com/kailas-cloud/ragrec/internal/domain/outcome"
	"github.com/kailas-cloud/ragrec/internal/domain/prompt"
	"github.com/kailas-cloud/ragrec/internal/domain/query"
	"github.com/kailas-cloud/ragrec/internal/domain/retrieval"
	"github.com/kailas-cloud/ragrec/internal/index/memory"
	"github.com/kailas-cloud/ragrec/internal/ingest/source"
	"github.com/kailas-cloud/ragrec/internal/repository/corpus"
	"github.com/kailas-cloud/ragrec/internal/transport/hashing"
	embeddinguc "github.com/kailas-cloud/ragrec/internal/usecase/embedding"
	"github.com/kailas-cloud/ragrec/internal/usecase/generation"
	healthuc "github.com/kailas-cloud/ragrec/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/ragrec/internal/usecase/ingest"
	recommenduc "github.com/kailas-cloud/ragrec/internal/usecase/recommend"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultKeyPrefix        = "ragrec:"
)

// Internal interfaces for substitution in tests.
type recommendUseCase interface {
	Recommend(ctx context.Context, q query.Query, k int) outcome.Outcome
}

type ingestUseCase interface {
	Add(ctx context.Context, items []item.CorpusItem) (ingestuc.Report, error)
	Ingest(ctx context.Context, loaders []source.Loader) (ingestuc.Report, error)
	Count(ctx context.Context) (int, error)
	Reset(ctx context.Context) error
}

type corpusIndex interface {
	Add(ctx context.Context, items []item.Vectorized) error
	Search(ctx context.Context, vec []float32, k int) ([]retrieval.Hit, error)
	Count(ctx context.Context) (int, error)
	Reset(ctx context.Context) error
	Ping(ctx context.Context) error
}

// Client is the ragrec SDK entry point. Safe for concurrent use.
type Client struct {
	store     *dbRedis.Store
	index     corpusIndex
	recommend recommendUseCase
	ingest    ingestUseCase
	healthSvc *healthuc.Service
	sources   source.Options
	obs       *observer
}

// New creates a Client. With WithRedis or WithValkey it connects and ensures
// the corpus index exists; the context bounds that setup.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{keyPrefix: defaultKeyPrefix}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.embedder == nil && !cfg.hashing {
		return nil, errors.New("ragrec: embedder required (use WithEmbedder or WithHashingEmbedder)")
	}
	if cfg.dimensions <= 0 {
		return nil, fmt.Errorf("ragrec: embedding dimensions must be positive, got %d", cfg.dimensions)
	}
	if len(cfg.backends) == 0 {
		return nil, errors.New("ragrec: at least one model backend required (use WithBackend)")
	}

	tmpl := prompt.Default()
	if cfg.template != "" {
		var err error
		if tmpl, err = prompt.New(cfg.template); err != nil {
			return nil, fmt.Errorf("ragrec: %w", err)
		}
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	c := &Client{obs: obs}
	if err := c.openIndex(ctx, cfg); err != nil {
		return nil, err
	}
	c.wire(cfg, tmpl)
	return c, nil
}

func (c *Client) openIndex(ctx context.Context, cfg *clientConfig) error {
	switch cfg.driver {
	case "":
		idx, err := memory.New(cfg.dimensions)
		if err != nil {
			return fmt.Errorf("ragrec: %w", err)
		}
		c.index = idx
		return nil
	case "valkey", "redis":
	default:
		return fmt.Errorf("ragrec: unknown driver %q", cfg.driver)
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Password: cfg.password,
	})
	if err != nil {
		return fmt.Errorf("ragrec: create %s store: %w", cfg.driver, err)
	}
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return fmt.Errorf("ragrec: database not ready: %w", err)
	}

	repo, err := corpus.New(store, cfg.dimensions, cfg.keyPrefix)
	if err != nil {
		store.Close()
		return fmt.Errorf("ragrec: %w", err)
	}
	if err := repo.EnsureIndex(ctx); err != nil {
		store.Close()
		return fmt.Errorf("ragrec: ensure corpus index: %w", err)
	}
	c.store = store
	c.index = repo
	return nil
}

func (c *Client) wire(cfg *clientConfig, tmpl *prompt.Template) {
	// The SDK reports through slog; internal services stay quiet.
	logger := zap.NewNop()

	var emb domain.Embedder
	var embCheck healthuc.Checker
	provider := "custom"
	if cfg.hashing {
		h, _ := hashing.New(cfg.dimensions) // dimensions validated above
		emb = h
		provider = "hashing"
	} else {
		adapter := &embedderAdapter{inner: cfg.embedder}
		emb = adapter
		if _, ok := cfg.embedder.(HealthChecker); ok {
			embCheck = adapter
		}
	}
	emb = embeddinguc.NewInstrumentedEmbedder(emb, provider, provider, cfg.dimensions, logger)

	gen := generation.New(logger)
	backends := make([]healthuc.Backend, 0, len(cfg.backends))
	for _, b := range cfg.backends {
		gen.Add(b.backend, generation.Options{MaxAttempts: b.attempts})
		backends = append(backends, b.backend)
	}

	ingestSvc := ingestuc.New(emb, c.index, ingestuc.DefaultConcurrency, logger)
	c.ingest = ingestSvc
	c.recommend = recommenduc.New(emb, c.index, gen, recommenduc.Config{
		K:        cfg.k,
		MaxChars: cfg.maxChars,
		Template: tmpl,
	}, logger)
	c.healthSvc = healthuc.New(c.index, embCheck, backends)
	c.sources = source.Options{
		Cleaner: source.NewCleaner(nil, 0),
		Fetcher: source.NewFetcher(source.DefaultFetchTimeout),
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks corpus index availability.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.call("ping", start, err) }()

	if err = c.index.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Add embeds and indexes items as one batch: either all become searchable
// or, on error, none do.
func (c *Client) Add(ctx context.Context, items []Item) (report IngestReport, err error) {
	start := time.Now()
	defer func() { c.obs.call("add", start, err) }()

	domItems := make([]item.CorpusItem, len(items))
	for i, it := range items {
		if domItems[i], err = item.New(it.ID, it.Title, it.Text, it.Tags); err != nil {
			return IngestReport{}, err
		}
	}
	r, err := c.ingest.Add(ctx, domItems)
	if err != nil {
		return IngestReport{}, err
	}
	return IngestReport{Items: r.Items, BySource: r.BySource}, nil
}

// Ingest loads and indexes sources: http(s) URLs, .json item lists, .pdf
// files and plain text files. Nothing is indexed if any source fails.
func (c *Client) Ingest(ctx context.Context, sources ...string) (report IngestReport, err error) {
	start := time.Now()
	defer func() { c.obs.call("ingest", start, err) }()

	loaders := make([]source.Loader, len(sources))
	for i, s := range sources {
		loaders[i] = source.Resolve(s, c.sources)
	}
	r, err := c.ingest.Ingest(ctx, loaders)
	if err != nil {
		return IngestReport{}, err
	}
	return IngestReport{Items: r.Items, BySource: r.BySource}, nil
}

// Count returns the number of indexed items.
func (c *Client) Count(ctx context.Context) (n int, err error) {
	start := time.Now()
	defer func() { c.obs.call("count", start, err) }()

	return c.ingest.Count(ctx)
}

// Reset removes every indexed item.
func (c *Client) Reset(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.call("reset", start, err) }()

	return c.ingest.Reset(ctx)
}

// Recommend runs the pipeline for one request. k <= 0 uses the configured
// retrieval depth. The error is non-nil only for an invalid query; pipeline
// failures are reported in the Outcome.
func (c *Client) Recommend(ctx context.Context, profile, input string, k int) (out Outcome, err error) {
	start := time.Now()
	defer func() { c.obs.recommended(start, out, err) }()

	q, err := query.New(profile, input)
	if err != nil {
		return Outcome{}, err
	}
	return toOutcome(c.recommend.Recommend(ctx, q, k)), nil
}

func toOutcome(o outcome.Outcome) Outcome {
	out := Outcome{
		Status:  string(o.Status()),
		Reason:  o.Reason(),
		Backend: o.Backend(),
	}
	for _, r := range o.Recommendations() {
		out.Recommendations = append(out.Recommendations, Recommendation{
			Title:  r.Title,
			Score:  r.Score,
			Reason: r.Reason,
		})
	}
	if o.Status() == outcome.StatusFailed {
		out.Kind = string(o.Kind())
		out.Stage = string(o.Stage())
		out.Message = o.Guidance()
		out.Err = o.Err()
	}
	return out
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// HealthCheck forwards to the inner embedder when it implements HealthChecker.
func (a *embedderAdapter) HealthCheck(ctx context.Context) error {
	hc, ok := a.inner.(HealthChecker)
	if !ok {
		return nil
	}
	if err := hc.HealthCheck(ctx); err != nil {
		return fmt.Errorf("embedder health: %w", err)
	}
	return nil
}

// BatchEmbed uses the inner batch call when available, one Embed per text otherwise.
func (a *embedderAdapter) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	be, ok := a.inner.(BatchEmbedder)
	if !ok {
		var out domain.BatchEmbeddingResult
		for _, t := range texts {
			r, err := a.Embed(ctx, t)
			if err != nil {
				return domain.BatchEmbeddingResult{}, err
			}
			out.Embeddings = append(out.Embeddings, r.Embedding)
			out.PromptTokens += r.PromptTokens
			out.TotalTokens += r.TotalTokens
		}
		return out, nil
	}
	r, err := be.BatchEmbed(ctx, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   r.Embeddings,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}
