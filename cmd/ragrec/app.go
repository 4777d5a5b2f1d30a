package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragrec/internal/config"
	dbRedis "github.com/kailas-cloud/ragrec/internal/db/redis"
	"github.com/kailas-cloud/ragrec/internal/domain"
	"github.com/kailas-cloud/ragrec/internal/domain/item"
	"github.com/kailas-cloud/ragrec/internal/domain/prompt"
	"github.com/kailas-cloud/ragrec/internal/domain/retrieval"
	"github.com/kailas-cloud/ragrec/internal/index/memory"
	"github.com/kailas-cloud/ragrec/internal/ingest/source"
	logpkg "github.com/kailas-cloud/ragrec/internal/logger"
	"github.com/kailas-cloud/ragrec/internal/metrics"
	"github.com/kailas-cloud/ragrec/internal/repository/corpus"
	"github.com/kailas-cloud/ragrec/internal/repository/embcache"
	"github.com/kailas-cloud/ragrec/internal/transport/hashing"
	openaiTransport "github.com/kailas-cloud/ragrec/internal/transport/openai"
	"github.com/kailas-cloud/ragrec/internal/transport/static"
	embeddinguc "github.com/kailas-cloud/ragrec/internal/usecase/embedding"
	"github.com/kailas-cloud/ragrec/internal/usecase/generation"
	healthuc "github.com/kailas-cloud/ragrec/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/ragrec/internal/usecase/ingest"
	recommenduc "github.com/kailas-cloud/ragrec/internal/usecase/recommend"
)

// corpusIndex is what every consumer of the index needs, satisfied by both drivers.
type corpusIndex interface {
	Add(ctx context.Context, items []item.Vectorized) error
	Search(ctx context.Context, vec []float32, k int) ([]retrieval.Hit, error)
	Count(ctx context.Context) (int, error)
	Reset(ctx context.Context) error
	Ping(ctx context.Context) error
}

// app holds the wired pipeline shared by all subcommands.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	recommend *recommenduc.Service
	ingest    *ingestuc.Service
	health    *healthuc.Service
	sources   source.Options
	closers   []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.logger.Sync()
}

// newApp is the composition root.
func newApp(ctx context.Context, flags *rootFlags) (*app, error) {
	cfg, err := flags.load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logpkg.NewLogger(flags.env, firstNonEmpty(flags.logLevel, cfg.Logging.Level))
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	a := &app{cfg: cfg, logger: logger}

	var store *dbRedis.Store
	if len(cfg.Database.Addrs) > 0 && (cfg.Index.Driver != config.DriverMemory || cfg.Embedding.Cache) {
		store, err = connectStore(ctx, cfg, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
	}

	vecCfg, _ := cfg.ActiveVectorizer()

	index, err := buildIndex(ctx, cfg, vecCfg.Dimensions, store)
	if err != nil {
		a.Close()
		return nil, err
	}

	docEmbedder := buildEmbedder(cfg, vecCfg, vecCfg.DocumentInstruction, store, logger)
	queryEmbedder := buildEmbedder(cfg, vecCfg, vecCfg.QueryInstruction, store, logger)
	logger.Info("Embedders created",
		zap.String("provider", vecCfg.Provider),
		zap.String("model", vecCfg.Model),
		zap.Int("dimensions", vecCfg.Dimensions),
	)

	gen, err := buildGenerator(cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	tmpl, err := loadTemplate(cfg.Pipeline.TemplateFile)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.recommend = recommenduc.New(queryEmbedder, index, gen, recommenduc.Config{
		K:        cfg.Retrieval.K,
		MaxChars: cfg.Format.MaxChars,
		Template: tmpl,
	}, logger)
	a.ingest = ingestuc.New(docEmbedder, index, cfg.Ingest.Concurrency, logger)

	backends := make([]healthuc.Backend, 0, len(gen.Backends()))
	for _, b := range gen.Backends() {
		backends = append(backends, b)
	}
	a.health = healthuc.New(index, newEmbeddingHealthChecker(docEmbedder), backends)

	a.sources = source.Options{
		Cleaner:  source.NewCleaner(cfg.Ingest.BannedWords, cfg.Ingest.MaxInputChars),
		MaxPages: cfg.Ingest.MaxPDFPages,
		Fetcher:  source.NewFetcher(time.Duration(cfg.Ingest.FetchTimeoutSec) * time.Second),
	}
	return a, nil
}

func connectStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (*dbRedis.Store, error) {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create database store: %w", err)
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database", zap.Strings("addrs", cfg.Database.Addrs))
	return store, nil
}

func buildIndex(ctx context.Context, cfg config.Config, dim int, store *dbRedis.Store) (corpusIndex, error) {
	if cfg.Index.Driver == config.DriverMemory {
		idx, err := memory.New(dim)
		if err != nil {
			return nil, err
		}
		return idx, nil
	}
	repo, err := corpus.New(store, dim, cfg.Storage.KeyPrefix)
	if err != nil {
		return nil, err
	}
	if err := repo.EnsureIndex(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure corpus index: %w", err)
	}
	return repo, nil
}

// buildEmbedder assembles the decorator chain: Provider -> Cached -> Instrumented -> Instruction
func buildEmbedder(
	cfg config.Config,
	vecCfg config.VectorizerConfig,
	instruction string,
	store *dbRedis.Store,
	logger *zap.Logger,
) domain.Embedder {
	var embedder domain.Embedder
	if vecCfg.Provider == config.ProviderHashing {
		// validated dimensions are positive, New cannot fail here
		h, _ := hashing.New(vecCfg.Dimensions)
		embedder = h
	} else {
		provCfg := cfg.Embedding.Providers[vecCfg.Provider]
		embedder = openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     provCfg.APIKey,
			BaseURL:    provCfg.BaseURL,
			Model:      vecCfg.Model,
			Dimensions: vecCfg.Dimensions,
			Provider:   vecCfg.Provider,
			Logger:     logger,
		})
	}

	if cfg.Embedding.Cache && store != nil {
		embedder = embcache.New(embedder, store, embcache.Options{
			KeyPrefix: cfg.Storage.KeyPrefix + "emb_cache:",
			Model:     vecCfg.Model,
			TTL:       time.Duration(cfg.Storage.CacheTTLSec) * time.Second,
		}, metrics.EmbeddingCacheTotal, logger)
	}

	instrumented := embeddinguc.NewInstrumentedEmbedder(
		embedder, vecCfg.Provider, vecCfg.Model, vecCfg.Dimensions, logger,
	)
	if vecCfg.BatchSize > 0 {
		instrumented = instrumented.WithBatchSize(vecCfg.BatchSize)
	}
	embedder = instrumented

	// Instruction prefix (outermost, cache key includes instruction)
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}
	return embedder
}

func buildGenerator(cfg config.Config, logger *zap.Logger) (*generation.Fallback, error) {
	gen := generation.New(logger)
	for _, b := range cfg.LLM.Backends {
		var backend generation.Backend
		switch b.Type {
		case config.BackendOpenAI, config.BackendOllama:
			backend = openaiTransport.NewChatClient(&openaiTransport.ChatConfig{
				Name:        b.Name,
				APIKey:      b.APIKey,
				BaseURL:     b.BaseURL,
				Model:       b.Model,
				Temperature: b.Temperature,
				MaxTokens:   b.MaxTokens,
				Timeout:     time.Duration(b.TimeoutSec) * time.Second,
				JSONMode:    b.JSONMode,
				Logger:      logger,
			})
		case config.BackendStatic:
			backend = static.New(b.Name, b.Response)
		default:
			return nil, fmt.Errorf("unknown backend type %q", b.Type)
		}
		gen.Add(backend, generation.Options{
			MaxAttempts:       b.MaxAttempts,
			RetryBackoff:      time.Duration(b.RetryBackoffMs) * time.Millisecond,
			RequestsPerSecond: b.RequestsPerSecond,
		})
		logger.Info("Model backend registered",
			zap.String("name", b.Name),
			zap.String("type", b.Type),
			zap.String("model", b.Model),
		)
	}
	return gen, nil
}

func loadTemplate(path string) (*prompt.Template, error) {
	if path == "" {
		return prompt.Default(), nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt template: %w", err)
	}
	tmpl, err := prompt.New(string(data))
	if err != nil {
		return nil, fmt.Errorf("prompt template %s: %w", path, err)
	}
	return tmpl, nil
}

// embeddingHealthChecker wraps domain.Embedder to implement health.Checker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
