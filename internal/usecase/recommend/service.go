// Package recommend runs the retrieval-augmented recommendation pipeline:
// embed the query, retrieve the nearest items, format them into a prompt,
// call the model and validate its answer.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragrec/internal/domain/outcome"
	"github.com/kailas-cloud/ragrec/internal/domain/prompt"
	"github.com/kailas-cloud/ragrec/internal/domain/query"
	"github.com/kailas-cloud/ragrec/internal/domain/retrieval"
	logpkg "github.com/kailas-cloud/ragrec/internal/logger"
	"github.com/kailas-cloud/ragrec/internal/metrics"
)

// DefaultK is the number of items retrieved per query.
const DefaultK = 10

// Config holds per-pipeline settings. Two services built from different
// configs share nothing.
type Config struct {
	K        int              // items to retrieve, DefaultK when <= 0
	MaxChars int              // context block bound, 0 = unbounded
	Template *prompt.Template // prompt.Default() when nil
}

// Service is one configured recommendation pipeline. Safe for concurrent use.
type Service struct {
	embed  Embedder
	index  Index
	gen    Generator
	cfg    Config
	logger *zap.Logger
}

// New creates a pipeline.
func New(embed Embedder, index Index, gen Generator, cfg Config, logger *zap.Logger) *Service {
	if cfg.K <= 0 {
		cfg.K = DefaultK
	}
	if cfg.Template == nil {
		cfg.Template = prompt.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{embed: embed, index: index, gen: gen, cfg: cfg, logger: logger}
}

// K returns the configured retrieval depth.
func (s *Service) K() int { return s.cfg.K }

// Recommend runs the pipeline for q. k <= 0 uses the configured depth.
// Every path ends in an Outcome; failures record the stage they came from.
func (s *Service) Recommend(ctx context.Context, q query.Query, k int) outcome.Outcome {
	if k <= 0 {
		k = s.cfg.K
	}
	log := logpkg.FromContextOr(ctx, s.logger)
	out := s.run(ctx, log, q, k)
	s.observe(log, out)
	return out
}

func (s *Service) run(ctx context.Context, log *zap.Logger, q query.Query, k int) outcome.Outcome {
	var vec []float32
	err := s.stage(outcome.StageEmbedding, func() error {
		res, err := s.embed.Embed(ctx, q.RetrievalText())
		if err != nil {
			return fmt.Errorf("embed query: %w", err)
		}
		vec = res.Embedding
		return nil
	})
	if err != nil {
		return outcome.Failed(outcome.StageEmbedding, err)
	}

	var hits []retrieval.Hit
	err = s.stage(outcome.StageRetrieving, func() error {
		var err error
		if hits, err = s.index.Search(ctx, vec, k); err != nil {
			return fmt.Errorf("search index: %w", err)
		}
		return nil
	})
	if err != nil {
		return outcome.Failed(outcome.StageRetrieving, err)
	}

	done := timeStage(outcome.StageFormatting)
	block := FormatContext(hits, s.cfg.MaxChars)
	done()

	var text string
	err = s.stage(outcome.StagePrompting, func() error {
		var err error
		text, err = s.cfg.Template.Build(map[string]string{
			prompt.SlotProfile: q.Profile(),
			prompt.SlotInput:   q.Input(),
			prompt.SlotContext: block,
		})
		if err != nil {
			return fmt.Errorf("build prompt: %w", err)
		}
		return nil
	})
	if err != nil {
		return outcome.Failed(outcome.StagePrompting, err)
	}

	var answer string
	var backend string
	err = s.stage(outcome.StageGenerating, func() error {
		res, err := s.gen.Generate(ctx, text)
		if err != nil {
			return fmt.Errorf("generate: %w", err)
		}
		answer, backend = res.Text, res.Backend
		return nil
	})
	if err != nil {
		return outcome.Failed(outcome.StageGenerating, err)
	}

	done = timeStage(outcome.StageValidating)
	verdict := Validate(answer)
	done()
	if err := verdict.Err(); err != nil {
		log.Debug("Model answer rejected",
			zap.String("backend", backend),
			zap.Int("answer_len", len(answer)),
			zap.Error(err),
		)
		return outcome.Empty(verdict.Reason, backend)
	}

	log.Debug("Recommendations produced",
		zap.String("backend", backend),
		zap.Int("hits", len(hits)),
		zap.Int("recommendations", len(verdict.Recommendations)),
	)
	return outcome.Success(verdict.Recommendations, backend)
}

func (s *Service) stage(name outcome.Stage, fn func() error) error {
	done := timeStage(name)
	defer done()
	return fn()
}

// timeStage starts the stage clock; calling the returned func records it.
func timeStage(name outcome.Stage) func() {
	start := time.Now()
	return func() {
		metrics.PipelineStageDuration.WithLabelValues(string(name)).Observe(time.Since(start).Seconds())
	}
}

func (s *Service) observe(log *zap.Logger, out outcome.Outcome) {
	metrics.PipelineOutcomesTotal.WithLabelValues(string(out.Status()), string(out.Kind())).Inc()
	if out.Status() != outcome.StatusFailed {
		return
	}

	level := log.Error
	if errors.Is(out.Err(), context.Canceled) {
		level = log.Info
	}
	level("Recommendation pipeline failed",
		zap.String("stage", string(out.Stage())),
		zap.String("kind", string(out.Kind())),
		zap.Error(out.Err()),
	)
}
