// Package generation runs prompts against an ordered list of model backends.
package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/ragrec/internal/domain"
	"github.com/kailas-cloud/ragrec/internal/metrics"
)

// ErrNoBackends is returned by Generate when no backend is registered.
var ErrNoBackends = errors.New("no model backends configured")

// Options tune how a single backend is called.
type Options struct {
	// MaxAttempts bounds calls to this backend per request; values below 1 mean 1.
	MaxAttempts int
	// RetryBackoff is the pause between attempts on the same backend.
	RetryBackoff time.Duration
	// RequestsPerSecond caps the call rate to this backend; 0 disables limiting.
	RequestsPerSecond float64
}

// Result is a completion plus the backend that produced it.
type Result struct {
	Text    string
	Backend string
}

type entry struct {
	backend Backend
	opts    Options
	limiter *rate.Limiter
}

// Fallback tries backends in registration order. Timeouts and unavailability
// are retried up to MaxAttempts and then hand over to the next backend;
// any other error (e.g. caller cancellation) stops immediately.
//
// Fallback is safe for concurrent use once all backends are added.
type Fallback struct {
	entries []entry
	logger  *zap.Logger
}

// New creates an empty fallback list.
func New(logger *zap.Logger) *Fallback {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fallback{logger: logger}
}

// Add appends a backend. Backends are tried in the order they are added.
func (f *Fallback) Add(b Backend, opts Options) *Fallback {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	e := entry{backend: b, opts: opts}
	if opts.RequestsPerSecond > 0 {
		burst := max(1, int(opts.RequestsPerSecond))
		e.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	f.entries = append(f.entries, e)
	return f
}

// Backends returns the registered backends in order.
func (f *Fallback) Backends() []Backend {
	out := make([]Backend, len(f.entries))
	for i := range f.entries {
		out[i] = f.entries[i].backend
	}
	return out
}

// Generate returns the first successful completion.
// When every backend fails, the error of the last attempt is returned wrapped,
// so callers can still tell a timeout from an unavailable backend.
func (f *Fallback) Generate(ctx context.Context, prompt string) (Result, error) {
	if len(f.entries) == 0 {
		return Result{}, fmt.Errorf("generate: %w: %w", ErrNoBackends, domain.ErrModelUnavailable)
	}

	var lastErr error
	for i := range f.entries {
		e := &f.entries[i]
		text, err := f.tryBackend(ctx, e, prompt)
		if err == nil {
			return Result{Text: text, Backend: e.backend.Name()}, nil
		}
		lastErr = err
		if !retriable(err) || ctx.Err() != nil {
			return Result{}, err
		}
		if i < len(f.entries)-1 {
			f.logger.Warn("Model backend failed, trying next",
				zap.String("backend", e.backend.Name()),
				zap.String("next", f.entries[i+1].backend.Name()),
				zap.Error(err),
			)
		}
	}
	return Result{}, fmt.Errorf("all %d model backends failed: %w", len(f.entries), lastErr)
}

func (f *Fallback) tryBackend(ctx context.Context, e *entry, prompt string) (string, error) {
	name := e.backend.Name()
	var lastErr error

	for attempt := 1; attempt <= e.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, e.opts.RetryBackoff); err != nil {
				return "", waitError(name, err)
			}
		}
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				if ctx.Err() != nil {
					return "", waitError(name, err)
				}
				return "", fmt.Errorf("%s: %w: %w", name, domain.ErrRateLimited, err)
			}
		}

		start := time.Now()
		text, err := e.backend.Generate(ctx, prompt)
		metrics.ModelRequestDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		metrics.ModelRequestsTotal.WithLabelValues(name, status(err)).Inc()

		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retriable(err) {
			return "", err
		}
		f.logger.Debug("Model call failed",
			zap.String("backend", name),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", e.opts.MaxAttempts),
			zap.Error(err),
		)
	}
	return "", lastErr
}

// waitError classifies a wait that ended before the backend was called.
// A spent deadline reads as a model timeout; cancellation passes through.
func waitError(name string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", name, domain.ErrModelTimeout, err)
	}
	return fmt.Errorf("%s: %w", name, err)
}

func retriable(err error) bool {
	return errors.Is(err, domain.ErrModelTimeout) || errors.Is(err, domain.ErrModelUnavailable)
}

func status(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrModelTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrModelUnavailable):
		return "unavailable"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
