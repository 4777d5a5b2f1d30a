package outcome

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kailas-cloud/ragrec/internal/domain"
	"github.com/kailas-cloud/ragrec/internal/domain/recommendation"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{nil, ""},
		{domain.NewDimensionMismatch(3, 2), KindDimensionMismatch},
		{fmt.Errorf("build: %w", domain.ErrTemplate), KindTemplate},
		{fmt.Errorf("ollama: %w", domain.ErrModelTimeout), KindModelTimeout},
		{fmt.Errorf("groq: %w", domain.ErrModelUnavailable), KindModelUnavailable},
		{fmt.Errorf("groq: %w: %w", domain.ErrRateLimited, errors.New("rate: wait")), KindRateLimited},
		{domain.ErrInvalidQuery, KindInvalidQuery},
		{fmt.Errorf("embed: %w", domain.ErrEmbeddingProviderError), KindEmbedding},
		{context.Canceled, KindCanceled},
		{errors.New("boom"), KindInternal},
	}
	for _, tc := range tests {
		if got := KindOf(tc.err); got != tc.want {
			t.Errorf("KindOf(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestFailed_RecordsStageAndKind(t *testing.T) {
	o := Failed(StageGenerating, fmt.Errorf("call: %w", domain.ErrModelTimeout))
	if o.Status() != StatusFailed {
		t.Errorf("Status() = %q", o.Status())
	}
	if o.Stage() != StageGenerating || o.Kind() != KindModelTimeout {
		t.Errorf("stage=%q kind=%q", o.Stage(), o.Kind())
	}
	if o.Err() == nil {
		t.Error("Err() should keep the underlying error")
	}
}

func TestGuidance_DistinguishesModelFailures(t *testing.T) {
	timeout := Failed(StageGenerating, domain.ErrModelTimeout)
	unavailable := Failed(StageGenerating, domain.ErrModelUnavailable)
	if timeout.Guidance() == unavailable.Guidance() {
		t.Error("timeout and unavailable must give different guidance")
	}
	ok := Success([]recommendation.Recommendation{{Title: "Dune", Score: 0.9}}, "static")
	if ok.Guidance() != "" {
		t.Errorf("success should have no guidance, got %q", ok.Guidance())
	}
}

func TestEmpty(t *testing.T) {
	o := Empty("No matches", "ollama")
	if o.Status() != StatusEmpty || o.Reason() != "No matches" || o.Backend() != "ollama" {
		t.Errorf("unexpected outcome: %+v", o)
	}
	if len(o.Recommendations()) != 0 {
		t.Error("empty outcome must carry no recommendations")
	}
}

func TestGuidance_RateLimitedIsNotInternal(t *testing.T) {
	o := Failed(StageGenerating, fmt.Errorf("groq: %w", domain.ErrRateLimited))
	internal := Failed(StageGenerating, errors.New("boom"))
	if o.Kind() != KindRateLimited {
		t.Fatalf("Kind() = %q", o.Kind())
	}
	if o.Guidance() == internal.Guidance() {
		t.Errorf("rate limiting should have its own guidance, got %q", o.Guidance())
	}
}
