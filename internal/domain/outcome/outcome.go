package outcome

import (
	"context"
	"errors"

	"github.com/kailas-cloud/ragrec/internal/domain"
	"github.com/kailas-cloud/ragrec/internal/domain/recommendation"
)

// Status is the terminal state of one recommendation query.
type Status string

const (
	// StatusSuccess carries at least one validated recommendation.
	StatusSuccess Status = "success"
	// StatusEmpty carries no recommendations and a human-readable reason.
	StatusEmpty Status = "empty"
	// StatusFailed carries the error kind and the stage that failed.
	StatusFailed Status = "failed"
)

// Stage names a pipeline step, in execution order.
type Stage string

const (
	// StageEmbedding vectorizes the query.
	StageEmbedding Stage = "embedding"
	// StageRetrieving runs the k-nearest search.
	StageRetrieving Stage = "retrieving"
	// StageFormatting renders hits into the context block.
	StageFormatting Stage = "formatting"
	// StagePrompting fills the prompt template.
	StagePrompting Stage = "prompting"
	// StageGenerating calls the language model.
	StageGenerating Stage = "generating"
	// StageValidating parses and validates the model output.
	StageValidating Stage = "validating"
)

// ErrorKind classifies a failure so callers can give different guidance.
type ErrorKind string

const (
	// KindDimensionMismatch is an embedder/index contract violation.
	KindDimensionMismatch ErrorKind = "dimension_mismatch"
	// KindTemplate is a prompt template configuration bug.
	KindTemplate ErrorKind = "template_error"
	// KindModelTimeout means the model did not answer before the deadline.
	KindModelTimeout ErrorKind = "model_timeout"
	// KindModelUnavailable means transport, auth or provider failure.
	KindModelUnavailable ErrorKind = "model_unavailable"
	// KindRateLimited means the local call budget for the model ran out.
	KindRateLimited ErrorKind = "model_rate_limited"
	// KindInvalidQuery means the request itself was rejected.
	KindInvalidQuery ErrorKind = "invalid_query"
	// KindEmbedding means the embedding provider failed.
	KindEmbedding ErrorKind = "embedding_unavailable"
	// KindCanceled means the caller went away.
	KindCanceled ErrorKind = "canceled"
	// KindInternal is everything else.
	KindInternal ErrorKind = "internal"
)

// KindOf maps an error to its ErrorKind via the domain sentinels.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrDimensionMismatch):
		return KindDimensionMismatch
	case errors.Is(err, domain.ErrTemplate):
		return KindTemplate
	case errors.Is(err, domain.ErrModelTimeout):
		return KindModelTimeout
	case errors.Is(err, domain.ErrModelUnavailable):
		return KindModelUnavailable
	case errors.Is(err, domain.ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, domain.ErrInvalidQuery):
		return KindInvalidQuery
	case errors.Is(err, domain.ErrEmbeddingProviderError):
		return KindEmbedding
	case errors.Is(err, context.Canceled):
		return KindCanceled
	default:
		return KindInternal
	}
}

// Outcome is the tri-state result handed to the presentation layer.
type Outcome struct {
	status          Status
	recommendations []recommendation.Recommendation
	reason          string
	kind            ErrorKind
	stage           Stage
	backend         string
	err             error
}

// Success creates a successful outcome. recs must be non-empty.
func Success(recs []recommendation.Recommendation, backend string) Outcome {
	return Outcome{status: StatusSuccess, recommendations: recs, backend: backend}
}

// Empty creates a no-result outcome with a human-readable reason.
func Empty(reason, backend string) Outcome {
	return Outcome{status: StatusEmpty, reason: reason, backend: backend}
}

// Failed creates a failed outcome recording the originating stage.
func Failed(stage Stage, err error) Outcome {
	return Outcome{status: StatusFailed, kind: KindOf(err), stage: stage, err: err}
}

// Status returns the terminal state.
func (o Outcome) Status() Status { return o.status }

// Recommendations returns validated recommendations (success only).
func (o Outcome) Recommendations() []recommendation.Recommendation { return o.recommendations }

// Reason returns why no recommendations were produced (empty only).
func (o Outcome) Reason() string { return o.reason }

// Kind returns the error classification (failed only).
func (o Outcome) Kind() ErrorKind { return o.kind }

// Stage returns the stage that failed (failed only).
func (o Outcome) Stage() Stage { return o.stage }

// Backend returns the model backend that produced the answer, if any.
func (o Outcome) Backend() string { return o.backend }

// Err returns the underlying error for diagnostics (failed only). Not for display.
func (o Outcome) Err() error { return o.err }

// Guidance returns a user-facing hint for failed outcomes.
func (o Outcome) Guidance() string {
	switch o.kind {
	case KindModelTimeout:
		return "The model did not answer in time. It may still be loading, try again shortly."
	case KindModelUnavailable:
		return "The model backend is unreachable. Check that it is running and the credentials are valid."
	case KindRateLimited:
		return "The model backend is busy. Try again in a moment."
	case KindEmbedding:
		return "The embedding provider is unreachable. Check its configuration."
	case KindDimensionMismatch:
		return "The index was built with a different embedding model. Re-ingest the corpus."
	case KindTemplate:
		return "The prompt template is misconfigured."
	case KindInvalidQuery:
		return "The query is invalid."
	case KindCanceled:
		return "The request was canceled."
	case "":
		return ""
	default:
		return "Internal error."
	}
}
