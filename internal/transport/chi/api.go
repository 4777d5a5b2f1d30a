package chi

import (
	"github.com/kailas-cloud/ragrec/internal/domain/recommendation"
	"github.com/kailas-cloud/ragrec/internal/ingest/source"
)

// ErrorCode is a machine-readable error classification in API responses.
type ErrorCode string

// API error codes.
const (
	CodeBadRequest        ErrorCode = "bad_request"
	CodeValidationFailed  ErrorCode = "validation_failed"
	CodeUnauthorized      ErrorCode = "unauthorized"
	CodeDimensionMismatch ErrorCode = "vector_dim_mismatch"
	CodeEmbeddingProvider ErrorCode = "embedding_provider_error"
	CodeInternalError     ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response except failed recommendations.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// RecommendRequest is the body of POST /recommend.
type RecommendRequest struct {
	Profile string `json:"profile"`
	Input   string `json:"input"`
	K       *int   `json:"k,omitempty"`
}

// RecommendResponse mirrors the pipeline outcome.
type RecommendResponse struct {
	Status          string                          `json:"status"`
	Recommendations []recommendation.Recommendation `json:"recommendations"`
	Reason          string                          `json:"reason,omitempty"`
	Backend         string                          `json:"backend,omitempty"`
	Error           *PipelineError                  `json:"error,omitempty"`
}

// PipelineError describes a failed recommendation.
type PipelineError struct {
	Kind    string `json:"kind"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// AddItemsRequest is the body of POST /items.
type AddItemsRequest struct {
	Items []source.ItemRecord `json:"items"`
}

// AddItemsResponse reports what was indexed.
type AddItemsResponse struct {
	Indexed int `json:"indexed"`
}

// CountResponse is the body of GET /items/count.
type CountResponse struct {
	Count int `json:"count"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
