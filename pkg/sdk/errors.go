package ragrec

import "github.com/kailas-cloud/ragrec/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidItem            = domain.ErrInvalidItem
	ErrInvalidQuery           = domain.ErrInvalidQuery
	ErrDimensionMismatch      = domain.ErrDimensionMismatch
	ErrTemplate               = domain.ErrTemplate
	ErrModelTimeout           = domain.ErrModelTimeout
	ErrModelUnavailable       = domain.ErrModelUnavailable
	ErrParseFailure           = domain.ErrParseFailure
	ErrRateLimited            = domain.ErrRateLimited
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
)
