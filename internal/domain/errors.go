package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch signals a vector whose length differs from the index dimensionality.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrTemplate signals a broken prompt template or a missing template slot.
	ErrTemplate = errors.New("template error")
	// ErrModelTimeout signals that the language model did not answer in time.
	ErrModelTimeout = errors.New("model timeout")
	// ErrModelUnavailable signals a transport, auth or provider failure of the language model.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrParseFailure signals unusable model output. Recovered into an empty outcome.
	ErrParseFailure = errors.New("parse failure")
	// ErrInvalidItem signals a corpus item that failed validation.
	ErrInvalidItem = errors.New("invalid item")
	// ErrInvalidQuery signals a query that failed validation.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrRateLimited signals a client-side rate limit wait that could not complete.
	ErrRateLimited = errors.New("rate limited")
)

// DimensionMismatchError wraps ErrDimensionMismatch with the expected and actual lengths.
type DimensionMismatchError struct {
	Expected int
	Got      int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %d, got %d", ErrDimensionMismatch.Error(), e.Expected, e.Got)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// NewDimensionMismatch creates a dimension mismatch error.
func NewDimensionMismatch(expected, got int) error {
	return &DimensionMismatchError{Expected: expected, Got: got}
}

// CheckDimensions returns a dimension mismatch error when len(vec) != dim.
func CheckDimensions(vec []float32, dim int) error {
	if len(vec) != dim {
		return NewDimensionMismatch(dim, len(vec))
	}
	return nil
}
