package generation

import "context"

// Backend is a named language model client.
// Generate returns the raw completion text; failures wrap
// domain.ErrModelTimeout or domain.ErrModelUnavailable.
type Backend interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}
