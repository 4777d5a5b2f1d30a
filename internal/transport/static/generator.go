// Package static is a model backend that answers every prompt with a fixed response.
// It backs offline demos and tests.
package static

import (
	"context"
	"fmt"
)

// DefaultResponse is returned when no response is configured.
const DefaultResponse = `{"recommendations":[]}`

// Generator returns a canned response.
type Generator struct {
	name     string
	response string
	err      error
}

// New creates a static backend. An empty response falls back to DefaultResponse.
func New(name, response string) *Generator {
	if response == "" {
		response = DefaultResponse
	}
	return &Generator{name: name, response: response}
}

// Failing creates a static backend that always fails with err.
func Failing(name string, err error) *Generator {
	return &Generator{name: name, err: err}
}

// Name identifies the backend.
func (g *Generator) Name() string { return g.name }

// Generate ignores the prompt and returns the configured response or error.
func (g *Generator) Generate(ctx context.Context, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%s: %w", g.name, err)
	}
	if g.err != nil {
		return "", fmt.Errorf("%s: %w", g.name, g.err)
	}
	return g.response, nil
}

// HealthCheck always succeeds.
func (g *Generator) HealthCheck(context.Context) error { return nil }
