package ragrec

import (
	"context"
	"time"

	openaiTransport "github.com/kailas-cloud/ragrec/internal/transport/openai"
	"github.com/kailas-cloud/ragrec/internal/transport/static"
)

// Backend is a language model that turns a prompt into raw text.
// Generate should wrap ErrModelTimeout or ErrModelUnavailable so the client
// knows when to retry or fall back to the next backend.
type Backend interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// OpenAIBackend talks to any OpenAI-compatible chat completions endpoint
// (OpenAI, Groq, Ollama /v1). Empty baseURL means api.openai.com.
func OpenAIBackend(name, apiKey, baseURL, model string) Backend {
	return openaiTransport.NewChatClient(&openaiTransport.ChatConfig{
		Name:     name,
		APIKey:   apiKey,
		BaseURL:  baseURL,
		Model:    model,
		Timeout:  2 * time.Minute,
		JSONMode: true,
	})
}

// StaticBackend always answers with response, or with an empty recommendation
// list when response is empty. Useful offline and in tests.
func StaticBackend(name, response string) Backend {
	return static.New(name, response)
}
