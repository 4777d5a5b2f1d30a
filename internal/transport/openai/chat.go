package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragrec/internal/domain"
)

// DefaultChatTimeout applies when ChatConfig.Timeout is zero. Local models may need minutes to warm up.
const DefaultChatTimeout = 120 * time.Second

// ChatConfig holds the chat completion backend settings.
type ChatConfig struct {
	Name        string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	// JSONMode asks the backend for a JSON object response (response_format=json_object).
	JSONMode bool
	Logger   *zap.Logger
}

// ChatClient generates text through an OpenAI-compatible chat completions endpoint
// (OpenAI, Groq, Ollama /v1).
type ChatClient struct {
	client      *openai.Client
	name        string
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	jsonMode    bool
	logger      *zap.Logger
}

// NewChatClient creates a chat completion backend.
func NewChatClient(cfg *ChatConfig) *ChatClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultChatTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ChatClient{
		client:      openai.NewClientWithConfig(clientCfg),
		name:        cfg.Name,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     timeout,
		jsonMode:    cfg.JSONMode,
		logger:      logger,
	}
}

// Name identifies the backend in outcomes, logs and metrics.
func (c *ChatClient) Name() string { return c.name }

// Generate sends prompt as a single user message and returns the first choice verbatim.
// Deadline expiry maps to domain.ErrModelTimeout, every other failure to domain.ErrModelUnavailable.
func (c *ChatClient) Generate(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if c.jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(callCtx, req)
	if err != nil {
		return "", c.classify(ctx, callCtx, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: empty choices: %w", c.name, domain.ErrModelUnavailable)
	}

	c.logger.Debug("Chat completion",
		zap.String("backend", c.name),
		zap.String("model", c.model),
		zap.Duration("duration", time.Since(start)),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	return resp.Choices[0].Message.Content, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *ChatClient) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// classify maps a transport error onto the model error taxonomy.
// Cancellation of the caller's context is passed through untouched.
func (c *ChatClient) classify(parent, callCtx context.Context, err error) error {
	if parent.Err() != nil && errors.Is(parent.Err(), context.Canceled) {
		return fmt.Errorf("%s: %w", c.name, parent.Err())
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: no response within %s: %w", c.name, c.timeout, domain.ErrModelTimeout)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("%s: chat API error %d: %s: %w", c.name, reqErr.HTTPStatusCode, detail, domain.ErrModelUnavailable)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: chat API error %d: %s: %w", c.name, apiErr.HTTPStatusCode, apiErr.Message, domain.ErrModelUnavailable)
	}

	return fmt.Errorf("%s: chat request failed: %v: %w", c.name, err, domain.ErrModelUnavailable)
}
