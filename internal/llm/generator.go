package llm

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_generator.go -package=mocks docqa/internal/llm Generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"docqa/internal/contextutil"
)

// Supported generation backends.
const (
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
)

const (
	// generateAttempts is the total number of completion attempts per call.
	generateAttempts = 2
	// retryBackoff is the pause before the retry attempt.
	retryBackoff = 500 * time.Millisecond
	// generationTemperature keeps answers close to the provided context.
	generationTemperature = 0.1
)

// ErrUnavailable is returned when the backend cannot produce a completion
// after retries. Callers map it to a service-unavailable response.
var ErrUnavailable = errors.New("llm unavailable")

// ErrDisabled is returned when generation is switched off via configuration.
var ErrDisabled = errors.New("llm disabled")

// Generator produces answers from a system role and a user prompt.
type Generator interface {
	// Generate returns the completion text for the given system role and prompt.
	Generate(ctx context.Context, system, prompt string) (string, error)
	// Enabled reports whether generation is switched on.
	Enabled() bool
	// Backend returns the backend name ("ollama" or "openai").
	Backend() string
	// Model returns the chat model name.
	Model() string
}

// ChatClient implements Generator on top of an ollama server or an
// OpenAI-compatible /v1/chat/completions endpoint.
type ChatClient struct {
	model   llms.Model
	backend string
	name    string
	enabled bool
}

// NewChatClient creates a chat client for the configured backend.
func NewChatClient(backend, baseURL, apiKey, model string, enabled bool) (*ChatClient, error) {
	var client llms.Model
	var err error

	switch backend {
	case BackendOllama:
		client, err = ollama.New(
			ollama.WithServerURL(baseURL),
			ollama.WithModel(model),
		)
	case BackendOpenAI:
		client, err = openai.New(
			openai.WithBaseURL(baseURL),
			openai.WithToken(apiKey),
			openai.WithModel(model),
		)
	default:
		return nil, fmt.Errorf("unsupported llm backend: %s", backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", backend, err)
	}

	return &ChatClient{
		model:   client,
		backend: backend,
		name:    model,
		enabled: enabled,
	}, nil
}

// Generate sends the system role and user prompt to the backend and returns
// the completion text. A failed attempt is retried once after a short backoff
// before the call is reported as unavailable.
func (c *ChatClient) Generate(ctx context.Context, system, prompt string) (string, error) {
	if !c.enabled {
		return "", ErrDisabled
	}

	logger := contextutil.LoggerFromContext(ctx)

	msgs := []llms.MessageContent{
		{Role: llms.ChatMessageTypeSystem, Parts: []llms.ContentPart{llms.TextPart(system)}},
		{Role: llms.ChatMessageTypeHuman, Parts: []llms.ContentPart{llms.TextPart(prompt)}},
	}

	var lastErr error
	for attempt := 1; attempt <= generateAttempts; attempt++ {
		resp, err := c.model.GenerateContent(ctx, msgs, llms.WithTemperature(generationTemperature))
		switch {
		case err != nil:
			lastErr = err
		case len(resp.Choices) == 0:
			lastErr = errors.New("no completion choices returned")
		default:
			return resp.Choices[0].Content, nil
		}

		if attempt < generateAttempts {
			logger.WarnContext(ctx, "generation attempt failed, retrying",
				"backend", c.backend,
				"attempt", attempt,
				"error", lastErr,
			)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(retryBackoff):
			}
		}
	}

	return "", fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

// Enabled reports whether generation is switched on.
func (c *ChatClient) Enabled() bool {
	return c.enabled
}

// Backend returns the backend name.
func (c *ChatClient) Backend() string {
	return c.backend
}

// Model returns the chat model name.
func (c *ChatClient) Model() string {
	return c.name
}
