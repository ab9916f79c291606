package llm

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks docqa/internal/llm Embedder

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder turns text into fixed-size vectors for similarity search.
type Embedder interface {
	// EmbedQuery embeds a single query string.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// EmbedTexts embeds a batch of texts and returns one vector per input.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	// ExpectedSize returns the vector size every embedding is validated against.
	ExpectedSize() int
}

// OpenAIEmbedder generates embeddings via an OpenAI-compatible /v1/embeddings
// endpoint (llama.cpp server, text-embeddings-inference, or OpenAI itself).
type OpenAIEmbedder struct {
	embedder     *embeddings.EmbedderImpl
	model        string
	expectedSize int
}

// NewOpenAIEmbedder creates a new embedder for the given endpoint.
// expectedSize is the expected vector size (from EMBEDDING_VECTOR_SIZE config).
// All embeddings returned by the server are validated against this size.
func NewOpenAIEmbedder(baseURL, apiKey, model string, expectedSize int) (*OpenAIEmbedder, error) {
	if expectedSize <= 0 {
		return nil, fmt.Errorf("invalid expected vector size: %d", expectedSize)
	}

	client, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithToken(apiKey),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	return &OpenAIEmbedder{
		embedder:     embedder,
		model:        model,
		expectedSize: expectedSize,
	}, nil
}

// EmbedQuery generates an embedding for a single query string.
// Validates that the returned vector matches the expected size.
func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vec) != e.expectedSize {
		return nil, fmt.Errorf("embedding has size %d, expected %d", len(vec), e.expectedSize)
	}
	return vec, nil
}

// EmbedTexts generates embeddings for the given texts.
// Returns a slice of float32 vectors, one per input text.
// Validates that all returned vectors match the expected size.
func (e *OpenAIEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("empty input array")
	}

	vecs, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed texts: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(vecs))
	}

	for i, vec := range vecs {
		if len(vec) != e.expectedSize {
			return nil, fmt.Errorf("embedding %d has size %d, expected %d", i, len(vec), e.expectedSize)
		}
	}

	return vecs, nil
}

// ExpectedSize returns the configured vector size.
func (e *OpenAIEmbedder) ExpectedSize() int {
	return e.expectedSize
}

// Model returns the embedding model name.
func (e *OpenAIEmbedder) Model() string {
	return e.model
}
