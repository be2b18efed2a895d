package llm

import (
	"context"
	"errors"
)

var (
	// ErrUnknownProvider is returned by the router for an unregistered name.
	ErrUnknownProvider = errors.New("llm: unknown provider")

	// ErrProviderUnavailable wraps calls rejected by an open circuit breaker.
	ErrProviderUnavailable = errors.New("llm: provider unavailable")

	// ErrEmbeddingUnsupported is returned by chat-only adapters.
	ErrEmbeddingUnsupported = errors.New("llm: embeddings not supported by provider")
)

// LLMProvider is implemented by every adapter. The application is never
// coupled to a specific vendor.
type LLMProvider interface {
	// ChatCompletion performs a non-streaming chat completion.
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// Embed computes dense vectors for a batch of texts.
	Embed(ctx context.Context, req EmbedRequest) (*EmbedResponse, error)

	// ModelInfo returns static metadata about the provider/model.
	ModelInfo() ModelMeta

	// HealthCheck returns nil if the provider is reachable.
	HealthCheck(ctx context.Context) error
}

// Embedder is the subset of LLMProvider used by ingestion and search.
type Embedder interface {
	Embed(ctx context.Context, req EmbedRequest) (*EmbedResponse, error)
}
