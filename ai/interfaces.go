package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// DeltaFunc receives one streamed text delta. Returning an error stops the stream.
type DeltaFunc func(ctx context.Context, delta string) error

// Generator produces text from a conversation.
// Implementations must be thread-safe for concurrent use.
type Generator interface {
	// Complete returns the full generated reply.
	Complete(ctx context.Context, messages []Message, opts ...GenerateOption) (string, error)

	// Stream delivers the reply as a sequence of deltas to onDelta and returns
	// the concatenated text. On error the returned text holds whatever was
	// delivered before the failure.
	Stream(ctx context.Context, messages []Message, onDelta DeltaFunc, opts ...GenerateOption) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Generator returns the text generation service.
	Generator() Generator

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
