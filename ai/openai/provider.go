package openai

import (
	"log/slog"

	"github.com/poiesic/lectern/ai"
)

// Provider serves the embedding and chat halves of one ai.Config.
//
// When both point at the same host they draw from a single request limiter,
// so RequestsPerSecond is a budget for the host and ingestion traffic cannot
// starve answers of their share.
type Provider struct {
	embedder  *Embedder
	generator *Generator
}

// NewProvider validates config and builds both clients.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}
	generator, err := newGenerator(config)
	if err != nil {
		return nil, err
	}
	if config.EmbeddingHost == config.ChatHost {
		generator.limiter = embedder.limiter
	}

	slog.Default().With("component", "openai-provider").Debug("provider ready",
		"embedding_host", config.EmbeddingHost,
		"embedding_model", config.EmbeddingModel,
		"chat_host", config.ChatHost,
		"chat_model", config.ChatModel,
		"requests_per_second", config.RequestsPerSecond,
	)
	return &Provider{embedder: embedder, generator: generator}, nil
}

func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

func (p *Provider) Generator() ai.Generator {
	return p.generator
}

// Close is a no-op: the langchaingo clients hold no connections of their own.
func (p *Provider) Close() error {
	return nil
}
