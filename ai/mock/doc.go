// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.Generator,
// and ai.AIProvider for use in unit tests. The mocks are safe for concurrent
// use, so they can be driven by the ingestion scheduler's worker pool.
//
// # Usage in Tests
//
//	embedder := mock.NewMockEmbedder()
//	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
//	    return nil, core.ErrRateLimited
//	}
//
//	generator := mock.NewMockGenerator()
//	generator.Deltas = []string{"Hello", " world"}
//
// # Default Behavior
//
//   - MockEmbedder: returns deterministic unit vectors based on text hash
//   - MockGenerator: returns Reply, streamed as space-delimited deltas
//   - MockProvider: aggregates a mock embedder and generator
package mock
