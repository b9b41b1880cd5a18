package retrieval

import "errors"

var (
	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrGeneratorRequired is returned when a generator is not provided.
	ErrGeneratorRequired = errors.New("generator required")

	// ErrIndexRequired is returned when a vector index is not provided.
	ErrIndexRequired = errors.New("vector index required")

	// ErrNoQuery is returned when a request carries neither a query nor seeds.
	ErrNoQuery = errors.New("query required")

	// ErrInvalidBudget is returned when the chunk budget is not positive.
	ErrInvalidBudget = errors.New("budget must be positive")
)
