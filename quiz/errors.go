package quiz

import "errors"

var (
	// ErrQuizRepositoryRequired is returned when a quiz repository is not provided.
	ErrQuizRepositoryRequired = errors.New("quiz repository required")
	// ErrRetrieverRequired is returned when a retriever is not provided.
	ErrRetrieverRequired = errors.New("retriever required")
	// ErrGeneratorRequired is returned when a generator is not provided.
	ErrGeneratorRequired = errors.New("generator required")
	// ErrInvalidCount is returned for a non-positive question count.
	ErrInvalidCount = errors.New("question count must be positive")
	// ErrIncompleteQuestion marks a generated question missing a required field.
	ErrIncompleteQuestion = errors.New("incomplete question")
)
