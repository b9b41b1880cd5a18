package rag

import "errors"

var (
	// ErrChatRepositoryRequired is returned when a chat repository is not provided.
	ErrChatRepositoryRequired = errors.New("chat repository required")

	// ErrDocumentRepositoryRequired is returned when a document repository is not provided.
	ErrDocumentRepositoryRequired = errors.New("document repository required")

	// ErrSummaryRepositoryRequired is returned when a summary repository is not provided.
	ErrSummaryRepositoryRequired = errors.New("summary repository required")

	// ErrRetrieverRequired is returned when a retriever is not provided.
	ErrRetrieverRequired = errors.New("retriever required")

	// ErrGeneratorRequired is returned when a generator is not provided.
	ErrGeneratorRequired = errors.New("generator required")

	// ErrIndexRequired is returned when a vector index is not provided.
	ErrIndexRequired = errors.New("vector index required")

	// ErrEmptyQuestion is returned for a blank question.
	ErrEmptyQuestion = errors.New("question cannot be empty")

	// ErrMalformedStream is returned when a stream lacks the sources marker
	// or its payload is not a JSON array.
	ErrMalformedStream = errors.New("malformed answer stream")

	// ErrStreamClosed is returned when a delta arrives after the sources
	// payload was written.
	ErrStreamClosed = errors.New("answer stream closed")

	// ErrConsumerGone wraps the write error of a consumer that stopped reading.
	ErrConsumerGone = errors.New("stream consumer gone")
)
