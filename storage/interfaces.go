package storage

import (
	"context"

	"github.com/poiesic/lectern/core"
)

// DocumentRepository stores uploaded documents and their ingestion status.
type DocumentRepository interface {
	// CreateDocument inserts a new document. Empty IDs are generated, status
	// defaults to pending and timestamps are set.
	// Returns ErrDuplicateKey if the ID is taken.
	CreateDocument(ctx context.Context, doc *core.Document) (*core.Document, error)

	// GetDocument returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id string) (*core.Document, error)

	// UpdateStatus sets status and message in one write. The move must pass
	// core.ValidateTransition. Returns ErrNotFound if the document doesn't exist.
	UpdateStatus(ctx context.Context, id string, status core.DocumentStatus, message string) (*core.Document, error)

	// SetTopics replaces the document's topics.
	SetTopics(ctx context.Context, id string, topics []string) error

	// ListDocuments returns a project's documents ordered by creation time.
	// When statuses are given only documents in one of them are returned.
	ListDocuments(ctx context.Context, projectID string, statuses ...core.DocumentStatus) ([]*core.Document, error)

	// DeleteDocument removes the record. Returns ErrNotFound if it doesn't exist.
	DeleteDocument(ctx context.Context, id string) error
}

// ChatRepository stores conversation turns.
type ChatRepository interface {
	// AddChatMessages appends messages, assigning IDs, sequence numbers and
	// CreatedAt where unset.
	AddChatMessages(ctx context.Context, messages ...*core.ChatMessage) ([]*core.ChatMessage, error)

	// History returns a project's messages oldest first. A positive limit
	// keeps only the most recent limit messages.
	History(ctx context.Context, projectID string, limit int) ([]*core.ChatMessage, error)
}

// QuizRepository stores generated quizzes and their graded submissions.
type QuizRepository interface {
	SaveQuiz(ctx context.Context, quiz *core.Quiz) error

	// GetQuiz returns ErrNotFound if the quiz doesn't exist.
	GetQuiz(ctx context.Context, id string) (*core.Quiz, error)

	// AddResult appends a graded submission.
	AddResult(ctx context.Context, result *core.QuizResult) error

	// Results returns a quiz's submissions oldest first.
	Results(ctx context.Context, quizID string) ([]*core.QuizResult, error)
}

// SummaryRepository caches generated project summaries.
type SummaryRepository interface {
	// GetSummary returns ErrNotFound on a cache miss.
	GetSummary(ctx context.Context, key string) (*core.Summary, error)

	PutSummary(ctx context.Context, summary *core.Summary) error

	// InvalidateProject drops every cached summary of a project.
	InvalidateProject(ctx context.Context, projectID string) error
}
