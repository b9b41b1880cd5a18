package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/lectern/ai"
	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/storage"
	"github.com/poiesic/lectern/vectorindex"
)

const (
	// DefaultSummaryChunks is how many leading chunks of each document are read.
	DefaultSummaryChunks = 3
	// DefaultSummaryChars caps the excerpt text sent to the generator.
	DefaultSummaryChars = 10000

	// Replies returned without calling the generator.
	NoDocumentsSummary = "No documents found/selected."
	UnreadableSummary  = "Unable to read content."
)

// Summarizer writes an overview of a project's completed documents from the
// beginning of each one. Generated summaries are cached per selection.
type Summarizer struct {
	documents storage.DocumentRepository
	summaries storage.SummaryRepository
	index     vectorindex.Index
	generator ai.Generator
	chunks    int
	maxChars  int
	logger    *slog.Logger
}

// SummarizerOption configures a Summarizer.
type SummarizerOption func(*Summarizer) error

// WithSummaryChunks sets how many leading chunks per document are read.
func WithSummaryChunks(n int) SummarizerOption {
	return func(s *Summarizer) error {
		if n < 1 {
			n = 1
		}
		s.chunks = n
		return nil
	}
}

// WithSummaryLogger sets a custom logger.
func WithSummaryLogger(logger *slog.Logger) SummarizerOption {
	return func(s *Summarizer) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSummarizer creates a Summarizer.
func NewSummarizer(
	documents storage.DocumentRepository,
	summaries storage.SummaryRepository,
	index vectorindex.Index,
	generator ai.Generator,
	opts ...SummarizerOption,
) (*Summarizer, error) {
	switch {
	case documents == nil:
		return nil, ErrDocumentRepositoryRequired
	case summaries == nil:
		return nil, ErrSummaryRepositoryRequired
	case index == nil:
		return nil, ErrIndexRequired
	case generator == nil:
		return nil, ErrGeneratorRequired
	}

	s := &Summarizer{
		documents: documents,
		summaries: summaries,
		index:     index,
		generator: generator,
		chunks:    DefaultSummaryChunks,
		maxChars:  DefaultSummaryChars,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "summarizer")
	return s, nil
}

// SummaryKey identifies the cached summary of a project restricted to
// selected documents. The order of selected does not matter.
func SummaryKey(projectID string, selected []string) string {
	parts := make([]string, 0, len(selected)+1)
	parts = append(parts, "project:"+projectID)
	for _, id := range selected {
		parts = append(parts, "document:"+id)
	}
	return core.ContentKey(parts...)
}

// Summarize returns the summary of the project's completed documents,
// restricted to selected when non-empty.
func (s *Summarizer) Summarize(ctx context.Context, projectID string, selected []string) (*core.Summary, error) {
	key := SummaryKey(projectID, selected)
	cached, err := s.summaries.GetSummary(ctx, key)
	switch {
	case err == nil:
		s.logger.Debug("returning cached summary", "project", projectID)
		return cached, nil
	case !errors.Is(err, storage.ErrNotFound):
		s.logger.Warn("failed to read cached summary", "project", projectID, "err", err)
	}

	docs, err := s.documents.ListDocuments(ctx, projectID, core.StatusCompleted)
	if err != nil {
		return nil, err
	}
	docs = restrict(docs, selected)
	if len(docs) == 0 {
		return &core.Summary{Key: key, ProjectID: projectID, Text: NoDocumentsSummary, Sources: []core.Source{}}, nil
	}

	collection := core.CollectionName(projectID)
	var excerpts strings.Builder
	sources := make([]core.Source, 0, len(docs))
	for _, doc := range docs {
		chunks, err := s.index.Scroll(ctx, collection, vectorindex.LeadingChunks(doc.ID, s.chunks), s.chunks)
		if err != nil {
			return nil, err
		}
		if len(chunks) == 0 {
			continue
		}
		fmt.Fprintf(&excerpts, "--- Document: %s ---\n%s\n\n", doc.Filename, strings.Join(chunks, "\n"))
		sources = append(sources, core.Source{DocID: doc.ID, DocName: doc.Filename, ChunkText: Snippet(chunks[0])})
	}
	if excerpts.Len() == 0 {
		return &core.Summary{Key: key, ProjectID: projectID, Text: UnreadableSummary, Sources: []core.Source{}}, nil
	}

	qualifier := ""
	if len(selected) > 0 {
		qualifier = "selected "
	}
	prompt := fmt.Sprintf(summaryPrompt, qualifier, truncate(excerpts.String(), s.maxChars))
	text, err := s.generator.Complete(ctx, []ai.Message{ai.UserMessage(prompt)}, ai.WithTemperature(answerTemperature))
	if err != nil {
		return nil, fmt.Errorf("generating summary: %w", err)
	}

	summary := &core.Summary{Key: key, ProjectID: projectID, Text: text, Sources: sources}
	if err := s.summaries.PutSummary(ctx, summary); err != nil {
		s.logger.Error("failed to cache summary", "project", projectID, "err", err)
	}
	return summary, nil
}

// Invalidate drops every cached summary of the project.
func (s *Summarizer) Invalidate(ctx context.Context, projectID string) error {
	return s.summaries.InvalidateProject(ctx, projectID)
}

func restrict(docs []*core.Document, selected []string) []*core.Document {
	if len(selected) == 0 {
		return docs
	}
	allowed := make(map[string]struct{}, len(selected))
	for _, id := range selected {
		allowed[id] = struct{}{}
	}
	out := docs[:0]
	for _, d := range docs {
		if _, ok := allowed[d.ID]; ok {
			out = append(out, d)
		}
	}
	return out
}
