// Package topics extracts the main topics of indexed documents.
//
// Topics are read from the beginning of a document, where a table of
// contents usually sits, and stored on the Document. Project-wide topics are
// the sorted union over completed documents; documents without topics get
// them generated on demand.
package topics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/lectern/ai"
	"github.com/poiesic/lectern/ai/structured"
	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/storage"
	"github.com/poiesic/lectern/vectorindex"
)

const (
	// DefaultLeadingChunks is how many chunks from the start of a document are read.
	DefaultLeadingChunks = 20
	// DefaultMaxChars caps the text sent to the generator.
	DefaultMaxChars = 15000
	// DefaultConcurrency caps concurrent generation requests in Project.
	DefaultConcurrency = 4

	topicTemperature = 0.5
)

var (
	// ErrDocumentRepositoryRequired is returned when a document repository is not provided.
	ErrDocumentRepositoryRequired = errors.New("document repository required")
	// ErrIndexRequired is returned when a vector index is not provided.
	ErrIndexRequired = errors.New("vector index required")
	// ErrGeneratorRequired is returned when a generator is not provided.
	ErrGeneratorRequired = errors.New("generator required")
	// ErrInvalidConcurrency is returned when the concurrency limit is not positive.
	ErrInvalidConcurrency = errors.New("concurrency must be positive")
)

const topicPrompt = `Analyze the following text from the beginning of a document.
Extract a COMPREHENSIVE list of the main **Table of Contents** entries, Chapters, or Key Topics.
**Rules:**
1. Ignore "Front Matter" (e.g., Preface, Foreword, Copyright, Acknowledgements, List of Abbreviations).
2. Ignore "Back Matter" (e.g., Index, Appendix) unless they are substantial.
3. Focus on the **Core Educational Content**.
4. Capture hierarchical chapter titles if present (e.g., "Part III: Fundamental Rights").
5. Return ONLY a JSON array of strings.
6. Target **15-25 topics** to ensure good coverage.

Text:
%s
`

// ProjectTopics aggregates topics across a project's completed documents.
type ProjectTopics struct {
	All   []string            `json:"all"`
	ByDoc map[string][]string `json:"by_doc"`
}

// Extractor generates and stores document topics.
type Extractor struct {
	documents     storage.DocumentRepository
	index         vectorindex.Index
	generator     ai.Generator
	leadingChunks int
	maxChars      int
	concurrency   int
	logger        *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor) error

// WithLeadingChunks sets how many leading chunks are read. Default is 20.
func WithLeadingChunks(n int) Option {
	return func(e *Extractor) error {
		if n < 1 {
			n = 1
		}
		e.leadingChunks = n
		return nil
	}
}

// WithConcurrency caps how many documents Project generates topics for at
// once. Default is 4.
func WithConcurrency(n int) Option {
	return func(e *Extractor) error {
		if n < 1 {
			return ErrInvalidConcurrency
		}
		e.concurrency = n
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewExtractor creates an Extractor.
func NewExtractor(documents storage.DocumentRepository, index vectorindex.Index, generator ai.Generator, opts ...Option) (*Extractor, error) {
	switch {
	case documents == nil:
		return nil, ErrDocumentRepositoryRequired
	case index == nil:
		return nil, ErrIndexRequired
	case generator == nil:
		return nil, ErrGeneratorRequired
	}

	e := &Extractor{
		documents:     documents,
		index:         index,
		generator:     generator,
		leadingChunks: DefaultLeadingChunks,
		maxChars:      DefaultMaxChars,
		concurrency:   DefaultConcurrency,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	e.logger = e.logger.With("component", "topics")
	return e, nil
}

// Extract generates the topics of one document and stores them when any
// were found. A document without indexed chunks has no topics.
func (e *Extractor) Extract(ctx context.Context, projectID, documentID string) ([]string, error) {
	chunks, err := e.index.Scroll(ctx, core.CollectionName(projectID), vectorindex.LeadingChunks(documentID, e.leadingChunks), e.leadingChunks)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return []string{}, nil
	}

	text := strings.Join(chunks, "\n")
	if r := []rune(text); len(r) > e.maxChars {
		text = string(r[:e.maxChars])
	}
	reply, err := e.generator.Complete(ctx, []ai.Message{ai.UserMessage(fmt.Sprintf(topicPrompt, text))}, ai.WithTemperature(topicTemperature))
	if err != nil {
		return nil, fmt.Errorf("generating topics: %w", err)
	}

	topics, err := structured.Extract[[]string](reply)
	if err != nil {
		return nil, err
	}
	topics = clean(topics)
	if len(topics) == 0 {
		return topics, nil
	}

	if err := e.documents.SetTopics(ctx, documentID, topics); err != nil {
		return nil, fmt.Errorf("storing topics: %w", err)
	}
	e.logger.Info("generated topics", "document", documentID, "count", len(topics))
	return topics, nil
}

// Project returns the topics of every completed document of the project,
// generating them on a bounded pool for documents that have none yet. A failed
// generation is logged and leaves that document without topics.
func (e *Extractor) Project(ctx context.Context, projectID string) (*ProjectTopics, error) {
	docs, err := e.documents.ListDocuments(ctx, projectID, core.StatusCompleted)
	if err != nil {
		return nil, err
	}

	result := &ProjectTopics{All: []string{}, ByDoc: make(map[string][]string, len(docs))}
	var missing []string
	for _, doc := range docs {
		result.ByDoc[doc.ID] = doc.Topics
		if len(doc.Topics) == 0 {
			result.ByDoc[doc.ID] = []string{}
			missing = append(missing, doc.ID)
		}
	}

	if len(missing) > 0 {
		e.logger.Info("generating missing topics", "project", projectID, "documents", len(missing))
		generated, err := e.generateAll(ctx, projectID, missing)
		if err != nil {
			return nil, err
		}
		for i, id := range missing {
			if generated[i] != nil {
				result.ByDoc[id] = generated[i]
			}
		}
	}

	seen := make(map[string]struct{})
	for _, topics := range result.ByDoc {
		for _, t := range topics {
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				result.All = append(result.All, t)
			}
		}
	}
	slices.Sort(result.All)
	return result, nil
}

// generateAll extracts topics for ids on a pool of at most e.concurrency
// workers. Entries stay nil for documents whose generation failed.
func (e *Extractor) generateAll(ctx context.Context, projectID string, ids []string) ([][]string, error) {
	pool, err := ants.NewPool(min(e.concurrency, len(ids)))
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	generated := make([][]string, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					e.logger.Error("topic generation panicked", "document", id, "panic", r)
				}
			}()
			topics, err := e.Extract(ctx, projectID, id)
			if err != nil {
				e.logger.Error("topic generation failed", "document", id, "err", err)
				return
			}
			generated[i] = topics
		})
		if submitErr != nil {
			wg.Done()
			e.logger.Error("error queueing topic generation", "document", id, "err", submitErr)
		}
	}
	wg.Wait()
	return generated, nil
}

// clean trims topics and drops blanks and repeats, keeping order.
func clean(topics []string) []string {
	out := make([]string, 0, len(topics))
	seen := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
