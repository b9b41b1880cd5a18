// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package rag

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/poiesic/lectern/ai"
	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/retrieval"
	"github.com/poiesic/lectern/storage"
)

const (
	// DefaultBudget is the number of chunks retrieved for one answer.
	DefaultBudget = 5
	// DefaultHistoryLimit caps the prior turns sent to the generator.
	DefaultHistoryLimit = 20
	// SourceSnippetLength is how much chunk text a Source carries.
	SourceSnippetLength = 100

	unknownDocumentName = "Unknown"
	answerTemperature   = 0.7
)

// Retriever gathers context for a query.
type Retriever interface {
	Retrieve(ctx context.Context, req retrieval.Request) (*retrieval.Result, error)
}

var _ Retriever = (*retrieval.Engine)(nil)

// Question is one user turn addressed to a project.
type Question struct {
	ProjectID string
	Text      string
	// DocumentIDs restricts retrieval to these documents when non-empty.
	DocumentIDs []string
}

// Answer is the persisted assistant turn.
type Answer struct {
	Text    string
	Sources []core.Source
	Message *core.ChatMessage
}

// Composer answers questions with retrieved context and records both turns.
type Composer struct {
	chat         storage.ChatRepository
	documents    storage.DocumentRepository
	retriever    Retriever
	generator    ai.Generator
	budget       int
	historyLimit int
	expand       bool
	logger       *slog.Logger
}

// Option configures a Composer.
type Option func(*Composer) error

// WithBudget sets how many chunks are retrieved per answer. Default is 5.
func WithBudget(n int) Option {
	return func(c *Composer) error {
		if n < 1 {
			n = 1
		}
		c.budget = n
		return nil
	}
}

// WithHistoryLimit caps how many earlier turns are sent along. Zero sends
// the whole conversation. Default is 20.
func WithHistoryLimit(n int) Option {
	return func(c *Composer) error {
		if n < 0 {
			n = 0
		}
		c.historyLimit = n
		return nil
	}
}

// WithQueryExpansion toggles expansion of the question into alternative
// queries. Default is enabled.
func WithQueryExpansion(enabled bool) Option {
	return func(c *Composer) error {
		c.expand = enabled
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Composer) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewComposer creates a Composer.
func NewComposer(
	chat storage.ChatRepository,
	documents storage.DocumentRepository,
	retriever Retriever,
	generator ai.Generator,
	opts ...Option,
) (*Composer, error) {
	switch {
	case chat == nil:
		return nil, ErrChatRepositoryRequired
	case documents == nil:
		return nil, ErrDocumentRepositoryRequired
	case retriever == nil:
		return nil, ErrRetrieverRequired
	case generator == nil:
		return nil, ErrGeneratorRequired
	}

	c := &Composer{
		chat:         chat,
		documents:    documents,
		retriever:    retriever,
		generator:    generator,
		budget:       DefaultBudget,
		historyLimit: DefaultHistoryLimit,
		expand:       true,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.logger = c.logger.With("component", "composer")
	return c, nil
}

// Ask answers q. The user turn is stored before retrieval; the assistant
// turn only after generation succeeded. On failure nothing but the user
// turn is stored and the error is returned.
func (c *Composer) Ask(ctx context.Context, q Question) (*Answer, error) {
	turn, err := c.begin(ctx, q)
	if err != nil {
		return nil, err
	}

	messages, result, err := c.prepare(ctx, q, turn)
	if err != nil {
		return nil, err
	}

	reply, err := c.generator.Complete(ctx, messages, ai.WithTemperature(answerTemperature))
	if err != nil {
		c.logger.Error("generation failed", "project", q.ProjectID, "err", err)
		return nil, err
	}

	sources := c.Sources(ctx, result.Hits)
	return c.finish(ctx, q.ProjectID, reply, sources)
}

// AskStream answers q while writing the answer to w as it is generated,
// followed by SourcesMarker and the JSON sources. An error is returned only
// when the user turn could not be stored, before anything was written.
//
// Once streaming began, failures are written inline and the assistant turn
// is stored with exactly the text the consumer received. Cancelling ctx
// stops generation but the partial answer is still stored.
func (c *Composer) AskStream(ctx context.Context, w io.Writer, q Question) error {
	turn, err := c.begin(ctx, q)
	if err != nil {
		return err
	}

	asm := NewAssembler(w)
	defer func() {
		if cerr := asm.Close(); cerr != nil {
			c.logger.Warn("failed to finish answer stream", "project", q.ProjectID, "err", cerr)
		}
		if _, err := c.finish(context.WithoutCancel(ctx), q.ProjectID, asm.Text(), asm.Sources()); err != nil {
			c.logger.Error("failed to store streamed answer", "project", q.ProjectID, "err", err)
		}
	}()

	messages, result, err := c.prepare(ctx, q, turn)
	if err != nil {
		asm.Fail(err)
		return nil
	}
	asm.SetSources(c.Sources(ctx, result.Hits))

	if _, err := c.generator.Stream(ctx, messages, asm.Delta, ai.WithTemperature(answerTemperature)); err != nil {
		c.logger.Warn("stream ended with error", "project", q.ProjectID, "err", err)
		asm.Fail(err)
	}
	return nil
}

// begin validates q and stores the user turn.
func (c *Composer) begin(ctx context.Context, q Question) (*core.ChatMessage, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, ErrEmptyQuestion
	}
	added, err := c.chat.AddChatMessages(ctx, &core.ChatMessage{
		ProjectID: q.ProjectID,
		Role:      core.RoleUser,
		Content:   q.Text,
	})
	if err != nil {
		return nil, fmt.Errorf("storing question: %w", err)
	}
	return added[0], nil
}

// prepare retrieves context and assembles the generation request: system
// instructions with context, earlier turns, then the question.
func (c *Composer) prepare(ctx context.Context, q Question, turn *core.ChatMessage) ([]ai.Message, *retrieval.Result, error) {
	limit := c.historyLimit
	if limit > 0 {
		limit++ // the current turn is dropped below
	}
	history, err := c.chat.History(ctx, q.ProjectID, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("loading history: %w", err)
	}

	result, err := c.retriever.Retrieve(ctx, retrieval.Request{
		Collection:  core.CollectionName(q.ProjectID),
		Query:       q.Text,
		Expand:      c.expand,
		Budget:      c.budget,
		DocumentIDs: q.DocumentIDs,
	})
	if err != nil {
		c.logger.Error("retrieval failed", "project", q.ProjectID, "err", err)
		return nil, nil, err
	}
	if result.Context == "" {
		c.logger.Debug("no context found, answering without documents", "project", q.ProjectID)
	}

	messages := make([]ai.Message, 0, len(history)+2)
	messages = append(messages, ai.SystemMessage(fmt.Sprintf(answerSystemPrompt, result.Context)))
	for _, m := range history {
		if m.ID == turn.ID {
			continue
		}
		switch m.Role {
		case core.RoleUser:
			messages = append(messages, ai.UserMessage(m.Content))
		case core.RoleAssistant:
			messages = append(messages, ai.AssistantMessage(m.Content))
		}
	}
	messages = append(messages, ai.UserMessage(q.Text))
	return messages, result, nil
}

func (c *Composer) finish(ctx context.Context, projectID, text string, sources []core.Source) (*Answer, error) {
	added, err := c.chat.AddChatMessages(ctx, &core.ChatMessage{
		ProjectID: projectID,
		Role:      core.RoleAssistant,
		Content:   text,
		Sources:   sources,
	})
	if err != nil {
		return nil, fmt.Errorf("storing answer: %w", err)
	}
	return &Answer{Text: text, Sources: sources, Message: added[0]}, nil
}

// Sources lists the documents behind hits, one entry per document in hit
// order, each with a snippet of the first chunk used from it. Names missing
// from the payload are looked up; "Unknown" is used when that fails.
func (c *Composer) Sources(ctx context.Context, hits []core.SearchHit) []core.Source {
	sources := make([]core.Source, 0, len(hits))
	seen := make(map[string]struct{}, len(hits))
	for _, hit := range hits {
		if _, dup := seen[hit.DocumentID]; dup {
			continue
		}
		seen[hit.DocumentID] = struct{}{}
		sources = append(sources, core.Source{
			DocID:     hit.DocumentID,
			DocName:   c.documentName(ctx, hit),
			ChunkText: Snippet(hit.Text),
		})
	}
	return sources
}

func (c *Composer) documentName(ctx context.Context, hit core.SearchHit) string {
	if hit.DocumentName != "" {
		return hit.DocumentName
	}
	if hit.DocumentID == "" {
		return unknownDocumentName
	}
	doc, err := c.documents.GetDocument(ctx, hit.DocumentID)
	if err != nil {
		c.logger.Debug("could not resolve document name", "document", hit.DocumentID, "err", err)
		return unknownDocumentName
	}
	return doc.Filename
}

// Snippet shortens text to SourceSnippetLength runes followed by "...".
func Snippet(text string) string {
	return truncate(text, SourceSnippetLength) + "..."
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
