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

// Package lectern turns uploaded documents into a searchable knowledge base
// and answers questions about it.
//
// An Engine owns the shared clients (storage, vector index, AI provider) and
// the components built over them. Uploads return at once; processing runs on
// a background pipeline and is observed through the document status.
package lectern

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/lectern/ai"
	"github.com/poiesic/lectern/ai/openai"
	"github.com/poiesic/lectern/chunk"
	"github.com/poiesic/lectern/config"
	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/extract"
	"github.com/poiesic/lectern/ingestion"
	"github.com/poiesic/lectern/quiz"
	"github.com/poiesic/lectern/rag"
	"github.com/poiesic/lectern/retrieval"
	"github.com/poiesic/lectern/storage"
	"github.com/poiesic/lectern/storage/badger"
	"github.com/poiesic/lectern/topics"
	"github.com/poiesic/lectern/vectorindex"
	"github.com/poiesic/lectern/vectorindex/memory"
	"github.com/poiesic/lectern/vectorindex/qdrant"
)

// ErrProjectRequired is returned when an upload names no project.
var ErrProjectRequired = errors.New("project id required")

// Engine wires every component over one set of shared clients.
type Engine struct {
	cfg        *config.Config
	repos      *badger.Repositories
	index      vectorindex.Index
	provider   ai.AIProvider
	pipeline   *ingestion.Pipeline
	composer   *rag.Composer
	summarizer *rag.Summarizer
	topics     *topics.Extractor
	quizzes    *quiz.Generator
	logger     *slog.Logger

	ownsRepos    bool
	ownsProvider bool
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	config        *config.Config
	repos         *badger.Repositories
	index         vectorindex.Index
	provider      ai.AIProvider
	logger        *slog.Logger
	schedulerOpts []ingestion.SchedulerOption
}

// WithConfig sets the configuration. Default is config.Default().
func WithConfig(cfg *config.Config) EngineOption {
	return func(o *engineOptions) {
		o.config = cfg
	}
}

// WithRepositories uses already opened repositories instead of opening the
// configured store. The caller keeps ownership.
func WithRepositories(repos *badger.Repositories) EngineOption {
	return func(o *engineOptions) {
		o.repos = repos
	}
}

// WithIndex uses index instead of the configured vector index.
func WithIndex(index vectorindex.Index) EngineOption {
	return func(o *engineOptions) {
		o.index = index
	}
}

// WithProvider uses provider instead of the configured AI services. The
// caller keeps ownership.
func WithProvider(provider ai.AIProvider) EngineOption {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// WithSchedulerOptions appends options to the batch scheduler, after the
// ones derived from the configuration.
func WithSchedulerOptions(opts ...ingestion.SchedulerOption) EngineOption {
	return func(o *engineOptions) {
		o.schedulerOpts = append(o.schedulerOpts, opts...)
	}
}

// NewEngine builds an Engine. Clients not supplied through options are
// created from the configuration.
func NewEngine(opts ...EngineOption) (*Engine, error) {
	options := &engineOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.config == nil {
		options.config = config.Default()
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	cfg := options.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:      cfg,
		repos:    options.repos,
		index:    options.index,
		provider: options.provider,
		logger:   options.logger.With("component", "engine"),
	}

	if e.repos == nil {
		repos, err := badger.OpenRepositories(cfg.Storage.Path, cfg.Storage.InMemory)
		if err != nil {
			return nil, err
		}
		e.repos = repos
		e.ownsRepos = true
	}

	if e.provider == nil {
		provider, err := openai.NewProvider(cfg.AIConfig())
		if err != nil {
			e.closeClients()
			return nil, err
		}
		e.provider = provider
		e.ownsProvider = true
	}

	if e.index == nil {
		index, err := newIndex(cfg.VectorIndex, options.logger)
		if err != nil {
			e.closeClients()
			return nil, err
		}
		e.index = index
	}

	if err := e.build(options); err != nil {
		e.closeClients()
		return nil, err
	}
	return e, nil
}

func newIndex(cfg config.VectorIndexConfig, logger *slog.Logger) (vectorindex.Index, error) {
	switch cfg.Kind {
	case config.IndexMemory:
		return memory.New(memory.WithLogger(logger)), nil
	case config.IndexQdrant:
		return qdrant.New(qdrant.Config{URL: cfg.URL, APIKey: cfg.APIKey}, qdrant.WithLogger(logger))
	}
	return nil, fmt.Errorf("%w: unknown vector index kind %q", config.ErrInvalidConfig, cfg.Kind)
}

func (e *Engine) build(options *engineOptions) error {
	cfg := e.cfg
	logger := options.logger
	embedder := e.provider.Embedder()
	generator := e.provider.Generator()

	chunker, err := chunk.New(chunk.WithSize(cfg.Ingestion.ChunkSize), chunk.WithOverlap(cfg.Ingestion.ChunkOverlap))
	if err != nil {
		return err
	}

	schedulerOpts := append([]ingestion.SchedulerOption{
		ingestion.WithBatchSize(cfg.Ingestion.BatchSize),
		ingestion.WithConcurrency(cfg.Ingestion.Concurrency),
		ingestion.WithMaxAttempts(cfg.Ingestion.MaxAttempts),
		ingestion.WithSchedulerLogger(logger),
	}, options.schedulerOpts...)
	scheduler, err := ingestion.NewScheduler(embedder, e.index, schedulerOpts...)
	if err != nil {
		return err
	}

	orchestrator, err := ingestion.NewOrchestrator(e.repos.Documents, extract.Default(), chunker, e.index, scheduler,
		ingestion.WithDimension(cfg.VectorIndex.Dimension),
		ingestion.WithOrchestratorLogger(logger),
	)
	if err != nil {
		return err
	}

	retriever, err := retrieval.NewEngine(embedder, generator, e.index,
		retrieval.WithMinPerQuery(cfg.Retrieval.MinPerQuery),
		retrieval.WithExpansions(cfg.Retrieval.Expansions),
		retrieval.WithPartialResults(cfg.Retrieval.PartialResult),
		retrieval.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	e.composer, err = rag.NewComposer(e.repos.Chat, e.repos.Documents, retriever, generator,
		rag.WithBudget(cfg.Retrieval.ChatBudget),
		rag.WithHistoryLimit(cfg.Retrieval.HistoryLimit),
		rag.WithQueryExpansion(cfg.Retrieval.Expand),
		rag.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	e.summarizer, err = rag.NewSummarizer(e.repos.Documents, e.repos.Summaries, e.index, generator,
		rag.WithSummaryChunks(cfg.Retrieval.SummaryChunks),
		rag.WithSummaryLogger(logger),
	)
	if err != nil {
		return err
	}

	e.topics, err = topics.NewExtractor(e.repos.Documents, e.index, generator,
		topics.WithLeadingChunks(cfg.Ingestion.TopicChunks),
		topics.WithConcurrency(cfg.Ingestion.TopicWorkers),
		topics.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	e.quizzes, err = quiz.NewGenerator(e.repos.Quizzes, retriever, generator,
		quiz.WithBudget(cfg.Retrieval.QuizBudget),
		quiz.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	e.pipeline, err = ingestion.NewPipeline(orchestrator,
		ingestion.WithPoolSize(cfg.Ingestion.Workers),
		ingestion.WithFollowUp(e.afterIngest),
		ingestion.WithLogger(logger),
	)
	return err
}

// afterIngest runs once a document completed: the project's cached
// summaries are stale and the new document needs topics.
func (e *Engine) afterIngest(ctx context.Context, task ingestion.Task) error {
	invalidateErr := e.summarizer.Invalidate(ctx, task.ProjectID)
	_, topicsErr := e.topics.Extract(ctx, task.ProjectID, task.DocumentID)
	return errors.Join(invalidateErr, topicsErr)
}

// Upload stores a pending document and queues it for processing. It returns
// before processing starts. Content that yields no text fails during
// processing, not here.
func (e *Engine) Upload(ctx context.Context, projectID, filename string, data []byte) (*core.Document, error) {
	if projectID == "" {
		return nil, ErrProjectRequired
	}
	doc, err := e.repos.Documents.CreateDocument(ctx, &core.Document{ProjectID: projectID, Filename: filename})
	if err != nil {
		return nil, err
	}

	err = e.pipeline.Submit(ingestion.Task{
		DocumentID: doc.ID,
		ProjectID:  projectID,
		Filename:   filename,
		Data:       data,
	})
	if err != nil {
		if _, statusErr := e.repos.Documents.UpdateStatus(context.WithoutCancel(ctx), doc.ID, core.StatusFailed, err.Error()); statusErr != nil {
			e.logger.Error("error failing unqueued document", "document", doc.ID, "err", statusErr)
		}
		return nil, err
	}
	e.logger.Info("document queued", "document", doc.ID, "filename", filename)
	return doc, nil
}

// Document returns one document with its current status.
func (e *Engine) Document(ctx context.Context, id string) (*core.Document, error) {
	return e.repos.Documents.GetDocument(ctx, id)
}

// Documents lists a project's documents, optionally only those in statuses.
func (e *Engine) Documents(ctx context.Context, projectID string, statuses ...core.DocumentStatus) ([]*core.Document, error) {
	return e.repos.Documents.ListDocuments(ctx, projectID, statuses...)
}

// DeleteDocument removes a document's vectors and record. Vector deletion
// failures are logged by the index and do not stop the record removal.
func (e *Engine) DeleteDocument(ctx context.Context, projectID, id string) error {
	doc, err := e.repos.Documents.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	if doc.ProjectID != projectID {
		return fmt.Errorf("%w: document %s in project %s", storage.ErrNotFound, id, projectID)
	}

	e.index.Delete(ctx, core.CollectionName(projectID), vectorindex.ForDocument(id))
	if err := e.repos.Documents.DeleteDocument(ctx, id); err != nil {
		return err
	}
	if err := e.summarizer.Invalidate(ctx, projectID); err != nil {
		e.logger.Error("error invalidating summaries", "project", projectID, "err", err)
	}
	e.logger.Info("document deleted", "document", id)
	return nil
}

// Ask answers a question and records both turns.
func (e *Engine) Ask(ctx context.Context, q rag.Question) (*rag.Answer, error) {
	return e.composer.Ask(ctx, q)
}

// AskStream answers a question onto w as text deltas followed by the
// sources marker and payload.
func (e *Engine) AskStream(ctx context.Context, w io.Writer, q rag.Question) error {
	return e.composer.AskStream(ctx, w, q)
}

// History returns a project's conversation oldest first. A positive limit
// keeps the most recent messages.
func (e *Engine) History(ctx context.Context, projectID string, limit int) ([]*core.ChatMessage, error) {
	return e.repos.Chat.History(ctx, projectID, limit)
}

// Summary overviews the project's completed documents, or the selected ones.
func (e *Engine) Summary(ctx context.Context, projectID string, selected []string) (*core.Summary, error) {
	return e.summarizer.Summarize(ctx, projectID, selected)
}

// Topics aggregates the topics of the project's completed documents.
func (e *Engine) Topics(ctx context.Context, projectID string) (*topics.ProjectTopics, error) {
	return e.topics.Project(ctx, projectID)
}

// GenerateQuiz creates and stores a multiple-choice quiz.
func (e *Engine) GenerateQuiz(ctx context.Context, req quiz.Request) (*core.Quiz, error) {
	return e.quizzes.Generate(ctx, req)
}

// SubmitQuiz grades answers, keyed by zero-based question index.
func (e *Engine) SubmitQuiz(ctx context.Context, quizID string, answers map[int]string) (*core.QuizResult, error) {
	return e.quizzes.Submit(ctx, quizID, answers)
}

// Wait blocks until queued documents and their follow-up work finished.
func (e *Engine) Wait() {
	e.pipeline.Wait()
}

// Close waits for queued work, then releases the pipeline and every client
// the Engine created.
func (e *Engine) Close() error {
	e.pipeline.Wait()
	e.pipeline.Release()
	return e.closeClients()
}

func (e *Engine) closeClients() error {
	var errs []error
	if e.ownsProvider && e.provider != nil {
		if err := e.provider.Close(); err != nil {
			e.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if e.ownsRepos && e.repos != nil {
		if err := e.repos.Close(); err != nil {
			e.logger.Error("error closing storage", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
