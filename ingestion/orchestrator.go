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


package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/poiesic/lectern/chunk"
	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/storage"
	"github.com/poiesic/lectern/vectorindex"
)

// DefaultDimension is the embedding size collections are created with.
const DefaultDimension = 1024

// TextExtractor decodes raw document bytes according to their extension.
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte, ext string) (string, error)
}

// Task is one uploaded document awaiting processing.
type Task struct {
	DocumentID string
	ProjectID  string
	Filename   string
	// Extension overrides the one taken from Filename.
	Extension string
	Data      []byte
}

func (t Task) extension() string {
	if t.Extension != "" {
		return t.Extension
	}
	return strings.TrimPrefix(filepath.Ext(t.Filename), ".")
}

// Orchestrator processes one document at a time from extraction to indexing.
type Orchestrator struct {
	documents storage.DocumentRepository
	extractor TextExtractor
	chunker   chunk.Chunker
	index     vectorindex.Index
	scheduler *Scheduler
	dimension int
	logger    *slog.Logger
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator) error

// WithDimension sets the vector size used when creating a collection.
func WithDimension(n int) OrchestratorOption {
	return func(o *Orchestrator) error {
		if n <= 0 {
			return ErrInvalidDimension
		}
		o.dimension = n
		return nil
	}
}

// WithOrchestratorLogger sets a custom logger.
func WithOrchestratorLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// NewOrchestrator wires the collaborators of document processing.
func NewOrchestrator(
	documents storage.DocumentRepository,
	extractor TextExtractor,
	chunker chunk.Chunker,
	index vectorindex.Index,
	scheduler *Scheduler,
	opts ...OrchestratorOption,
) (*Orchestrator, error) {
	switch {
	case documents == nil:
		return nil, ErrDocumentRepositoryRequired
	case extractor == nil:
		return nil, ErrExtractorRequired
	case chunker == nil:
		return nil, ErrChunkerRequired
	case index == nil:
		return nil, ErrIndexRequired
	case scheduler == nil:
		return nil, ErrSchedulerRequired
	}

	o := &Orchestrator{
		documents: documents,
		extractor: extractor,
		chunker:   chunker,
		index:     index,
		scheduler: scheduler,
		dimension: DefaultDimension,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	o.logger = o.logger.With("component", "orchestrator")
	return o, nil
}

// Process drives the document through processing and returns the status it
// ended in. Failures are recorded on the document, not returned.
func (o *Orchestrator) Process(ctx context.Context, task Task) core.DocumentStatus {
	logger := o.logger.With("document", task.DocumentID, "filename", task.Filename)

	if !o.setStatus(ctx, logger, task.DocumentID, core.StatusProcessing, "") {
		return core.StatusFailed
	}

	logger.Info("extracting text")
	o.setStatus(ctx, logger, task.DocumentID, core.StatusProcessing, core.MessageExtracting)
	text, err := o.extractor.ExtractText(ctx, task.Data, task.extension())
	if err != nil || strings.TrimSpace(text) == "" {
		logger.Warn("extraction produced no text", "err", err)
		return o.fail(ctx, logger, task.DocumentID, core.MessageExtractionFailed)
	}

	logger.Info("chunking text")
	o.setStatus(ctx, logger, task.DocumentID, core.StatusProcessing, core.MessageChunking)
	chunks, err := o.chunker.Chunk(text)
	if err != nil || len(chunks) == 0 {
		logger.Warn("chunking produced no chunks", "err", err)
		return o.fail(ctx, logger, task.DocumentID, core.MessageNoChunks)
	}

	collection := core.CollectionName(task.ProjectID)
	if err := o.index.EnsureCollection(ctx, collection, o.dimension); err != nil {
		logger.Error("ensuring collection", "collection", collection, "err", err)
		return o.fail(ctx, logger, task.DocumentID, RootCause(err).Error())
	}

	logger.Info("generating embeddings", "chunks", len(chunks))
	o.setStatus(ctx, logger, task.DocumentID, core.StatusProcessing, core.MessageEmbedding(len(chunks)))
	err = o.scheduler.Run(ctx, Job{
		Collection:   collection,
		DocumentID:   task.DocumentID,
		DocumentName: task.Filename,
		Chunks:       chunks,
	})
	if err != nil {
		logger.Error("indexing failed", "err", err)
		return o.fail(ctx, logger, task.DocumentID, RootCause(err).Error())
	}

	if !o.setStatus(ctx, logger, task.DocumentID, core.StatusCompleted, "") {
		return core.StatusFailed
	}
	logger.Info("document processed")
	return core.StatusCompleted
}

func (o *Orchestrator) fail(ctx context.Context, logger *slog.Logger, id, message string) core.DocumentStatus {
	o.setStatus(ctx, logger, id, core.StatusFailed, message)
	return core.StatusFailed
}

// setStatus records a status change and reports whether it was stored.
func (o *Orchestrator) setStatus(ctx context.Context, logger *slog.Logger, id string, status core.DocumentStatus, message string) bool {
	// Status writes outlive a cancelled run so the record never sticks in processing.
	if _, err := o.documents.UpdateStatus(context.WithoutCancel(ctx), id, status, message); err != nil {
		logger.Error("updating document status", "status", status, "err", err)
		return false
	}
	return true
}

// RootCause strips batch framing and classifying sentinels from err,
// returning the provider or index failure that caused it.
func RootCause(err error) error {
	for err != nil {
		var batchErr *BatchError
		if errors.As(err, &batchErr) && batchErr != err {
			err = batchErr
			continue
		}
		switch x := err.(type) {
		case *BatchError:
			err = x.Err
		case interface{ Unwrap() []error }:
			errs := x.Unwrap()
			if len(errs) == 0 {
				return err
			}
			err = errs[len(errs)-1]
		default:
			return err
		}
	}
	return err
}
