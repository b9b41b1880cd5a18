package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/lectern/core"
)

// FollowUp runs after a document completes. Errors are logged only.
type FollowUp func(ctx context.Context, task Task) error

// Pipeline runs document processing as detached background work.
// Completed documents are handed to the follow-up on a separate pool.
type Pipeline struct {
	orchestrator *Orchestrator
	ingestPool   *ants.Pool
	followPool   *ants.Pool
	followUp     FollowUp
	wg           sync.WaitGroup
	closed       atomic.Bool
	logger       *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pools
		if p.ingestPool != nil {
			p.ingestPool.Release()
		}
		if p.followPool != nil {
			p.followPool.Release()
		}

		ingestPool, err := ants.NewPool(size)
		if err != nil {
			return err
		}

		followPool, err := ants.NewPool(size)
		if err != nil {
			ingestPool.Release()
			return err
		}

		p.ingestPool = ingestPool
		p.followPool = followPool
		return nil
	}
}

// WithFollowUp sets the work run for each completed document.
func WithFollowUp(fn FollowUp) Option {
	return func(p *Pipeline) error {
		p.followUp = fn
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(orchestrator *Orchestrator, opts ...Option) (*Pipeline, error) {
	if orchestrator == nil {
		return nil, ErrOrchestratorRequired
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	ingestPool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	followPool, err := ants.NewPool(poolSize)
	if err != nil {
		ingestPool.Release()
		return nil, err
	}

	p := &Pipeline{
		orchestrator: orchestrator,
		ingestPool:   ingestPool,
		followPool:   followPool,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "pipeline")

	return p, nil
}

// Submit queues task and returns immediately. The outcome is visible only
// through the document's status.
func (p *Pipeline) Submit(task Task) error {
	if p.closed.Load() {
		return ErrPipelineClosed
	}

	p.wg.Add(1)
	go func() {
		// Waiting for a free worker happens here, off the caller's path.
		err := p.ingestPool.Submit(func() {
			defer p.wg.Done()
			p.run(task)
		})
		if err != nil {
			p.wg.Done()
			p.logger.Error("error queueing document", "document", task.DocumentID, "err", err)
		}
	}()
	return nil
}

func (p *Pipeline) run(task Task) {
	ctx := context.Background()
	status := p.process(ctx, task)
	if status != core.StatusCompleted || p.followUp == nil {
		return
	}

	p.wg.Add(1)
	err := p.followPool.Submit(func() {
		defer p.wg.Done()
		if err := p.followUp(ctx, task); err != nil {
			p.logger.Error("error running follow-up", "document", task.DocumentID, "err", err)
		}
	})
	if err != nil {
		p.wg.Done()
		p.logger.Error("error queueing follow-up", "document", task.DocumentID, "err", err)
	}
}

// process runs the orchestrator and fails the document if it panics, so a
// bad upload never stays in processing.
func (p *Pipeline) process(ctx context.Context, task Task) (status core.DocumentStatus) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		p.logger.Error("document processing panicked", "document", task.DocumentID, "panic", r)
		status = p.orchestrator.fail(ctx, p.logger.With("document", task.DocumentID), task.DocumentID,
			fmt.Errorf("%w: %v", ErrWorkerPanic, r).Error())
	}()
	return p.orchestrator.Process(ctx, task)
}

// Wait blocks until every submitted document and its follow-up finished.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// Release stops accepting work and releases the worker pools.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	p.closed.Store(true)
	if p.ingestPool != nil {
		p.ingestPool.Release()
	}
	if p.followPool != nil {
		p.followPool.Release()
	}
}
