package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/lectern/ai"
	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/vectorindex"
)

const (
	// DefaultBatchSize is the number of chunks embedded and upserted together.
	DefaultBatchSize = 25
	// DefaultConcurrency bounds how many batches are in flight at once.
	DefaultConcurrency = 10
	// DefaultMaxAttempts is the total number of tries for a rate-limited batch.
	DefaultMaxAttempts = 3
)

// Batch is a contiguous run of chunks dispatched as one retry unit.
type Batch struct {
	Index  int
	Start  int
	Chunks []core.Chunk
}

// Partition slices chunks into batches of at most size chunks. Start records
// the offset of each batch's first chunk in the full sequence.
func Partition(chunks []core.Chunk, size int) []Batch {
	if size <= 0 || len(chunks) == 0 {
		return nil
	}
	batches := make([]Batch, 0, (len(chunks)+size-1)/size)
	for start := 0; start < len(chunks); start += size {
		end := min(start+size, len(chunks))
		batches = append(batches, Batch{Index: len(batches), Start: start, Chunks: chunks[start:end]})
	}
	return batches
}

// BatchError reports the fatal failure of one batch.
type BatchError struct {
	Index int
	Total int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %d/%d: %v", e.Index+1, e.Total, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// Job describes the chunks of one document bound for one collection.
type Job struct {
	Collection   string
	DocumentID   string
	DocumentName string
	Chunks       []core.Chunk
}

// Scheduler embeds and upserts a document's chunks in concurrent batches.
type Scheduler struct {
	embedder    ai.Embedder
	index       vectorindex.Index
	batchSize   int
	concurrency int
	maxAttempts int
	backoff     Backoff
	sleep       SleepFunc
	newID       func() string
	logger      *slog.Logger
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler) error

// WithBatchSize sets the number of chunks per batch. Default is 25.
func WithBatchSize(n int) SchedulerOption {
	return func(s *Scheduler) error {
		if n <= 0 {
			return ErrInvalidBatchSize
		}
		s.batchSize = n
		return nil
	}
}

// WithConcurrency sets how many batches may embed or upsert at once. Default is 10.
func WithConcurrency(n int) SchedulerOption {
	return func(s *Scheduler) error {
		if n <= 0 {
			return ErrInvalidConcurrency
		}
		s.concurrency = n
		return nil
	}
}

// WithMaxAttempts sets the total tries for a rate-limited batch. Default is 3.
func WithMaxAttempts(n int) SchedulerOption {
	return func(s *Scheduler) error {
		if n <= 0 {
			return ErrInvalidMaxAttempts
		}
		s.maxAttempts = n
		return nil
	}
}

// WithBackoff replaces DefaultBackoff.
func WithBackoff(b Backoff) SchedulerOption {
	return func(s *Scheduler) error {
		if b != nil {
			s.backoff = b
		}
		return nil
	}
}

// WithSleep replaces the context-aware timer used between retries.
func WithSleep(fn SleepFunc) SchedulerOption {
	return func(s *Scheduler) error {
		if fn != nil {
			s.sleep = fn
		}
		return nil
	}
}

// WithPointIDs replaces the vector point id generator. Default is random UUIDs.
func WithPointIDs(fn func() string) SchedulerOption {
	return func(s *Scheduler) error {
		if fn != nil {
			s.newID = fn
		}
		return nil
	}
}

// WithSchedulerLogger sets a custom logger.
func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewScheduler creates a Scheduler writing to index.
func NewScheduler(embedder ai.Embedder, index vectorindex.Index, opts ...SchedulerOption) (*Scheduler, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if index == nil {
		return nil, ErrIndexRequired
	}

	s := &Scheduler{
		embedder:    embedder,
		index:       index,
		batchSize:   DefaultBatchSize,
		concurrency: DefaultConcurrency,
		maxAttempts: DefaultMaxAttempts,
		backoff:     DefaultBackoff,
		sleep:       Sleep,
		newID:       uuid.NewString,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "scheduler")
	return s, nil
}

// Run embeds and upserts every batch of job. It returns after all dispatched
// batches finish. The first fatal batch error cancels the batches still
// waiting or running and is returned; batches that already upserted are left
// in place.
func (s *Scheduler) Run(ctx context.Context, job Job) error {
	batches := Partition(job.Chunks, s.batchSize)
	if len(batches) == 0 {
		return nil
	}

	// A blocking pool is the admission gate: at most C batches hold a worker.
	pool, err := ants.NewPool(min(s.concurrency, len(batches)))
	if err != nil {
		return err
	}
	defer pool.Release()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg        sync.WaitGroup
		once      sync.Once
		firstErr  error
		submitted int
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for _, b := range batches {
		if runCtx.Err() != nil {
			break
		}
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("batch panicked", "document", job.DocumentID, "batch", b.Index+1, "panic", r)
					fail(&BatchError{Index: b.Index, Total: len(batches), Err: fmt.Errorf("%w: %v", ErrWorkerPanic, r)})
				}
			}()
			if err := s.runBatch(runCtx, job, b, len(batches)); err != nil {
				fail(err)
			}
		})
		if submitErr != nil {
			wg.Done()
			fail(submitErr)
			break
		}
		submitted++
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	if submitted < len(batches) {
		// The caller gave up before every batch was dispatched.
		return context.Cause(runCtx)
	}
	return nil
}

func (s *Scheduler) runBatch(ctx context.Context, job Job, b Batch, total int) error {
	logger := s.logger.With("document", job.DocumentID, "batch", b.Index+1)
	logger.Debug("processing batch", "total", total, "chunks", len(b.Chunks))

	texts := make([]string, len(b.Chunks))
	for k, c := range b.Chunks {
		texts[k] = c.Text
	}

	err := retryRateLimited(ctx, func(ctx context.Context) error {
		vectors, err := s.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return ai.EmbeddingError(err)
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("%w: got %d vectors for %d texts", core.ErrEmbedding, len(vectors), len(texts))
		}

		points := make([]vectorindex.Point, len(texts))
		for k := range texts {
			points[k] = vectorindex.Point{
				ID:     s.newID(),
				Vector: vectors[k],
				Payload: vectorindex.Payload{
					DocumentID:   job.DocumentID,
					DocumentName: job.DocumentName,
					ChunkID:      b.Start + k,
					Text:         texts[k],
				},
			}
		}
		return s.index.Upsert(ctx, job.Collection, points)
	}, s.maxAttempts, func(attempt int) time.Duration {
		return s.backoff(attempt, b.Index)
	}, s.sleep, logger)
	if err != nil {
		logger.Error("batch failed", "err", err)
		return &BatchError{Index: b.Index, Total: total, Err: err}
	}
	return nil
}
