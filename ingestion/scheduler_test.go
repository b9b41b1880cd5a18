package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/lectern/ai/mock"
	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/vectorindex"
	"github.com/poiesic/lectern/vectorindex/memory"
)

const testDim = 8

// countingIndex records Upsert calls on top of the in-memory index.
type countingIndex struct {
	*memory.Index
	mu      sync.Mutex
	upserts int
	failOn  func(points []vectorindex.Point) error
}

func newCountingIndex() *countingIndex {
	return &countingIndex{Index: memory.New()}
}

func (c *countingIndex) Upsert(ctx context.Context, name string, points []vectorindex.Point) error {
	c.mu.Lock()
	c.upserts++
	fail := c.failOn
	c.mu.Unlock()
	if fail != nil {
		if err := fail(points); err != nil {
			return err
		}
	}
	return c.Index.Upsert(ctx, name, points)
}

func (c *countingIndex) UpsertCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.upserts
}

func makeChunks(n int) []core.Chunk {
	chunks := make([]core.Chunk, n)
	for i := range chunks {
		chunks[i] = core.Chunk{Index: i, Text: fmt.Sprintf("chunk-%03d", i)}
	}
	return chunks
}

func newEmbedder() *mock.MockEmbedder {
	e := mock.NewMockEmbedder()
	e.Dimension = testDim
	return e
}

// recordingSleep returns immediately and keeps the requested delays.
type recordingSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleep) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return nil
}

func (r *recordingSleep) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func setupScheduler(t *testing.T, embedder *mock.MockEmbedder, opts ...SchedulerOption) (*Scheduler, *countingIndex) {
	t.Helper()
	idx := newCountingIndex()
	require.NoError(t, idx.EnsureCollection(context.Background(), "project_p1", testDim))
	s, err := NewScheduler(embedder, idx, opts...)
	require.NoError(t, err)
	return s, idx
}

func TestPartition(t *testing.T) {
	batches := Partition(makeChunks(60), 25)
	require.Len(t, batches, 3)

	assert.Equal(t, 0, batches[0].Start)
	assert.Len(t, batches[0].Chunks, 25)
	assert.Equal(t, 25, batches[1].Start)
	assert.Len(t, batches[1].Chunks, 25)
	assert.Equal(t, 50, batches[2].Start)
	assert.Len(t, batches[2].Chunks, 10)
	for i, b := range batches {
		assert.Equal(t, i, b.Index)
	}

	assert.Empty(t, Partition(nil, 25))
	assert.Empty(t, Partition(makeChunks(3), 0))
	assert.Len(t, Partition(makeChunks(25), 25), 1)
}

func TestNewScheduler(t *testing.T) {
	_, err := NewScheduler(nil, memory.New())
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewScheduler(newEmbedder(), nil)
	assert.ErrorIs(t, err, ErrIndexRequired)

	_, err = NewScheduler(newEmbedder(), memory.New(), WithBatchSize(0))
	assert.ErrorIs(t, err, ErrInvalidBatchSize)

	_, err = NewScheduler(newEmbedder(), memory.New(), WithConcurrency(-1))
	assert.ErrorIs(t, err, ErrInvalidConcurrency)

	_, err = NewScheduler(newEmbedder(), memory.New(), WithMaxAttempts(0))
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}

func TestScheduler_ChunkIDsFollowOriginalOrder(t *testing.T) {
	embedder := newEmbedder()
	var calls atomic.Int32
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		// Later batches finish first.
		n := calls.Add(1)
		time.Sleep(time.Duration(20-n%20) * time.Millisecond)
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = mock.DeterministicVector(text, testDim)
		}
		return out, nil
	}

	s, idx := setupScheduler(t, embedder, WithBatchSize(7), WithConcurrency(4))
	chunks := makeChunks(103)

	err := s.Run(context.Background(), Job{
		Collection:   "project_p1",
		DocumentID:   "doc-1",
		DocumentName: "notes.txt",
		Chunks:       chunks,
	})
	require.NoError(t, err)

	points := idx.Points("project_p1")
	require.Len(t, points, len(chunks))
	assert.Equal(t, 15, idx.UpsertCount(), "one upsert per batch")

	seen := make(map[string]bool)
	for _, p := range points {
		assert.Equal(t, fmt.Sprintf("chunk-%03d", p.Payload.ChunkID), p.Payload.Text)
		assert.Equal(t, "doc-1", p.Payload.DocumentID)
		assert.Equal(t, "notes.txt", p.Payload.DocumentName)
		assert.False(t, seen[p.ID], "point ids are unique")
		seen[p.ID] = true
	}
}

func TestScheduler_ConcurrencyNeverExceedsLimit(t *testing.T) {
	const limit = 3
	var active, peak atomic.Int32

	embedder := newEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		n := active.Add(1)
		defer active.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = mock.DeterministicVector(texts[i], testDim)
		}
		return out, nil
	}

	s, _ := setupScheduler(t, embedder, WithBatchSize(2), WithConcurrency(limit))
	err := s.Run(context.Background(), Job{Collection: "project_p1", DocumentID: "d", Chunks: makeChunks(40)})
	require.NoError(t, err)

	assert.LessOrEqual(t, peak.Load(), int32(limit))
	assert.Greater(t, peak.Load(), int32(0))
}

func TestScheduler_RateLimitedBatchRetries(t *testing.T) {
	var attempts atomic.Int32
	embedder := newEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		if attempts.Add(1) <= 2 {
			return nil, errors.New("429 Too Many Requests")
		}
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = mock.DeterministicVector(texts[i], testDim)
		}
		return out, nil
	}

	sleeper := &recordingSleep{}
	s, idx := setupScheduler(t, embedder, WithSleep(sleeper.sleep))

	err := s.Run(context.Background(), Job{Collection: "project_p1", DocumentID: "d", Chunks: makeChunks(10)})
	require.NoError(t, err)

	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, 1, idx.UpsertCount(), "exactly one upsert for the batch")
	delays := sleeper.Delays()
	require.Len(t, delays, 2)
	assert.Equal(t, time.Second, delays[0])
	assert.Equal(t, 2*time.Second, delays[1])
	assert.Greater(t, delays[1], delays[0])
}

func TestScheduler_RetriesExhausted(t *testing.T) {
	var attempts atomic.Int32
	embedder := newEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		attempts.Add(1)
		return nil, errors.New("429 Too Many Requests")
	}

	sleeper := &recordingSleep{}
	s, idx := setupScheduler(t, embedder, WithSleep(sleeper.sleep))

	err := s.Run(context.Background(), Job{Collection: "project_p1", DocumentID: "d", Chunks: makeChunks(5)})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrRateLimited)
	assert.ErrorIs(t, err, core.ErrEmbedding)
	assert.Equal(t, int32(DefaultMaxAttempts), attempts.Load())
	assert.Len(t, sleeper.Delays(), DefaultMaxAttempts-1)
	assert.Zero(t, idx.UpsertCount())

	var batchErr *BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, 0, batchErr.Index)
	assert.Equal(t, "429 Too Many Requests", RootCause(err).Error())
}

func TestScheduler_OtherErrorsAreFatalWithoutRetry(t *testing.T) {
	var attempts atomic.Int32
	embedder := newEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		attempts.Add(1)
		return nil, errors.New("model not found")
	}

	sleeper := &recordingSleep{}
	s, _ := setupScheduler(t, embedder, WithSleep(sleeper.sleep), WithConcurrency(1))

	err := s.Run(context.Background(), Job{Collection: "project_p1", DocumentID: "d", Chunks: makeChunks(5)})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrEmbedding)
	assert.NotErrorIs(t, err, core.ErrRateLimited)
	assert.Equal(t, int32(1), attempts.Load())
	assert.Empty(t, sleeper.Delays())
	assert.Equal(t, "model not found", RootCause(err).Error())
}

func TestScheduler_NumbersInErrorTextAreNotRateLimits(t *testing.T) {
	var attempts atomic.Int32
	embedder := newEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		attempts.Add(1)
		return nil, errors.New("invalid request: input 14290 tokens exceeds model maximum")
	}

	sleeper := &recordingSleep{}
	s, _ := setupScheduler(t, embedder, WithSleep(sleeper.sleep))

	err := s.Run(context.Background(), Job{Collection: "project_p1", DocumentID: "d", Chunks: makeChunks(3)})
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrRateLimited)
	assert.Equal(t, int32(1), attempts.Load())
	assert.Empty(t, sleeper.Delays())
}

func TestScheduler_BatchFailureKeepsSiblingVectors(t *testing.T) {
	embedder := newEmbedder()
	s, idx := setupScheduler(t, embedder, WithBatchSize(5), WithConcurrency(1))
	idx.failOn = func(points []vectorindex.Point) error {
		if points[0].Payload.ChunkID == 10 {
			return errors.New("disk full")
		}
		return nil
	}

	err := s.Run(context.Background(), Job{Collection: "project_p1", DocumentID: "d", Chunks: makeChunks(20)})
	require.Error(t, err)
	assert.Equal(t, "disk full", RootCause(err).Error())

	// Batches before the failure stay indexed.
	assert.Len(t, idx.Points("project_p1"), 10)
}

func TestScheduler_PanickingBatchFailsJob(t *testing.T) {
	embedder := newEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		if texts[0] == "chunk-025" {
			panic("tokenizer exploded")
		}
		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			vectors[i] = mock.DeterministicVector(text, testDim)
		}
		return vectors, nil
	}
	s, idx := setupScheduler(t, embedder, WithConcurrency(1))

	err := s.Run(context.Background(), Job{Collection: "project_p1", DocumentID: "d", Chunks: makeChunks(50)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWorkerPanic)

	var batchErr *BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, 1, batchErr.Index)
	assert.Equal(t, "worker panicked: tokenizer exploded", RootCause(err).Error())
	assert.Len(t, idx.Points("project_p1"), 25)
}

func TestScheduler_VectorCountMismatch(t *testing.T) {
	embedder := newEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{mock.DeterministicVector("x", testDim)}, nil
	}
	s, _ := setupScheduler(t, embedder)

	err := s.Run(context.Background(), Job{Collection: "project_p1", DocumentID: "d", Chunks: makeChunks(3)})
	assert.ErrorIs(t, err, core.ErrEmbedding)
}

func TestScheduler_EmptyJob(t *testing.T) {
	s, idx := setupScheduler(t, newEmbedder())
	require.NoError(t, s.Run(context.Background(), Job{Collection: "project_p1"}))
	assert.Zero(t, idx.UpsertCount())
}

func TestScheduler_CancelledContext(t *testing.T) {
	s, idx := setupScheduler(t, newEmbedder())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Run(ctx, Job{Collection: "project_p1", DocumentID: "d", Chunks: makeChunks(60)})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, idx.UpsertCount())
}
