package topics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/lectern/ai"
	"github.com/poiesic/lectern/ai/mock"
	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/storage/badger"
	"github.com/poiesic/lectern/vectorindex"
	"github.com/poiesic/lectern/vectorindex/memory"
)

const (
	testProject = "p1"
	testDim     = 8
)

type fixture struct {
	repos     *badger.Repositories
	index     *memory.Index
	generator *mock.MockGenerator
	extractor *Extractor
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	idx := memory.New()
	gen := mock.NewMockGenerator()
	ex, err := NewExtractor(repos.Documents, idx, gen, opts...)
	require.NoError(t, err)
	return &fixture{repos: repos, index: idx, generator: gen, extractor: ex}
}

func (f *fixture) addDocument(t *testing.T, name string, chunks int, topics ...string) *core.Document {
	t.Helper()
	ctx := context.Background()
	doc, err := f.repos.Documents.CreateDocument(ctx, &core.Document{ProjectID: testProject, Filename: name})
	require.NoError(t, err)
	_, err = f.repos.Documents.UpdateStatus(ctx, doc.ID, core.StatusProcessing, "")
	require.NoError(t, err)
	_, err = f.repos.Documents.UpdateStatus(ctx, doc.ID, core.StatusCompleted, "")
	require.NoError(t, err)
	if len(topics) > 0 {
		require.NoError(t, f.repos.Documents.SetTopics(ctx, doc.ID, topics))
	}

	collection := core.CollectionName(testProject)
	require.NoError(t, f.index.EnsureCollection(ctx, collection, testDim))
	points := make([]vectorindex.Point, chunks)
	for i := range points {
		text := fmt.Sprintf("%s chunk %d", name, i)
		points[i] = vectorindex.Point{
			ID:      fmt.Sprintf("%s-%d", doc.ID, i),
			Vector:  mock.DeterministicVector(text, testDim),
			Payload: vectorindex.Payload{DocumentID: doc.ID, DocumentName: name, ChunkID: i, Text: text},
		}
	}
	if chunks > 0 {
		require.NoError(t, f.index.Upsert(ctx, collection, points))
	}
	return doc
}

func TestNewExtractor(t *testing.T) {
	_, err := NewExtractor(nil, memory.New(), mock.NewMockGenerator())
	assert.ErrorIs(t, err, ErrDocumentRepositoryRequired)

	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()
	_, err = NewExtractor(repos.Documents, memory.New(), mock.NewMockGenerator(), WithConcurrency(0))
	assert.ErrorIs(t, err, ErrInvalidConcurrency)
}

func TestExtract(t *testing.T) {
	f := newFixture(t, WithLeadingChunks(3))
	doc := f.addDocument(t, "book.pdf", 5)
	f.generator.Reply = "Here are the topics:\n```json\n[\"Cells\", \" DNA \", \"Cells\", \"\"]\n```"

	topics, err := f.extractor.Extract(context.Background(), testProject, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cells", "DNA"}, topics)

	stored, err := f.repos.Documents.GetDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cells", "DNA"}, stored.Topics)

	call := f.generator.Calls()[0]
	assert.InDelta(t, 0.5, call.Options.Temperature, 1e-9)
	prompt := call.Messages[0].Content
	assert.Contains(t, prompt, "book.pdf chunk 0\nbook.pdf chunk 1\nbook.pdf chunk 2")
	assert.NotContains(t, prompt, "chunk 3")
}

func TestExtract_UnparseableReply(t *testing.T) {
	f := newFixture(t)
	doc := f.addDocument(t, "book.pdf", 1)
	f.generator.Reply = "I could not find any topics."

	_, err := f.extractor.Extract(context.Background(), testProject, doc.ID)
	assert.ErrorIs(t, err, core.ErrParse)

	stored, err := f.repos.Documents.GetDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Topics)
}

func TestExtract_NoChunks(t *testing.T) {
	f := newFixture(t)
	topics, err := f.extractor.Extract(context.Background(), "unknown", "missing")
	require.NoError(t, err)
	assert.Empty(t, topics)
	assert.Zero(t, f.generator.CallCount())
}

func TestExtract_TruncatesText(t *testing.T) {
	f := newFixture(t)
	f.extractor.maxChars = 10
	doc := f.addDocument(t, "book.pdf", 2)
	f.generator.Reply = `["A"]`

	_, err := f.extractor.Extract(context.Background(), testProject, doc.ID)
	require.NoError(t, err)
	prompt := f.generator.Calls()[0].Messages[0].Content
	assert.True(t, strings.HasSuffix(prompt, "Text:\nbook.pdf c\n"))
}

func TestProject(t *testing.T) {
	f := newFixture(t)
	ready := f.addDocument(t, "a.pdf", 1, "Zoology", "Botany")
	pending := f.addDocument(t, "b.pdf", 1)
	broken := f.addDocument(t, "c.pdf", 1)

	var calls atomic.Int32
	f.generator.CompleteFunc = func(_ context.Context, messages []ai.Message, _ ai.GenerateOptions) (string, error) {
		calls.Add(1)
		if strings.Contains(messages[0].Content, "c.pdf") {
			return "", errors.New("model unavailable")
		}
		return `["Botany", "Anatomy"]`, nil
	}

	result, err := f.extractor.Project(context.Background(), testProject)
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load(), "only documents without topics are generated")
	assert.Equal(t, []string{"Anatomy", "Botany", "Zoology"}, result.All)
	assert.Equal(t, []string{"Zoology", "Botany"}, result.ByDoc[ready.ID])
	assert.Equal(t, []string{"Botany", "Anatomy"}, result.ByDoc[pending.ID])
	assert.Equal(t, []string{}, result.ByDoc[broken.ID])
}

func TestProject_ConcurrencyNeverExceedsLimit(t *testing.T) {
	const limit = 2
	f := newFixture(t, WithConcurrency(limit))
	for i := range 8 {
		f.addDocument(t, fmt.Sprintf("doc-%d.pdf", i), 1)
	}

	var active, peak atomic.Int32
	f.generator.CompleteFunc = func(context.Context, []ai.Message, ai.GenerateOptions) (string, error) {
		n := active.Add(1)
		defer active.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return `["Cells"]`, nil
	}

	result, err := f.extractor.Project(context.Background(), testProject)
	require.NoError(t, err)
	assert.Len(t, result.ByDoc, 8)
	assert.Equal(t, []string{"Cells"}, result.All)

	assert.LessOrEqual(t, peak.Load(), int32(limit))
	assert.Greater(t, peak.Load(), int32(0))
}

func TestProject_IgnoresIncompleteDocuments(t *testing.T) {
	f := newFixture(t)
	_, err := f.repos.Documents.CreateDocument(context.Background(), &core.Document{ProjectID: testProject, Filename: "new.pdf"})
	require.NoError(t, err)

	result, err := f.extractor.Project(context.Background(), testProject)
	require.NoError(t, err)
	assert.Empty(t, result.All)
	assert.Empty(t, result.ByDoc)
}
