package rag

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/lectern/ai/mock"
	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/storage/badger"
	"github.com/poiesic/lectern/vectorindex"
	"github.com/poiesic/lectern/vectorindex/memory"
)

const summaryDim = 8

type summaryFixture struct {
	repos      *badger.Repositories
	index      *memory.Index
	generator  *mock.MockGenerator
	summarizer *Summarizer
}

func newSummaryFixture(t *testing.T) *summaryFixture {
	t.Helper()
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	idx := memory.New()
	gen := mock.NewMockGenerator()
	gen.Reply = "These documents cover biology."
	s, err := NewSummarizer(repos.Documents, repos.Summaries, idx, gen)
	require.NoError(t, err)
	return &summaryFixture{repos: repos, index: idx, generator: gen, summarizer: s}
}

// addDocument stores a completed document with the given chunks indexed.
func (f *summaryFixture) addDocument(t *testing.T, name string, chunks ...string) *core.Document {
	t.Helper()
	ctx := context.Background()
	doc, err := f.repos.Documents.CreateDocument(ctx, &core.Document{ProjectID: testProject, Filename: name})
	require.NoError(t, err)
	_, err = f.repos.Documents.UpdateStatus(ctx, doc.ID, core.StatusProcessing, "")
	require.NoError(t, err)
	_, err = f.repos.Documents.UpdateStatus(ctx, doc.ID, core.StatusCompleted, "")
	require.NoError(t, err)

	collection := core.CollectionName(testProject)
	require.NoError(t, f.index.EnsureCollection(ctx, collection, summaryDim))
	points := make([]vectorindex.Point, len(chunks))
	for i, text := range chunks {
		points[i] = vectorindex.Point{
			ID:      fmt.Sprintf("%s-%d", doc.ID, i),
			Vector:  mock.DeterministicVector(text, summaryDim),
			Payload: vectorindex.Payload{DocumentID: doc.ID, DocumentName: name, ChunkID: i, Text: text},
		}
	}
	if len(points) > 0 {
		require.NoError(t, f.index.Upsert(ctx, collection, points))
	}
	return doc
}

func TestSummarize(t *testing.T) {
	f := newSummaryFixture(t)
	ctx := context.Background()
	a := f.addDocument(t, "a.txt", "a0", "a1", "a2", "a3")
	f.addDocument(t, "b.txt", "b0")

	summary, err := f.summarizer.Summarize(ctx, testProject, nil)
	require.NoError(t, err)
	assert.Equal(t, "These documents cover biology.", summary.Text)
	require.Len(t, summary.Sources, 2)
	assert.Equal(t, core.Source{DocID: a.ID, DocName: "a.txt", ChunkText: "a0..."}, summary.Sources[0])

	calls := f.generator.Calls()
	require.Len(t, calls, 1)
	prompt := calls[0].Messages[0].Content
	assert.Contains(t, prompt, "--- Document: a.txt ---\na0\na1\na2\n\n")
	assert.NotContains(t, prompt, "a3", "only the leading chunks are read")
	assert.Contains(t, prompt, "of the documents in this project")

	t.Run("second call is served from cache", func(t *testing.T) {
		again, err := f.summarizer.Summarize(ctx, testProject, nil)
		require.NoError(t, err)
		assert.Equal(t, summary.Text, again.Text)
		assert.Equal(t, 1, f.generator.CallCount())
	})

	t.Run("selection is cached separately", func(t *testing.T) {
		selected, err := f.summarizer.Summarize(ctx, testProject, []string{a.ID})
		require.NoError(t, err)
		require.Len(t, selected.Sources, 1)
		assert.Equal(t, 2, f.generator.CallCount())
		assert.Contains(t, f.generator.Calls()[1].Messages[0].Content, "of the selected documents")
	})

	t.Run("invalidate drops the cache", func(t *testing.T) {
		require.NoError(t, f.summarizer.Invalidate(ctx, testProject))
		_, err := f.summarizer.Summarize(ctx, testProject, nil)
		require.NoError(t, err)
		assert.Equal(t, 3, f.generator.CallCount())
	})
}

func TestSummarize_NoDocuments(t *testing.T) {
	f := newSummaryFixture(t)
	summary, err := f.summarizer.Summarize(context.Background(), testProject, nil)
	require.NoError(t, err)
	assert.Equal(t, NoDocumentsSummary, summary.Text)
	assert.Zero(t, f.generator.CallCount())

	f.addDocument(t, "a.txt", "a0")
	summary, err = f.summarizer.Summarize(context.Background(), testProject, []string{"not-in-project"})
	require.NoError(t, err)
	assert.Equal(t, NoDocumentsSummary, summary.Text)
}

func TestSummarize_UnreadableContent(t *testing.T) {
	f := newSummaryFixture(t)
	f.addDocument(t, "scan.pdf")

	summary, err := f.summarizer.Summarize(context.Background(), testProject, nil)
	require.NoError(t, err)
	assert.Equal(t, UnreadableSummary, summary.Text)
	assert.Empty(t, summary.Sources)
	assert.Zero(t, f.generator.CallCount())
}

func TestSummaryKey(t *testing.T) {
	assert.Equal(t, SummaryKey("p", []string{"a", "b"}), SummaryKey("p", []string{"b", "a"}))
	assert.NotEqual(t, SummaryKey("p", nil), SummaryKey("p", []string{"a"}))
	assert.NotEqual(t, SummaryKey("p", nil), SummaryKey("q", nil))
}
