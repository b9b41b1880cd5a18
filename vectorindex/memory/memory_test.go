package memory

import (
	"context"
	"testing"

	"github.com/poiesic/lectern/vectorindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func point(id, doc string, chunk int, text string, v ...float32) vectorindex.Point {
	return vectorindex.Point{
		ID:      id,
		Vector:  v,
		Payload: vectorindex.Payload{DocumentID: doc, DocumentName: doc + ".txt", ChunkID: chunk, Text: text},
	}
}

func TestEnsureCollectionIdempotent(t *testing.T) {
	ctx := context.Background()
	idx := New()

	require.NoError(t, idx.EnsureCollection(ctx, "project_1", 2))
	require.NoError(t, idx.EnsureCollection(ctx, "project_1", 2))

	assert.Equal(t, []string{"project_1"}, idx.Collections())
	assert.Equal(t, map[string]string{"document_id": "keyword", "chunk_id": "integer"}, idx.Indexes("project_1"))

	assert.ErrorIs(t, idx.EnsureCollection(ctx, "project_2", 0), vectorindex.ErrInvalidDimension)
	assert.ErrorIs(t, idx.EnsureCollection(ctx, "", 2), vectorindex.ErrEmptyCollectionName)
}

func TestUpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	idx := New()
	require.NoError(t, idx.EnsureCollection(ctx, "c", 2))

	require.NoError(t, idx.Upsert(ctx, "c", []vectorindex.Point{
		point("p1", "d1", 0, "east", 1, 0),
		point("p2", "d1", 1, "north", 0, 1),
		point("p3", "d2", 0, "north-east", 1, 1),
	}))

	t.Run("ranked by similarity", func(t *testing.T) {
		hits, err := idx.Search(ctx, "c", []float32{1, 0}, 2, nil)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, "east", hits[0].Text)
		assert.Equal(t, "north-east", hits[1].Text)
		assert.Equal(t, "d1.txt", hits[0].DocumentName)
	})

	t.Run("filtered by document", func(t *testing.T) {
		hits, err := idx.Search(ctx, "c", []float32{1, 0}, 5, vectorindex.ForAnyDocument([]string{"d2"}))
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "d2", hits[0].DocumentID)
	})

	t.Run("missing collection is empty", func(t *testing.T) {
		hits, err := idx.Search(ctx, "nope", []float32{1, 0}, 5, nil)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		_, err := idx.Search(ctx, "c", []float32{1, 0, 0}, 5, nil)
		assert.ErrorIs(t, err, vectorindex.ErrDimensionMismatch)
		err = idx.Upsert(ctx, "c", []vectorindex.Point{point("p9", "d1", 9, "x", 1)})
		assert.ErrorIs(t, err, vectorindex.ErrDimensionMismatch)
	})

	t.Run("upsert into missing collection", func(t *testing.T) {
		err := idx.Upsert(ctx, "nope", []vectorindex.Point{point("p9", "d1", 9, "x", 1, 0)})
		assert.ErrorIs(t, err, vectorindex.ErrCollectionNotFound)
	})
}

func TestScrollAndDelete(t *testing.T) {
	ctx := context.Background()
	idx := New()
	require.NoError(t, idx.EnsureCollection(ctx, "c", 2))
	require.NoError(t, idx.Upsert(ctx, "c", []vectorindex.Point{
		point("a", "d1", 2, "third", 1, 0),
		point("b", "d1", 0, "first", 1, 0),
		point("c", "d1", 1, "second", 1, 0),
		point("d", "d2", 0, "other", 1, 0),
	}))

	texts, err := idx.Scroll(ctx, "c", vectorindex.LeadingChunks("d1", 2), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, texts)

	texts, err = idx.Scroll(ctx, "c", vectorindex.ForDocument("d1"), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, texts)

	idx.Delete(ctx, "c", vectorindex.ForDocument("d1"))
	assert.Len(t, idx.Points("c"), 1)

	texts, err = idx.Scroll(ctx, "missing", nil, 10)
	require.NoError(t, err)
	assert.Empty(t, texts)

	idx.Delete(ctx, "missing", nil)
}
