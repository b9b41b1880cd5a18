package vectorindex

import (
	"context"

	"github.com/poiesic/lectern/core"
)

// Index stores embeddings in named collections and searches them.
// Implementations must be safe for concurrent use; concurrent Upsert calls
// with distinct point ids never contend.
type Index interface {
	// EnsureCollection creates the collection if missing and makes sure the
	// document_id and chunk_id payload indexes exist. Calling it repeatedly
	// with the same arguments is a no-op.
	EnsureCollection(ctx context.Context, name string, dimension int) error

	// Upsert writes points in one call.
	Upsert(ctx context.Context, name string, points []Point) error

	// Search returns up to limit hits ordered by descending similarity.
	Search(ctx context.Context, name string, vector []float32, limit int, filter *Filter) ([]core.SearchHit, error)

	// Scroll returns up to limit chunk texts matching filter, ordered by chunk_id.
	Scroll(ctx context.Context, name string, filter *Filter, limit int) ([]string, error)

	// Delete removes every point matching filter. Failures are logged.
	Delete(ctx context.Context, name string, filter *Filter)
}

// Point is one stored vector.
type Point struct {
	ID      string
	Vector  []float32
	Payload Payload
}

// Payload is the metadata stored alongside a vector.
type Payload struct {
	DocumentID   string `json:"document_id"`
	DocumentName string `json:"document_name"`
	ChunkID      int    `json:"chunk_id"`
	Text         string `json:"text"`
}

// Hit converts a stored payload into a search hit.
func (p Payload) Hit(id string, score float32) core.SearchHit {
	return core.SearchHit{
		ID:           id,
		Score:        score,
		Text:         p.Text,
		DocumentID:   p.DocumentID,
		DocumentName: p.DocumentName,
		ChunkID:      p.ChunkID,
	}
}
