// Package memory is an in-process vectorindex.Index using brute-force cosine
// similarity. It backs tests and single-process runs without a vector server.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"

	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/vectorindex"
)

var _ vectorindex.Index = (*Index)(nil)

type storedPoint struct {
	point vectorindex.Point
	seq   int
}

type collection struct {
	dimension int
	indexes   map[string]string
	points    map[string]storedPoint
	nextSeq   int
}

// Index keeps collections in memory.
type Index struct {
	mu          sync.RWMutex
	collections map[string]*collection
	logger      *slog.Logger
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Index) {
		if logger == nil {
			logger = slog.Default()
		}
		i.logger = logger
	}
}

// New creates an empty in-memory index.
func New(opts ...Option) *Index {
	idx := &Index{
		collections: make(map[string]*collection),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	idx.logger = idx.logger.With("component", "memory-index")
	return idx
}

// EnsureCollection creates the collection and its payload indexes if missing.
func (i *Index) EnsureCollection(_ context.Context, name string, dimension int) error {
	if name == "" {
		return vectorindex.ErrEmptyCollectionName
	}
	if dimension <= 0 {
		return vectorindex.ErrInvalidDimension
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	c, ok := i.collections[name]
	if !ok {
		c = &collection{
			dimension: dimension,
			indexes:   make(map[string]string),
			points:    make(map[string]storedPoint),
		}
		i.collections[name] = c
		i.logger.Debug("created collection", "collection", name, "dimension", dimension)
	}
	c.indexes[vectorindex.KeyDocumentID] = "keyword"
	c.indexes[vectorindex.KeyChunkID] = "integer"
	return nil
}

// Upsert stores points, replacing any with the same id.
func (i *Index) Upsert(_ context.Context, name string, points []vectorindex.Point) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	c, ok := i.collections[name]
	if !ok {
		return fmt.Errorf("%w: %s", vectorindex.ErrCollectionNotFound, name)
	}
	for _, p := range points {
		if len(p.Vector) != c.dimension {
			return fmt.Errorf("%w: got %d, want %d", vectorindex.ErrDimensionMismatch, len(p.Vector), c.dimension)
		}
	}
	for _, p := range points {
		seq := c.nextSeq
		if existing, ok := c.points[p.ID]; ok {
			seq = existing.seq
		} else {
			c.nextSeq++
		}
		c.points[p.ID] = storedPoint{point: p, seq: seq}
	}
	return nil
}

// Search ranks matching points by cosine similarity. Ties keep insertion order.
func (i *Index) Search(_ context.Context, name string, vector []float32, limit int, filter *vectorindex.Filter) ([]core.SearchHit, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	c, ok := i.collections[name]
	if !ok || limit <= 0 {
		return []core.SearchHit{}, nil
	}
	if len(vector) != c.dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", vectorindex.ErrDimensionMismatch, len(vector), c.dimension)
	}

	type scored struct {
		sp    storedPoint
		score float32
	}
	candidates := make([]scored, 0, len(c.points))
	for _, sp := range c.points {
		if !filter.Matches(sp.point.Payload) {
			continue
		}
		candidates = append(candidates, scored{sp: sp, score: cosine(vector, sp.point.Vector)})
	}
	slices.SortFunc(candidates, func(a, b scored) int {
		if a.score != b.score {
			return cmp.Compare(b.score, a.score)
		}
		return cmp.Compare(a.sp.seq, b.sp.seq)
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	hits := make([]core.SearchHit, len(candidates))
	for j, s := range candidates {
		hits[j] = s.sp.point.Payload.Hit(s.sp.point.ID, s.score)
	}
	return hits, nil
}

// Scroll returns matching chunk texts ordered by chunk_id.
func (i *Index) Scroll(_ context.Context, name string, filter *vectorindex.Filter, limit int) ([]string, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	c, ok := i.collections[name]
	if !ok || limit <= 0 {
		return []string{}, nil
	}

	matched := make([]vectorindex.Payload, 0)
	for _, sp := range c.points {
		if filter.Matches(sp.point.Payload) {
			matched = append(matched, sp.point.Payload)
		}
	}
	slices.SortFunc(matched, func(a, b vectorindex.Payload) int {
		return cmp.Compare(a.ChunkID, b.ChunkID)
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	texts := make([]string, len(matched))
	for j, p := range matched {
		texts[j] = p.Text
	}
	return texts, nil
}

// Delete removes matching points. A missing collection is logged.
func (i *Index) Delete(_ context.Context, name string, filter *vectorindex.Filter) {
	i.mu.Lock()
	defer i.mu.Unlock()

	c, ok := i.collections[name]
	if !ok {
		i.logger.Warn("delete against missing collection", "collection", name)
		return
	}
	removed := 0
	for id, sp := range c.points {
		if filter.Matches(sp.point.Payload) {
			delete(c.points, id)
			removed++
		}
	}
	i.logger.Debug("deleted points", "collection", name, "count", removed)
}

// Collections returns the names of existing collections, sorted.
func (i *Index) Collections() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	names := make([]string, 0, len(i.collections))
	for name := range i.collections {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Indexes returns the payload indexes of a collection keyed by field.
func (i *Index) Indexes(name string) map[string]string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	c, ok := i.collections[name]
	if !ok {
		return nil
	}
	out := make(map[string]string, len(c.indexes))
	for k, v := range c.indexes {
		out[k] = v
	}
	return out
}

// Points returns every stored point of a collection ordered by chunk_id.
func (i *Index) Points(name string) []vectorindex.Point {
	i.mu.RLock()
	defer i.mu.RUnlock()
	c, ok := i.collections[name]
	if !ok {
		return nil
	}
	out := make([]vectorindex.Point, 0, len(c.points))
	for _, sp := range c.points {
		out = append(out, sp.point)
	}
	slices.SortFunc(out, func(a, b vectorindex.Point) int {
		if n := cmp.Compare(a.Payload.DocumentID, b.Payload.DocumentID); n != 0 {
			return n
		}
		return cmp.Compare(a.Payload.ChunkID, b.Payload.ChunkID)
	})
	return out
}

// cosine returns the cosine similarity of a and b, or 0 for zero vectors.
func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for k := range a {
		dot += float64(a[k]) * float64(b[k])
		na += float64(a[k]) * float64(a[k])
		nb += float64(b[k]) * float64(b[k])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
