package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/poiesic/lectern/ai"
	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/vectorindex"
)

const (
	// DefaultMinPerQuery is the smallest per-query search limit.
	DefaultMinPerQuery = 3
	// DefaultExpansions is how many alternative queries are requested.
	DefaultExpansions = 3
	// ContextSeparator joins hit texts into the context string.
	ContextSeparator = "\n\n"

	expansionTemperature = 0.7
)

// Request describes one retrieval.
type Request struct {
	Collection string
	// Query is the seed. It is expanded when Expand is set.
	Query  string
	Expand bool
	// Seeds replace Query with a fixed query set that is never expanded.
	Seeds []string
	// Budget caps the total number of chunks returned.
	Budget int
	// DocumentIDs restricts hits to any of these documents when non-empty.
	DocumentIDs []string
}

// Result is the merged outcome of a retrieval.
type Result struct {
	Queries []string
	Hits    []core.SearchHit
	Context string
}

// Engine runs multi-query retrieval against a vector index.
type Engine struct {
	embedder    ai.Embedder
	generator   ai.Generator
	index       vectorindex.Index
	minPerQuery int
	expansions  int
	partial     bool
	logger      *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// WithMinPerQuery sets the floor of the per-query search limit. Default is 3.
func WithMinPerQuery(n int) Option {
	return func(e *Engine) error {
		if n < 1 {
			n = 1
		}
		e.minPerQuery = n
		return nil
	}
}

// WithExpansions sets how many alternative queries to request. Zero
// disables expansion. Default is 3.
func WithExpansions(n int) Option {
	return func(e *Engine) error {
		if n < 0 {
			n = 0
		}
		e.expansions = n
		return nil
	}
}

// WithPartialResults keeps the hits of the queries that succeeded when some
// searches fail. By default any failed search fails the retrieval.
func WithPartialResults(enabled bool) Option {
	return func(e *Engine) error {
		e.partial = enabled
		return nil
	}
}

// NewEngine creates a retrieval engine.
func NewEngine(embedder ai.Embedder, generator ai.Generator, index vectorindex.Index, opts ...Option) (*Engine, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if generator == nil {
		return nil, ErrGeneratorRequired
	}
	if index == nil {
		return nil, ErrIndexRequired
	}

	e := &Engine{
		embedder:    embedder,
		generator:   generator,
		index:       index,
		minPerQuery: DefaultMinPerQuery,
		expansions:  DefaultExpansions,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	e.logger = e.logger.With("component", "retrieval")
	return e, nil
}

// Retrieve builds the query set, searches every query and merges the hits.
func (e *Engine) Retrieve(ctx context.Context, req Request) (*Result, error) {
	return e.RetrieveWithMonitor(ctx, req, nil)
}

// RetrieveWithMonitor is Retrieve with callbacks at each stage.
func (e *Engine) RetrieveWithMonitor(ctx context.Context, req Request, monitor Monitor) (*Result, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if req.Budget <= 0 {
		return nil, ErrInvalidBudget
	}

	monitor.Start(req)

	queries, err := e.querySet(ctx, req)
	if err != nil {
		return nil, err
	}
	monitor.AfterExpansion(queries)

	perQuery := max(e.minPerQuery, req.Budget/len(queries))
	filter := vectorindex.ForAnyDocument(req.DocumentIDs)

	perQueryHits, err := e.searchAll(ctx, req.Collection, queries, perQuery, filter)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	merged := make([]core.SearchHit, 0, req.Budget)
	for i, hits := range perQueryHits {
		monitor.AfterQuerySearch(queries[i], hits)
		for _, hit := range hits {
			if _, dup := seen[hit.Text]; dup {
				monitor.DuplicateHit(hit)
				continue
			}
			seen[hit.Text] = struct{}{}
			merged = append(merged, hit)
		}
	}
	if len(merged) > req.Budget {
		merged = merged[:req.Budget]
	}

	texts := make([]string, len(merged))
	for i, hit := range merged {
		texts[i] = hit.Text
	}
	result := &Result{
		Queries: queries,
		Hits:    merged,
		Context: strings.Join(texts, ContextSeparator),
	}
	e.logger.Debug("retrieved context", "collection", req.Collection, "queries", len(queries), "hits", len(merged))
	monitor.Finish(result)
	return result, nil
}

func (e *Engine) querySet(ctx context.Context, req Request) ([]string, error) {
	if len(req.Seeds) > 0 {
		return append([]string(nil), req.Seeds...), nil
	}
	seed := strings.TrimSpace(req.Query)
	if seed == "" {
		return nil, ErrNoQuery
	}
	queries := []string{seed}
	if req.Expand {
		queries = append(queries, e.Expand(ctx, seed)...)
	}
	return queries, nil
}

// searchAll runs one search per query concurrently. Results are indexed by
// query position so the merge order never depends on completion order.
func (e *Engine) searchAll(ctx context.Context, collection string, queries []string, limit int, filter *vectorindex.Filter) ([][]core.SearchHit, error) {
	results := make([][]core.SearchHit, len(queries))
	errs := make([]error, len(queries))

	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = e.search(ctx, collection, q, limit, filter)
		}()
	}
	wg.Wait()

	failed := 0
	var firstErr error
	for i, err := range errs {
		if err == nil {
			continue
		}
		failed++
		if firstErr == nil {
			firstErr = fmt.Errorf("query %q: %w", queries[i], err)
		}
		e.logger.Warn("query search failed", "query", queries[i], "err", err)
	}
	if firstErr == nil {
		return results, nil
	}
	if e.partial && failed < len(queries) {
		return results, nil
	}
	return nil, firstErr
}

func (e *Engine) search(ctx context.Context, collection, query string, limit int, filter *vectorindex.Filter) ([]core.SearchHit, error) {
	vector, err := e.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, ai.EmbeddingError(err)
	}
	return e.index.Search(ctx, collection, vector, limit, filter)
}
