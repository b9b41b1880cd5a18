// Package qdrant implements vectorindex.Index over the Qdrant REST API.
package qdrant

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/vectorindex"
)

const defaultTimeout = 30 * time.Second

// Config holds connection settings.
type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// Client is a minimal REST client to Qdrant.
// It assumes cosine distance and creates collections on demand.
type Client struct {
	url    string
	apiKey string
	client *http.Client
	logger *slog.Logger
}

var _ vectorindex.Index = (*Client)(nil)

// Option configures a Client.
type Option func(*Client) error

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return errors.New("http client is nil")
		}
		c.client = hc
		return nil
	}
}

// New creates a Qdrant-backed index.
//
// Returns vectorindex.Index interface to enforce abstraction.
func New(cfg Config, opts ...Option) (vectorindex.Index, error) {
	if cfg.URL == "" {
		return nil, ErrURLRequired
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrURLRequired, err)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		url:    strings.TrimSuffix(cfg.URL, "/"),
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: timeout},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.logger = c.logger.With("component", "qdrant")
	return c, nil
}

// EnsureCollection creates the collection when missing and then ensures both
// payload indexes exist, whether or not the collection was just created.
func (c *Client) EnsureCollection(ctx context.Context, name string, dimension int) error {
	if name == "" {
		return vectorindex.ErrEmptyCollectionName
	}
	if dimension <= 0 {
		return vectorindex.ErrInvalidDimension
	}

	err := c.do(ctx, http.MethodGet, c.collectionPath(name), nil, nil)
	switch {
	case err == nil:
	case isNotFound(err):
		body := createCollectionRequest{Vectors: vectorParams{Size: dimension, Distance: "Cosine"}}
		if err := c.do(ctx, http.MethodPut, c.collectionPath(name), body, nil); err != nil && !isConflict(err) {
			return fmt.Errorf("%w: create collection %s: %w", core.ErrIndex, name, err)
		}
		c.logger.Info("created collection", "collection", name, "dimension", dimension)
	default:
		return fmt.Errorf("%w: get collection %s: %w", core.ErrIndex, name, err)
	}

	return c.ensureIndexes(ctx, name)
}

func (c *Client) ensureIndexes(ctx context.Context, name string) error {
	for _, field := range requiredIndexes {
		err := c.do(ctx, http.MethodPut, c.collectionPath(name)+"/index?wait=true", field, nil)
		if err != nil && !isAlreadyExists(err) {
			return fmt.Errorf("%w: create index %s on %s: %w", core.ErrIndex, field.FieldName, name, err)
		}
	}
	return nil
}

// Upsert writes points in one call and waits for them to be applied.
func (c *Client) Upsert(ctx context.Context, name string, points []vectorindex.Point) error {
	if len(points) == 0 {
		return nil
	}
	body := upsertRequest{Points: make([]pointStruct, len(points))}
	for i, p := range points {
		body.Points[i] = pointStruct{ID: p.ID, Vector: p.Vector, Payload: p.Payload}
	}
	if err := c.do(ctx, http.MethodPut, c.collectionPath(name)+"/points?wait=true", body, nil); err != nil {
		return fmt.Errorf("%w: upsert into %s: %w", core.ErrIndex, name, err)
	}
	return nil
}

// Search runs a filtered similarity query. When Qdrant rejects the filter
// because a payload index is missing, the indexes are created and the search
// is retried once.
func (c *Client) Search(ctx context.Context, name string, vector []float32, limit int, filter *vectorindex.Filter) ([]core.SearchHit, error) {
	body := searchRequest{Vector: vector, Limit: limit, WithPayload: true, Filter: encodeFilter(filter)}

	var resp searchResponse
	err := c.do(ctx, http.MethodPost, c.collectionPath(name)+"/points/search", body, &resp)
	if err != nil && isIndexRequired(err) {
		c.logger.Warn("payload index missing, creating and retrying", "collection", name, "err", err)
		if ierr := c.ensureIndexes(ctx, name); ierr != nil {
			return nil, ierr
		}
		resp = searchResponse{}
		err = c.do(ctx, http.MethodPost, c.collectionPath(name)+"/points/search", body, &resp)
	}
	if err != nil {
		if isMissingCollection(err) {
			return []core.SearchHit{}, nil
		}
		return nil, fmt.Errorf("%w: search %s: %w", core.ErrIndex, name, err)
	}

	hits := make([]core.SearchHit, len(resp.Result))
	for i, r := range resp.Result {
		hits[i] = r.Payload.Hit(r.ID.String(), r.Score)
	}
	return hits, nil
}

// Scroll reads matching points without vectors and orders them by chunk_id.
func (c *Client) Scroll(ctx context.Context, name string, filter *vectorindex.Filter, limit int) ([]string, error) {
	body := scrollRequest{Filter: encodeFilter(filter), Limit: limit, WithPayload: true, WithVector: false}

	var resp scrollResponse
	if err := c.do(ctx, http.MethodPost, c.collectionPath(name)+"/points/scroll", body, &resp); err != nil {
		if isMissingCollection(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: scroll %s: %w", core.ErrIndex, name, err)
	}

	points := resp.Result.Points
	slices.SortFunc(points, func(a, b scoredPoint) int {
		return cmp.Compare(a.Payload.ChunkID, b.Payload.ChunkID)
	})
	texts := make([]string, len(points))
	for i, p := range points {
		texts[i] = p.Payload.Text
	}
	return texts, nil
}

// Delete removes points matching filter. Errors are logged, never returned.
func (c *Client) Delete(ctx context.Context, name string, filter *vectorindex.Filter) {
	body := deleteRequest{Filter: encodeFilter(filter)}
	if err := c.do(ctx, http.MethodPost, c.collectionPath(name)+"/points/delete?wait=true", body, nil); err != nil {
		c.logger.Error("failed to delete points", "collection", name, "err", err)
	}
}

func (c *Client) collectionPath(name string) string {
	return c.url + "/collections/" + url.PathEscape(name)
}

// do sends body as JSON and decodes the response into out when non-nil.
// Non-2xx responses become *apiError.
func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return newAPIError(resp)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
