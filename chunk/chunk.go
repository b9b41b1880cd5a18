// Package chunk splits extracted document text into overlapping chunks sized
// for embedding.
package chunk

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/poiesic/lectern/core"
)

const (
	// DefaultSize is the target chunk length in characters.
	DefaultSize = 500
	// DefaultOverlap is the number of characters shared by neighbouring chunks.
	DefaultOverlap = 50
)

var (
	ErrInvalidSize    = errors.New("chunk size must be positive")
	ErrInvalidOverlap = errors.New("chunk overlap must be non-negative and smaller than the chunk size")
)

// Chunker splits text into ordered chunks.
type Chunker interface {
	Chunk(text string) ([]core.Chunk, error)
}

// Splitter is a recursive character splitter: it prefers paragraph breaks,
// then line breaks, then spaces.
type Splitter struct {
	size     int
	overlap  int
	splitter textsplitter.TextSplitter
}

var _ Chunker = (*Splitter)(nil)

// Option configures a Splitter.
type Option func(*Splitter) error

// WithSize sets the target chunk length.
func WithSize(n int) Option {
	return func(s *Splitter) error {
		if n <= 0 {
			return ErrInvalidSize
		}
		s.size = n
		return nil
	}
}

// WithOverlap sets how many characters neighbouring chunks share.
func WithOverlap(n int) Option {
	return func(s *Splitter) error {
		if n < 0 {
			return ErrInvalidOverlap
		}
		s.overlap = n
		return nil
	}
}

// New returns a Splitter, 500 characters with 50 overlap unless configured.
func New(opts ...Option) (*Splitter, error) {
	s := &Splitter{size: DefaultSize, overlap: DefaultOverlap}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.overlap >= s.size {
		return nil, ErrInvalidOverlap
	}
	s.splitter = textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(s.size),
		textsplitter.WithChunkOverlap(s.overlap),
	)
	return s, nil
}

// Size returns the configured chunk size.
func (s *Splitter) Size() int { return s.size }

// Overlap returns the configured overlap.
func (s *Splitter) Overlap() int { return s.overlap }

// Chunk splits text. Whitespace-only pieces are dropped and the remaining
// chunks are numbered from zero in document order.
func (s *Splitter) Chunk(text string) ([]core.Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	parts, err := s.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrChunking, err)
	}

	chunks := make([]core.Chunk, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		chunks = append(chunks, core.Chunk{Index: len(chunks), Text: p})
	}
	return chunks, nil
}
