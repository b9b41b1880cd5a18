package extract

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/poiesic/lectern/core"
)

// Extractor decodes one document format into plain text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, data []byte) (string, error)

// Extract calls f.
func (f ExtractorFunc) Extract(ctx context.Context, data []byte) (string, error) {
	return f(ctx, data)
}

// Registry maps lower-case file extensions to extractors.
type Registry struct {
	mu         sync.RWMutex
	extractors map[string]Extractor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[string]Extractor)}
}

// Default returns a registry with every built-in extractor registered.
func Default() *Registry {
	r := NewRegistry()
	r.Register(PlainText(), "txt", "text", "csv", "log")
	r.Register(Markdown(), "md", "markdown")
	r.Register(HTML(), "html", "htm")
	r.Register(DOCX(), "docx")
	r.Register(PDF(), "pdf")
	return r
}

// Register binds e to each extension. Later registrations win.
func (r *Registry) Register(e Extractor, exts ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range exts {
		r.extractors[normalizeExt(ext)] = e
	}
}

// Supports reports whether ext has a registered extractor.
func (r *Registry) Supports(ext string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.extractors[normalizeExt(ext)]
	return ok
}

// Extensions returns the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.extractors))
	for ext := range r.extractors {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// ExtractText decodes data according to ext. The result is trimmed; an empty
// result is reported as ErrNoText.
func (r *Registry) ExtractText(ctx context.Context, data []byte, ext string) (string, error) {
	r.mu.RLock()
	e, ok := r.extractors[normalizeExt(ext)]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}

	text, err := e.Extract(ctx, data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrExtraction, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}
