package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/poiesic/lectern/core"
)

// SourcesMarker separates the answer text of a stream from its JSON array
// of sources. It is written exactly once, after the last delta.
const SourcesMarker = "__SOURCES__:"

// Event is one unit of an answer stream: a text delta, or the terminal
// sources payload. An event never carries both.
type Event struct {
	Delta   string
	Sources []core.Source
	Final   bool
}

// Encode returns the wire form of the event.
func (e Event) Encode() ([]byte, error) {
	if !e.Final {
		return []byte(e.Delta), nil
	}
	sources := e.Sources
	if sources == nil {
		sources = []core.Source{}
	}
	payload, err := json.Marshal(sources)
	if err != nil {
		return nil, err
	}
	return append([]byte(SourcesMarker), payload...), nil
}

type flusher interface {
	Flush()
}

// Assembler writes an answer stream to w while keeping a copy of everything
// the consumer received. Deltas are forwarded unmodified. Sources are held
// back until Close writes them as the final event.
//
// Once a write to w fails the assembler stops forwarding and reports the
// failure from Delta, so the producer can stop pulling from upstream.
type Assembler struct {
	mu       sync.Mutex
	w        io.Writer
	answer   strings.Builder
	sources  []core.Source
	writeErr error
	closed   bool
}

// NewAssembler returns an Assembler writing to w.
func NewAssembler(w io.Writer) *Assembler {
	return &Assembler{w: w}
}

// Delta forwards one text delta. It has the shape of ai.DeltaFunc.
func (a *Assembler) Delta(_ context.Context, delta string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrStreamClosed
	}
	if a.writeErr != nil {
		return a.writeErr
	}
	if delta == "" {
		return nil
	}
	return a.write(Event{Delta: delta})
}

// Fail reports err inline as answer text. The message becomes part of the
// answer, exactly as the consumer sees it.
func (a *Assembler) Fail(err error) {
	if err == nil {
		return
	}
	_ = a.Delta(context.Background(), InlineError(err))
}

// SetSources records the sources sent with the final event.
func (a *Assembler) SetSources(sources []core.Source) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sources = sources
}

// Close writes the marker and the sources payload in a single write, so the
// payload is never split across reads. Closing twice is a no-op.
func (a *Assembler) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true
	if a.writeErr != nil {
		return a.writeErr
	}
	return a.write(Event{Sources: a.sources, Final: true})
}

// Text returns every delta delivered to the consumer, concatenated.
func (a *Assembler) Text() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.answer.String()
}

// Sources returns the recorded sources, never nil.
func (a *Assembler) Sources() []core.Source {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sources == nil {
		return []core.Source{}
	}
	return a.sources
}

// write must be called with the lock held.
func (a *Assembler) write(ev Event) error {
	data, err := ev.Encode()
	if err != nil {
		return err
	}
	n, err := a.w.Write(data)
	if err != nil {
		// A delta's wire form is its text, so the first n bytes reached the
		// consumer and belong to the answer.
		if !ev.Final && n > 0 {
			a.answer.Write(data[:min(n, len(data))])
		}
		a.writeErr = fmt.Errorf("%w: %w", ErrConsumerGone, err)
		return a.writeErr
	}
	if f, ok := a.w.(flusher); ok {
		f.Flush()
	}
	if !ev.Final {
		a.answer.WriteString(ev.Delta)
	}
	return nil
}

// InlineError renders err the way it appears inside an answer stream.
func InlineError(err error) string {
	return "Error: " + err.Error()
}

// ParseStream splits a fully buffered answer stream into its answer text and
// sources. The last marker occurrence is the separator.
func ParseStream(stream string) (string, []core.Source, error) {
	i := strings.LastIndex(stream, SourcesMarker)
	if i < 0 {
		return "", nil, fmt.Errorf("%w: no sources marker", ErrMalformedStream)
	}

	var sources []core.Source
	payload := stream[i+len(SourcesMarker):]
	if err := json.Unmarshal([]byte(payload), &sources); err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrMalformedStream, err)
	}
	if sources == nil {
		return "", nil, fmt.Errorf("%w: sources payload is not an array", ErrMalformedStream)
	}
	return stream[:i], sources, nil
}
