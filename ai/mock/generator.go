package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/poiesic/lectern/ai"
)

// Call records the arguments of one generation request.
type Call struct {
	Messages []ai.Message
	Options  ai.GenerateOptions
}

// MockGenerator is a test double for ai.Generator.
// It allows custom behavior injection via function fields and is safe
// for concurrent use.
type MockGenerator struct {
	// CompleteFunc is called by Complete if set.
	// If nil, Complete returns Reply.
	CompleteFunc func(ctx context.Context, messages []ai.Message, opts ai.GenerateOptions) (string, error)

	// StreamFunc is called by Stream if set.
	// If nil, Stream emits Deltas (or Reply split on spaces) and then StreamErr.
	StreamFunc func(ctx context.Context, messages []ai.Message, onDelta ai.DeltaFunc, opts ai.GenerateOptions) (string, error)

	Reply     string
	Deltas    []string
	StreamErr error

	mu    sync.Mutex
	calls []Call
}

// NewMockGenerator creates a mock generator that answers "mock reply".
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{Reply: "mock reply"}
}

// Complete records the call and returns the configured reply.
func (m *MockGenerator) Complete(ctx context.Context, messages []ai.Message, opts ...ai.GenerateOption) (string, error) {
	o := m.record(messages, opts)
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, messages, o)
	}
	return m.Reply, nil
}

// Stream records the call and emits the configured deltas.
func (m *MockGenerator) Stream(ctx context.Context, messages []ai.Message, onDelta ai.DeltaFunc, opts ...ai.GenerateOption) (string, error) {
	o := m.record(messages, opts)
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, messages, onDelta, o)
	}

	deltas := m.Deltas
	if deltas == nil {
		deltas = SplitDeltas(m.Reply)
	}
	var text strings.Builder
	for _, d := range deltas {
		if err := ctx.Err(); err != nil {
			return text.String(), err
		}
		text.WriteString(d)
		if err := onDelta(ctx, d); err != nil {
			return text.String(), err
		}
	}
	return text.String(), m.StreamErr
}

// Calls returns a copy of the recorded requests.
func (m *MockGenerator) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of Complete and Stream calls.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Reset clears recorded calls.
func (m *MockGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

func (m *MockGenerator) record(messages []ai.Message, opts []ai.GenerateOption) ai.GenerateOptions {
	o := ai.ApplyOptions(opts...)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Messages: append([]ai.Message(nil), messages...), Options: o})
	return o
}

// SplitDeltas splits text after each space so the pieces concatenate back to text.
func SplitDeltas(text string) []string {
	if text == "" {
		return nil
	}
	return strings.SplitAfter(text, " ")
}
