package core

import "fmt"

// DocumentStatus is the ingestion state of a Document.
type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"
)

// Fixed failure messages recorded on a Document.
const (
	MessageExtractionFailed = "Failed to extract text"
	MessageNoChunks         = "No chunks generated"
)

// Progress messages recorded while a Document is processing.
const (
	MessageExtracting = "Extracting text..."
	MessageChunking   = "Chunking text..."
)

// MessageEmbedding returns the progress message for the embedding step.
func MessageEmbedding(chunks int) string {
	return fmt.Sprintf("Generating embeddings (%d chunks)...", chunks)
}

// ParseStatus converts a string to a DocumentStatus.
func ParseStatus(s string) (DocumentStatus, error) {
	status := DocumentStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return status, nil
}

// Valid reports whether s is one of the four known states.
func (s DocumentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no transition may leave s.
func (s DocumentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func (s DocumentStatus) String() string {
	return string(s)
}

// rank orders states along pending → processing → terminal.
func (s DocumentStatus) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusProcessing:
		return 1
	default:
		return 2
	}
}

// ValidateTransition checks that moving from one state to another keeps the
// status monotonic. Re-writing the same non-terminal state is allowed so the
// message can change while a document is processing.
//
// A document only completes after processing. pending -> failed is the one
// allowed skip: it records work that was never picked up, such as an upload
// the pipeline refused.
func ValidateTransition(from, to DocumentStatus) error {
	if !from.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, from)
	}
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	if from.Terminal() {
		return fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, from)
	}
	if to.rank() < from.rank() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	if from == StatusPending && to == StatusCompleted {
		return fmt.Errorf("%w: %s -> %s skips %s", ErrInvalidTransition, from, to, StatusProcessing)
	}
	return nil
}
