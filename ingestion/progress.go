package ingestion

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/poiesic/lectern/core"
)

// ProgressTracker reports how many of a set of documents reached a terminal
// status. It redraws a single line on writer.
type ProgressTracker struct {
	writer    io.Writer
	total     int
	completed int
	failed    int
	startTime time.Time
	started   bool
	mu        sync.Mutex
}

// NewProgressTracker creates a tracker for total documents.
func NewProgressTracker(writer io.Writer, total int) *ProgressTracker {
	return &ProgressTracker{writer: writer, total: total}
}

// Start begins tracking progress.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.completed = 0
	p.failed = 0
}

// Observe recounts terminal documents and reports when the count changed.
// It returns true once every tracked document is terminal.
func (p *ProgressTracker) Observe(docs []*core.Document) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return false
	}

	completed, failed := 0, 0
	for _, d := range docs {
		switch d.Status {
		case core.StatusCompleted:
			completed++
		case core.StatusFailed:
			failed++
		}
	}
	if completed != p.completed || failed != p.failed {
		p.completed, p.failed = completed, failed
		p.report()
	}
	return p.completed+p.failed >= p.total
}

// Finish prints the final line.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	p.report()
	fmt.Fprintln(p.writer)
}

// Elapsed returns the time elapsed since Start was called.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}
	return time.Since(p.startTime)
}

// report prints the current progress. Must be called with lock held.
func (p *ProgressTracker) report() {
	done := p.completed + p.failed
	percentage := 0.0
	if p.total > 0 {
		percentage = float64(done) / float64(p.total) * 100.0
	}
	fmt.Fprintf(p.writer, "\rProcessed: %d/%d (%.1f%%) - %d failed - %s",
		done, p.total, percentage, p.failed, time.Since(p.startTime).Round(100*time.Millisecond))
}
