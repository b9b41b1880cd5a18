package retrieval

import "github.com/poiesic/lectern/core"

// Monitor provides hooks to observe retrieval.
// Implement this interface to trace the query set and per-query hits.
type Monitor interface {
	Start(req Request)
	AfterExpansion(queries []string)
	AfterQuerySearch(query string, hits []core.SearchHit)
	DuplicateHit(hit core.SearchHit)
	Finish(result *Result)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ Request)                           {}
func (n *noopMonitor) AfterExpansion(_ []string)                 {}
func (n *noopMonitor) AfterQuerySearch(_ string, _ []core.SearchHit) {}
func (n *noopMonitor) DuplicateHit(_ core.SearchHit)             {}
func (n *noopMonitor) Finish(_ *Result)                          {}
