package retrieval

import "github.com/poiesic/minutia/core"

// Monitor provides hooks to observe the retrieval cascade.
type Monitor interface {
	Start(query core.RetrievalQuery)
	StrategyAttempted(strategy string, matches []core.Match)
	// Finish receives the winning strategy, or "" when every strategy
	// came back empty.
	Finish(strategy string, matches []core.Match)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ core.RetrievalQuery)                {}
func (n *noopMonitor) StrategyAttempted(_ string, _ []core.Match) {}
func (n *noopMonitor) Finish(_ string, _ []core.Match)            {}
