package retrieve

import (
	"github.com/poiesic/weave/core"
)

// Monitor provides hooks to observe the retrieval process.
// Implement this interface to track intermediate steps and results
// while a query's context is being assembled.
type Monitor interface {
	Start(query string)
	ProbeDone(webAvailable bool)
	AfterDocumentRanking(docs []*core.Document)
	AfterFragmentRanking(fragments []*core.RankedFragment)
	AfterLinkSearch(sources []*core.WebSource)
	AfterMediaSearch(images, videos []string)
	AfterFetch(webContext string)
	Finish(result *Result)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                                {}
func (n *noopMonitor) ProbeDone(_ bool)                              {}
func (n *noopMonitor) AfterDocumentRanking(_ []*core.Document)       {}
func (n *noopMonitor) AfterFragmentRanking(_ []*core.RankedFragment) {}
func (n *noopMonitor) AfterLinkSearch(_ []*core.WebSource)           {}
func (n *noopMonitor) AfterMediaSearch(_, _ []string)                {}
func (n *noopMonitor) AfterFetch(_ string)                           {}
func (n *noopMonitor) Finish(_ *Result)                              {}
