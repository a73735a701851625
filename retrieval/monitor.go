package retrieval

import "github.com/blindsight-ai/blindsight/core"

// SearchMonitor provides hooks to observe the hybrid search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query core.RetrievalQuery)
	AfterFilter(candidateIDs []core.ID)
	AfterLexicalScoring(scores map[core.ID]float64)
	AfterSemanticScoring(scores map[core.ID]float64)
	AfterCombine(pool core.RetrievalResult)
	AfterRerank(rerankedCount int)
	Finish(results core.RetrievalResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ core.RetrievalQuery)                 {}
func (n *noopMonitor) AfterFilter(_ []core.ID)                     {}
func (n *noopMonitor) AfterLexicalScoring(_ map[core.ID]float64)   {}
func (n *noopMonitor) AfterSemanticScoring(_ map[core.ID]float64)  {}
func (n *noopMonitor) AfterCombine(_ core.RetrievalResult)         {}
func (n *noopMonitor) AfterRerank(_ int)                           {}
func (n *noopMonitor) Finish(_ core.RetrievalResult)               {}
