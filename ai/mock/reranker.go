package mock

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/blindsight-ai/blindsight/ai"
)

// MockReranker is a test double for ai.Reranker.
// It allows custom behavior injection via function fields.
type MockReranker struct {
	// RerankFunc is called by Rerank if set.
	// If nil, uses default deterministic behavior.
	RerankFunc func(ctx context.Context, query string, candidates []ai.RerankCandidate) ([]ai.RerankResult, error)

	mu        sync.Mutex
	callCount int
}

// NewMockReranker creates a mock reranker with default deterministic behavior.
// Note: Returns concrete type to allow test assertions via GetMockReranker().
func NewMockReranker() *MockReranker {
	return &MockReranker{}
}

// Rerank assigns each candidate a deterministic score derived from a hash of
// the query and the candidate content.
func (m *MockReranker) Rerank(ctx context.Context, query string, candidates []ai.RerankCandidate) ([]ai.RerankResult, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.RerankFunc != nil {
		return m.RerankFunc(ctx, query, candidates)
	}

	results := make([]ai.RerankResult, len(candidates))
	for i, c := range candidates {
		h := fnv.New32a()
		h.Write([]byte(query))
		h.Write([]byte(c.Content))
		results[i] = ai.RerankResult{
			ID:    c.ID,
			Score: float64(h.Sum32()%1000) / 1000.0,
		}
	}
	return results, nil
}

// CallCount returns the number of times Rerank was called.
func (m *MockReranker) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *MockReranker) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.RerankFunc = nil
}
