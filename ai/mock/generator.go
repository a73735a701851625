package mock

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
)

// MockGenerator is a test double for ai.Generator.
// It allows custom behavior injection via function fields.
type MockGenerator struct {
	// GenerateFunc is called by Generate if set.
	// If nil, uses default deterministic behavior.
	GenerateFunc func(ctx context.Context, prompt string, contextSnippets []string) (string, error)

	mu        sync.Mutex
	callCount int
}

// NewMockGenerator creates a mock generator with default deterministic behavior.
// Note: Returns concrete type to allow test assertions via GetMockGenerator().
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Generate produces a deterministic, well-formed analysis JSON object.
// The score and confidence are derived from a hash of the inputs, so the
// same prompt and context always yield the same output.
func (m *MockGenerator) Generate(ctx context.Context, prompt string, contextSnippets []string) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt, contextSnippets)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	h := fnv.New32a()
	h.Write([]byte(prompt))
	for _, snippet := range contextSnippets {
		h.Write([]byte(snippet))
	}
	seed := h.Sum32()

	score := seed % 101                       // 0-100
	confidence := float64(seed%1000) / 1000.0 // 0.0-0.999

	return fmt.Sprintf(
		`{"score": %d, "confidence": %.3f, "narrative": "mock analysis over %d excerpts"}`,
		score, confidence, len(contextSnippets)), nil
}

// CallCount returns the number of times Generate was called.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *MockGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.GenerateFunc = nil
}
