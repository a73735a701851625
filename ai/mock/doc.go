// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.Generator,
// ai.Reranker, and ai.AIProvider for use in unit tests. The mocks allow tests
// to run without external AI service dependencies and enable controlled,
// deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	mockProvider := mock.NewMockProvider()
//	vector, err := mockProvider.Embedder().EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	mockGen := mock.NewMockGenerator()
//	mockGen.GenerateFunc = func(ctx context.Context, prompt string, snippets []string) (string, error) {
//	    return `{"score": 80, "confidence": 0.9, "narrative": "fixed"}`, nil
//	}
//
//	// Check call counts
//	count := mockGen.CallCount()
//
// # Default Behavior
//
// The mock implementations provide deterministic defaults keyed on their
// inputs: the embedder hashes text into a fixed unit vector, the generator
// emits a well-formed analysis JSON object, and the reranker scores each
// candidate from a hash of the query and content. All mocks are safe for
// concurrent use.
package mock
