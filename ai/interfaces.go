package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Implementations must support batch sizes >= 1; callers are responsible
	// for chunking large batches.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator turns a prompt plus retrieved context into natural-language
// analysis text. Implementations must be thread-safe for concurrent use.
type Generator interface {
	// Generate produces analysis text for the prompt, grounded on the given
	// context snippets (retrieved document contents). Cancellation and
	// timeouts are controlled through ctx.
	Generate(ctx context.Context, prompt string, contextSnippets []string) (string, error)
}

// RerankCandidate represents a document candidate for cross-scorer reranking.
type RerankCandidate struct {
	// ID is the document identifier, used to map results back.
	ID uint64

	// Content is the text scored against the query.
	Content string
}

// RerankResult is a reranked candidate with its cross-scorer relevance score.
type RerankResult struct {
	// ID matches the candidate ID.
	ID uint64

	// Score is the cross-scorer relevance score in [0.0, 1.0].
	Score float64
}

// Reranker applies a second, more expensive relevance pass to a candidate
// shortlist. Implementations must be thread-safe for concurrent use.
type Reranker interface {
	// Rerank scores candidates against the query. Results are returned in
	// candidate order; callers resort by score. If an error occurs, callers
	// should fall back to the original scores.
	Rerank(ctx context.Context, query string, candidates []RerankCandidate) ([]RerankResult, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages Embedder, Generator, and Reranker instances,
// ensuring they share configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Generator returns the text-generation service.
	// The returned Generator is safe for concurrent use.
	Generator() Generator

	// Reranker returns the cross-scorer reranking service.
	// The returned Reranker is safe for concurrent use.
	Reranker() Reranker

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
