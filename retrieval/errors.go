package retrieval

import "errors"

var (
	// ErrDocumentRepositoryRequired is returned when a document repository is not provided.
	ErrDocumentRepositoryRequired = errors.New("document repository required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrInvalidRerankMultiplier is returned for a non-positive rerank multiplier.
	ErrInvalidRerankMultiplier = errors.New("rerank multiplier must be positive")
)
