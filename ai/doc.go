// Package ai provides abstractions for AI services used in Blindsight.
//
// This package defines interfaces for AI operations including text
// embeddings, analysis generation, and cross-scorer reranking. It follows
// the dependency inversion principle, allowing the retrieval and workflow
// packages to depend on abstractions rather than concrete implementations.
//
// # Design Principles
//
// The package is designed around four key interfaces:
//
//   - Embedder: Generates vector embeddings from text
//   - Generator: Produces analysis text from a prompt and retrieved context
//   - Reranker: Re-scores a candidate shortlist with a more expensive pass
//   - AIProvider: Aggregates AI services for convenient initialization
//
// # Implementation Packages
//
// The ai package includes two implementation sub-packages:
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// Public constructors (openai.NewProvider, openai.NewEmbedder, etc.) return
// interface types to enforce abstraction. Mock constructors return concrete
// types to enable test assertions and behavior injection.
//
// # Usage Example
//
//	config := ai.DefaultConfig()
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "work life balance at acme")
//	text, err := provider.Generator().Generate(ctx, prompt, snippets)
package ai
