// Package retrieval provides hybrid lexical and semantic search over the
// review document corpus.
//
// The HybridRetriever type implements a multi-phase ranking algorithm:
//   - Metadata filtering bounds the candidate set before any scoring
//   - Lexical scoring via term-overlap frequency with stop-word filtering
//   - Semantic scoring via cosine similarity over stored embeddings
//   - Min-max normalization of both score lists over the candidate set
//   - Weighted combination, thresholding, and optional cross-scorer
//     reranking of the top candidates
//
// Query embeddings are cached with at-most-once computation per text, so
// concurrent analysis stages never duplicate embedding calls.
package retrieval
