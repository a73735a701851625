package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/blindsight-ai/blindsight/ai"
	"github.com/blindsight-ai/blindsight/core"
	"github.com/blindsight-ai/blindsight/storage"
)

// defaultRerankMultiplier sizes the rerank shortlist relative to topK.
const defaultRerankMultiplier = 2

// DefaultWeights is the lexical/semantic blend used when the caller does
// not specify one.
var DefaultWeights = core.Weights{Lexical: 0.5, Semantic: 0.5}

// HybridRetriever combines lexical term-overlap and semantic vector
// similarity into a single ranked result set, with optional cross-scorer
// reranking of the top candidates.
type HybridRetriever struct {
	documents        storage.DocumentRepository
	embedder         ai.Embedder
	reranker         ai.Reranker
	rerankMultiplier int
	logger           *slog.Logger
}

// Option configures a HybridRetriever.
type Option func(*HybridRetriever) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *HybridRetriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithReranker enables cross-scorer reranking of the top candidates.
// Passing nil disables reranking (the default).
func WithReranker(reranker ai.Reranker) Option {
	return func(r *HybridRetriever) error {
		r.reranker = reranker
		return nil
	}
}

// WithRerankMultiplier sets the shortlist size factor: the reranker scores
// the top topK*multiplier candidates. Default is 2.
func WithRerankMultiplier(multiplier int) Option {
	return func(r *HybridRetriever) error {
		if multiplier <= 0 {
			return ErrInvalidRerankMultiplier
		}
		r.rerankMultiplier = multiplier
		return nil
	}
}

// NewHybridRetriever creates a new hybrid retriever over the document
// repository, using the provider's embedder for semantic scoring. Query
// embeddings are cached with at-most-once computation per text, so
// concurrent stages searching with the same query share one embedding call.
func NewHybridRetriever(
	documents storage.DocumentRepository,
	provider ai.AIProvider,
	opts ...Option,
) (*HybridRetriever, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	r := &HybridRetriever{
		documents:        documents,
		embedder:         newEmbedCache(provider.Embedder()),
		rerankMultiplier: defaultRerankMultiplier,
		logger:           slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Search runs a hybrid search for the query.
// Returns up to query.TopK results, ranked by combined relevance score.
func (r *HybridRetriever) Search(ctx context.Context, query core.RetrievalQuery) (core.RetrievalResult, error) {
	return r.SearchWithMonitor(ctx, query, nil)
}

// SearchByCompany is a convenience wrapper that searches one company's
// documents with the default weights. An empty category matches all
// categories.
func (r *HybridRetriever) SearchByCompany(ctx context.Context, company, category, text string, topK int) (core.RetrievalResult, error) {
	filters := map[string]string{core.MetaCompany: company}
	if category != "" {
		filters[core.MetaCategory] = category
	}
	return r.Search(ctx, core.RetrievalQuery{
		Text:    text,
		Filters: filters,
		TopK:    topK,
		Weights: DefaultWeights,
	})
}

// SearchWithMonitor runs a hybrid search with monitoring. The monitor
// receives callbacks at each phase of the search.
//
// Phases, in order: metadata filtering bounds the candidate set, lexical
// and semantic scores are computed per candidate and min-max normalized
// over that set, the weighted combination is thresholded, the optional
// reranker re-scores the top candidates, and the final ranking is
// truncated to topK. Reranked entries always sort before non-reranked
// ones; ties break by document ID ascending.
func (r *HybridRetriever) SearchWithMonitor(ctx context.Context, query core.RetrievalQuery, monitor SearchMonitor) (core.RetrievalResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if err := core.ValidateRetrievalQuery(&query); err != nil {
		return nil, err
	}

	monitor.Start(query)

	// 1. Filter before scoring so scores are computed over the bounded
	// candidate set only.
	candidates, err := r.documents.ListByMetadata(ctx, query.Filters)
	if err != nil {
		r.logger.Error("error listing candidate documents", "err", err)
		return nil, fmt.Errorf("%w: %w", core.ErrRetrievalUnavailable, err)
	}
	if len(candidates) == 0 {
		empty := core.RetrievalResult{}
		monitor.Finish(empty)
		return empty, nil
	}

	candidateIDs := make([]core.ID, len(candidates))
	docByID := make(map[core.ID]*core.Document, len(candidates))
	for i, doc := range candidates {
		candidateIDs[i] = doc.Id
		docByID[doc.Id] = doc
	}
	monitor.AfterFilter(candidateIDs)

	// 2. Lexical term-overlap scoring
	queryTokens := tokenizeAndFilter(query.Text)
	lexical := make(map[core.ID]float64, len(candidates))
	for _, doc := range candidates {
		lexical[doc.Id] = lexicalOverlap(queryTokens, doc.Content)
	}
	monitor.AfterLexicalScoring(lexical)

	// 3. Semantic cosine scoring. Candidates without embeddings keep 0.
	// An embedder outage degrades to lexical-only scoring unless the
	// query is semantic-only, in which case no scorer remains.
	semantic := make(map[core.ID]float64, len(candidates))
	if query.Weights.Semantic > 0 {
		embedding, embedErr := r.embedder.EmbedText(ctx, query.Text)
		if embedErr != nil {
			if query.Weights.Lexical == 0 {
				r.logger.Error("error generating embedding for query", "err", embedErr)
				return nil, fmt.Errorf("%w: %w", core.ErrRetrievalUnavailable, embedErr)
			}
			r.logger.Warn("embedder unavailable, scoring lexical-only", "err", embedErr)
		} else {
			matches, simErr := r.documents.FindSimilar(ctx, embedding, query.Filters, 0)
			if simErr != nil {
				r.logger.Error("error querying similar documents", "err", simErr)
				return nil, fmt.Errorf("%w: %w", core.ErrRetrievalUnavailable, simErr)
			}
			for _, match := range matches {
				semantic[match.DocumentID] = match.Score
			}
		}
	}
	monitor.AfterSemanticScoring(semantic)

	// 4. Normalize each score list independently over the candidate set
	// so neither scorer dominates purely through scale.
	normLexical := minMaxNormalize(lexical, candidateIDs)
	normSemantic := minMaxNormalize(semantic, candidateIDs)

	// 5-6. Weighted combination, then threshold.
	pool := make(core.RetrievalResult, 0, len(candidates))
	for _, id := range candidateIDs {
		combined := query.Weights.Lexical*normLexical[id] + query.Weights.Semantic*normSemantic[id]
		if combined < query.ScoreThreshold {
			continue
		}
		pool = append(pool, core.ScoredDocument{
			DocumentID:    id,
			CombinedScore: combined,
			LexicalScore:  normLexical[id],
			SemanticScore: normSemantic[id],
		})
	}
	sortScored(pool)
	monitor.AfterCombine(pool)

	// 7. Rerank the shortlist. A reranker failure keeps the hybrid scores.
	if r.reranker != nil && len(pool) > 0 {
		shortlist := min(query.TopK*r.rerankMultiplier, len(pool))
		rerankCandidates := make([]ai.RerankCandidate, shortlist)
		for i := 0; i < shortlist; i++ {
			rerankCandidates[i] = ai.RerankCandidate{
				ID:      uint64(pool[i].DocumentID),
				Content: docByID[pool[i].DocumentID].Content,
			}
		}

		rerankResults, rerankErr := r.reranker.Rerank(ctx, query.Text, rerankCandidates)
		if rerankErr != nil {
			r.logger.Warn("reranker unavailable, keeping hybrid scores", "err", rerankErr)
		} else {
			scoreByID := make(map[core.ID]float64, len(rerankResults))
			for _, res := range rerankResults {
				scoreByID[core.ID(res.ID)] = res.Score
			}
			for i := 0; i < shortlist; i++ {
				if score, ok := scoreByID[pool[i].DocumentID]; ok {
					pool[i].CombinedScore = score
					pool[i].Reranked = true
				}
			}
			monitor.AfterRerank(shortlist)
		}
	}

	// 8. Final ranking and truncation.
	sortScored(pool)
	if len(pool) > query.TopK {
		pool = pool[:query.TopK]
	}
	monitor.Finish(pool)

	return pool, nil
}

// sortScored orders results for ranking: reranked entries first, then
// combined score descending, ties broken by document ID ascending.
func sortScored(results core.RetrievalResult) {
	slices.SortFunc(results, func(a, b core.ScoredDocument) int {
		if a.Reranked != b.Reranked {
			if a.Reranked {
				return -1
			}
			return 1
		}
		if a.CombinedScore > b.CombinedScore {
			return -1
		}
		if a.CombinedScore < b.CombinedScore {
			return 1
		}
		if a.DocumentID < b.DocumentID {
			return -1
		}
		if a.DocumentID > b.DocumentID {
			return 1
		}
		return 0
	})
}

// minMaxNormalize rescales scores to [0,1] over the candidate set. IDs
// missing from scores count as 0. When every candidate has the same
// score, positive scores map to 1 and non-positive ones to 0.
func minMaxNormalize(scores map[core.ID]float64, ids []core.ID) map[core.ID]float64 {
	lo, hi := scores[ids[0]], scores[ids[0]]
	for _, id := range ids[1:] {
		s := scores[id]
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}

	norm := make(map[core.ID]float64, len(ids))
	for _, id := range ids {
		switch {
		case hi > lo:
			norm[id] = (scores[id] - lo) / (hi - lo)
		case hi > 0:
			norm[id] = 1
		default:
			norm[id] = 0
		}
	}
	return norm
}
