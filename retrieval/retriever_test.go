package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blindsight-ai/blindsight/ai"
	"github.com/blindsight-ai/blindsight/ai/mock"
	"github.com/blindsight-ai/blindsight/core"
	"github.com/blindsight-ai/blindsight/storage"
	"github.com/blindsight-ai/blindsight/storage/badger"
)

func setupRepo(t *testing.T) storage.DocumentRepository {
	t.Helper()
	repo, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedDoc(t *testing.T, repo storage.DocumentRepository, content, category string, embedding []float32) *core.Document {
	t.Helper()
	doc := &core.Document{
		Content: content,
		Metadata: map[string]string{
			core.MetaCompany:  "acme",
			core.MetaCategory: category,
		},
		Embedding: embedding,
	}
	_, err := repo.AddDocuments(context.Background(), doc)
	require.NoError(t, err)
	return doc
}

func lexicalOnlyQuery(text, category string, topK int) core.RetrievalQuery {
	return core.RetrievalQuery{
		Text:    text,
		Filters: map[string]string{core.MetaCategory: category},
		TopK:    topK,
		Weights: core.Weights{Lexical: 1.0, Semantic: 0.0},
	}
}

func TestNewHybridRetriever(t *testing.T) {
	repo := setupRepo(t)
	provider := mock.NewMockProvider()

	t.Run("valid configuration", func(t *testing.T) {
		retriever, err := NewHybridRetriever(repo, provider)
		require.NoError(t, err)
		assert.NotNil(t, retriever)
	})

	t.Run("with reranker and multiplier", func(t *testing.T) {
		retriever, err := NewHybridRetriever(repo, provider,
			WithReranker(mock.NewMockReranker()),
			WithRerankMultiplier(3),
		)
		require.NoError(t, err)
		assert.NotNil(t, retriever)
	})

	t.Run("nil repository", func(t *testing.T) {
		_, err := NewHybridRetriever(nil, provider)
		assert.Equal(t, ErrDocumentRepositoryRequired, err)
	})

	t.Run("nil provider", func(t *testing.T) {
		_, err := NewHybridRetriever(repo, nil)
		assert.Equal(t, ErrAIProviderRequired, err)
	})

	t.Run("invalid rerank multiplier", func(t *testing.T) {
		_, err := NewHybridRetriever(repo, provider, WithRerankMultiplier(0))
		assert.Equal(t, ErrInvalidRerankMultiplier, err)
	})
}

func TestSearch_Validation(t *testing.T) {
	repo := setupRepo(t)
	retriever, err := NewHybridRetriever(repo, mock.NewMockProvider())
	require.NoError(t, err)

	ctx := context.Background()

	t.Run("empty query text", func(t *testing.T) {
		_, err := retriever.Search(ctx, core.RetrievalQuery{
			TopK:    5,
			Weights: core.Weights{Lexical: 0.5, Semantic: 0.5},
		})
		assert.ErrorIs(t, err, core.ErrEmptyQueryText)
	})

	t.Run("topK zero", func(t *testing.T) {
		_, err := retriever.Search(ctx, core.RetrievalQuery{
			Text:    "culture",
			TopK:    0,
			Weights: core.Weights{Lexical: 0.5, Semantic: 0.5},
		})
		assert.ErrorIs(t, err, core.ErrInvalidTopK)
	})

	t.Run("weights not summing to one", func(t *testing.T) {
		_, err := retriever.Search(ctx, core.RetrievalQuery{
			Text:    "culture",
			TopK:    5,
			Weights: core.Weights{Lexical: 0.7, Semantic: 0.7},
		})
		assert.ErrorIs(t, err, core.ErrInvalidWeights)
	})
}

func TestSearch_EmptyCorpus(t *testing.T) {
	repo := setupRepo(t)
	retriever, err := NewHybridRetriever(repo, mock.NewMockProvider())
	require.NoError(t, err)

	results, err := retriever.Search(context.Background(), lexicalOnlyQuery("anything", "culture", 5))
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_FilterBeforeScoring(t *testing.T) {
	repo := setupRepo(t)
	doc1 := seedDoc(t, repo, "good worklife", "culture", nil)
	doc2 := seedDoc(t, repo, "low pay", "salary", nil)

	retriever, err := NewHybridRetriever(repo, mock.NewMockProvider())
	require.NoError(t, err)

	results, err := retriever.Search(context.Background(), lexicalOnlyQuery("good worklife", "culture", 5))
	require.NoError(t, err)

	// doc2 is excluded by the category filter, not by scoring
	require.Len(t, results, 1)
	assert.Equal(t, doc1.Id, results[0].DocumentID)
	assert.Greater(t, results[0].LexicalScore, 0.0)
	assert.NotContains(t, results.DocumentIDs(), doc2.Id)
}

func TestSearch_FilterExcludesTextualMatch(t *testing.T) {
	repo := setupRepo(t)
	seedDoc(t, repo, "good worklife balance", "salary", nil)

	retriever, err := NewHybridRetriever(repo, mock.NewMockProvider())
	require.NoError(t, err)

	// Perfect textual match, wrong category: never appears
	results, err := retriever.Search(context.Background(), lexicalOnlyQuery("good worklife balance", "culture", 5))
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_RankingAndTieBreak(t *testing.T) {
	repo := setupRepo(t)
	full1 := seedDoc(t, repo, "flexible hours and remote days", "balance", nil)
	full2 := seedDoc(t, repo, "remote days with flexible hours offered", "balance", nil)
	partial := seedDoc(t, repo, "flexible dress code", "balance", nil)

	retriever, err := NewHybridRetriever(repo, mock.NewMockProvider())
	require.NoError(t, err)

	results, err := retriever.Search(context.Background(), lexicalOnlyQuery("flexible hours remote days", "balance", 5))
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Scores are non-increasing
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].CombinedScore, results[i].CombinedScore)
	}

	// The two full matches tie at the top; the tie breaks by ID ascending
	first, second := full1.Id, full2.Id
	if second < first {
		first, second = second, first
	}
	assert.Equal(t, first, results[0].DocumentID)
	assert.Equal(t, second, results[1].DocumentID)
	assert.Equal(t, partial.Id, results[2].DocumentID)
}

func TestSearch_TopKTruncation(t *testing.T) {
	repo := setupRepo(t)
	seedDoc(t, repo, "culture one", "culture", nil)
	seedDoc(t, repo, "culture two", "culture", nil)
	seedDoc(t, repo, "culture three", "culture", nil)

	retriever, err := NewHybridRetriever(repo, mock.NewMockProvider())
	require.NoError(t, err)

	results, err := retriever.Search(context.Background(), lexicalOnlyQuery("culture", "culture", 2))
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearch_ScoreThreshold(t *testing.T) {
	repo := setupRepo(t)
	match := seedDoc(t, repo, "management listens to feedback", "management", nil)
	seedDoc(t, repo, "nothing relevant here", "management", nil)

	retriever, err := NewHybridRetriever(repo, mock.NewMockProvider())
	require.NoError(t, err)

	query := lexicalOnlyQuery("management listens feedback", "management", 5)
	query.ScoreThreshold = 0.5

	results, err := retriever.Search(context.Background(), query)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, match.Id, results[0].DocumentID)
}

func TestSearch_SemanticScoring(t *testing.T) {
	repo := setupRepo(t)
	aligned := seedDoc(t, repo, "alpha", "culture", []float32{1, 0, 0})
	opposed := seedDoc(t, repo, "beta", "culture", []float32{-1, 0, 0})
	noEmbedding := seedDoc(t, repo, "gamma", "culture", nil)

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0, 0}, nil
	}
	provider := mock.NewMockProviderWithServices(embedder, mock.NewMockGenerator(), mock.NewMockReranker())

	retriever, err := NewHybridRetriever(repo, provider)
	require.NoError(t, err)

	results, err := retriever.Search(context.Background(), core.RetrievalQuery{
		Text:    "team spirit",
		Filters: map[string]string{core.MetaCategory: "culture"},
		TopK:    5,
		Weights: core.Weights{Lexical: 0.0, Semantic: 1.0},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Min-max normalization over the candidate set maps the best cosine
	// to 1 and the worst to 0.
	assert.Equal(t, aligned.Id, results[0].DocumentID)
	assert.Equal(t, 1.0, results[0].SemanticScore)
	assert.Equal(t, opposed.Id, results[2].DocumentID)
	assert.Equal(t, 0.0, results[2].SemanticScore)

	// The embedding-less document scores 0 raw, which lands between the
	// aligned and opposed candidates after normalization.
	assert.Equal(t, noEmbedding.Id, results[1].DocumentID)
	assert.InDelta(t, 0.5, results[1].SemanticScore, 1e-9)
}

func TestSearch_EmbedderFailure(t *testing.T) {
	repo := setupRepo(t)
	match := seedDoc(t, repo, "good worklife", "culture", []float32{1, 0})
	seedDoc(t, repo, "unrelated text", "culture", []float32{0, 1})

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, assert.AnError
	}
	provider := mock.NewMockProviderWithServices(embedder, mock.NewMockGenerator(), mock.NewMockReranker())

	retriever, err := NewHybridRetriever(repo, provider)
	require.NoError(t, err)

	ctx := context.Background()

	t.Run("degrades to lexical when lexical weight remains", func(t *testing.T) {
		results, err := retriever.Search(ctx, core.RetrievalQuery{
			Text:    "good worklife",
			Filters: map[string]string{core.MetaCategory: "culture"},
			TopK:    5,
			Weights: core.Weights{Lexical: 0.5, Semantic: 0.5},
		})
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, match.Id, results[0].DocumentID)
	})

	t.Run("fails when semantic is the only scorer", func(t *testing.T) {
		_, err := retriever.Search(ctx, core.RetrievalQuery{
			Text:    "good worklife",
			Filters: map[string]string{core.MetaCategory: "culture"},
			TopK:    5,
			Weights: core.Weights{Lexical: 0.0, Semantic: 1.0},
		})
		assert.ErrorIs(t, err, core.ErrRetrievalUnavailable)
	})
}

func TestSearch_QueryEmbeddingCached(t *testing.T) {
	repo := setupRepo(t)
	seedDoc(t, repo, "salary is fair", "salary", []float32{1, 0})

	embedder := mock.NewMockEmbedder()
	provider := mock.NewMockProviderWithServices(embedder, mock.NewMockGenerator(), mock.NewMockReranker())

	retriever, err := NewHybridRetriever(repo, provider)
	require.NoError(t, err)

	ctx := context.Background()
	query := core.RetrievalQuery{
		Text:    "how is the pay",
		Filters: map[string]string{core.MetaCategory: "salary"},
		TopK:    3,
		Weights: core.Weights{Lexical: 0.5, Semantic: 0.5},
	}

	_, err = retriever.Search(ctx, query)
	require.NoError(t, err)
	_, err = retriever.Search(ctx, query)
	require.NoError(t, err)

	assert.Equal(t, 1, embedder.CallCount())
}

func TestSearch_Reranking(t *testing.T) {
	repo := setupRepo(t)
	seedDoc(t, repo, "career growth is steady here", "career", nil)
	seedDoc(t, repo, "career growth stalled", "career", nil)
	seedDoc(t, repo, "career ladder", "career", nil)
	seedDoc(t, repo, "growth", "career", nil)

	reranker := mock.NewMockReranker()
	var rerankedIDs []uint64
	reranker.RerankFunc = func(ctx context.Context, query string, candidates []ai.RerankCandidate) ([]ai.RerankResult, error) {
		rerankedIDs = nil
		results := make([]ai.RerankResult, len(candidates))
		for i, c := range candidates {
			rerankedIDs = append(rerankedIDs, c.ID)
			// Invert the incoming order with deliberately low scores
			results[i] = ai.RerankResult{ID: c.ID, Score: 0.1 * float64(i+1)}
		}
		return results, nil
	}

	retriever, err := NewHybridRetriever(repo, mock.NewMockProvider(), WithReranker(reranker))
	require.NoError(t, err)

	query := lexicalOnlyQuery("career growth", "career", 3)
	results, err := retriever.Search(context.Background(), query)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// topK=3 with the default multiplier caps the shortlist at the pool size
	assert.Equal(t, 1, reranker.CallCount())
	assert.Len(t, rerankedIDs, 4)
	for _, res := range results {
		assert.True(t, res.Reranked)
	}

	// The inverted rerank scores flipped the ranking
	assert.InDelta(t, 0.4, results[0].CombinedScore, 1e-9)
	assert.Greater(t, results[0].CombinedScore, results[1].CombinedScore)
}

func TestSearch_RerankedSortBeforeNonReranked(t *testing.T) {
	repo := setupRepo(t)
	seedDoc(t, repo, "management listens and acts on feedback", "management", nil)
	seedDoc(t, repo, "management listens to feedback", "management", nil)
	seedDoc(t, repo, "management listens", "management", nil)
	seedDoc(t, repo, "management", "management", nil)

	// A partial rerank response: only the top two candidates come back
	// scored, and with scores far below every hybrid score.
	reranker := mock.NewMockReranker()
	reranker.RerankFunc = func(ctx context.Context, query string, candidates []ai.RerankCandidate) ([]ai.RerankResult, error) {
		results := make([]ai.RerankResult, 0, 2)
		for _, c := range candidates[:2] {
			results = append(results, ai.RerankResult{ID: c.ID, Score: 0.01})
		}
		return results, nil
	}

	retriever, err := NewHybridRetriever(repo, mock.NewMockProvider(), WithReranker(reranker))
	require.NoError(t, err)

	query := lexicalOnlyQuery("management listens acts feedback", "management", 3)
	results, err := retriever.Search(context.Background(), query)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Reranked entries keep priority over non-reranked ones even though
	// their raw scores are lower.
	assert.True(t, results[0].Reranked)
	assert.True(t, results[1].Reranked)
	assert.False(t, results[2].Reranked)
	assert.Greater(t, results[2].CombinedScore, results[0].CombinedScore)
}

func TestSearch_RerankerFailureKeepsHybridScores(t *testing.T) {
	repo := setupRepo(t)
	best := seedDoc(t, repo, "good worklife balance", "balance", nil)
	seedDoc(t, repo, "worklife", "balance", nil)

	reranker := mock.NewMockReranker()
	reranker.RerankFunc = func(ctx context.Context, query string, candidates []ai.RerankCandidate) ([]ai.RerankResult, error) {
		return nil, assert.AnError
	}

	retriever, err := NewHybridRetriever(repo, mock.NewMockProvider(), WithReranker(reranker))
	require.NoError(t, err)

	results, err := retriever.Search(context.Background(), lexicalOnlyQuery("good worklife balance", "balance", 2))
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, best.Id, results[0].DocumentID)
	for _, res := range results {
		assert.False(t, res.Reranked)
	}
}

func TestSearchByCompany(t *testing.T) {
	repo := setupRepo(t)
	acme := seedDoc(t, repo, "collaborative culture", "culture", nil)

	other := &core.Document{
		Content: "collaborative culture elsewhere",
		Metadata: map[string]string{
			core.MetaCompany:  "globex",
			core.MetaCategory: "culture",
		},
	}
	_, err := repo.AddDocuments(context.Background(), other)
	require.NoError(t, err)

	retriever, err := NewHybridRetriever(repo, mock.NewMockProvider())
	require.NoError(t, err)

	results, err := retriever.SearchByCompany(context.Background(), "acme", "culture", "collaborative culture", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, acme.Id, results[0].DocumentID)
}

func TestSearchWithMonitor_Callbacks(t *testing.T) {
	repo := setupRepo(t)
	seedDoc(t, repo, "good worklife", "culture", nil)

	retriever, err := NewHybridRetriever(repo, mock.NewMockProvider())
	require.NoError(t, err)

	monitor := &recordingMonitor{}
	results, err := retriever.SearchWithMonitor(context.Background(), lexicalOnlyQuery("good worklife", "culture", 5), monitor)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.True(t, monitor.started)
	assert.Equal(t, 1, monitor.candidates)
	assert.Len(t, monitor.lexical, 1)
	assert.Len(t, monitor.finished, 1)
}

type recordingMonitor struct {
	started    bool
	candidates int
	lexical    map[core.ID]float64
	finished   core.RetrievalResult
}

var _ SearchMonitor = (*recordingMonitor)(nil)

func (m *recordingMonitor) Start(_ core.RetrievalQuery)        { m.started = true }
func (m *recordingMonitor) AfterFilter(ids []core.ID)          { m.candidates = len(ids) }
func (m *recordingMonitor) AfterLexicalScoring(s map[core.ID]float64) {
	m.lexical = s
}
func (m *recordingMonitor) AfterSemanticScoring(_ map[core.ID]float64) {}
func (m *recordingMonitor) AfterCombine(_ core.RetrievalResult)        {}
func (m *recordingMonitor) AfterRerank(_ int)                          {}
func (m *recordingMonitor) Finish(results core.RetrievalResult)        { m.finished = results }
