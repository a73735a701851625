package workflow

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blindsight-ai/blindsight/ai"
	"github.com/blindsight-ai/blindsight/ai/mock"
	"github.com/blindsight-ai/blindsight/core"
	"github.com/blindsight-ai/blindsight/retrieval"
	"github.com/blindsight-ai/blindsight/storage"
	"github.com/blindsight-ai/blindsight/storage/badger"
)

// stubTask is a controllable AnalysisTask for engine scheduling tests.
type stubTask struct {
	stage core.StageName
	run   func(ctx context.Context, state *ExecutionState) (*core.AnalysisResult, *core.StageError)
}

func (s *stubTask) Stage() core.StageName { return s.stage }

func (s *stubTask) Run(ctx context.Context, state *ExecutionState) (*core.AnalysisResult, *core.StageError) {
	return s.run(ctx, state)
}

func successTask(stage core.StageName, score float64, confidence float64) *stubTask {
	return &stubTask{
		stage: stage,
		run: func(ctx context.Context, state *ExecutionState) (*core.AnalysisResult, *core.StageError) {
			return &core.AnalysisResult{
				Stage:      stage,
				Score:      &score,
				Confidence: confidence,
				Narrative:  string(stage) + " looks fine",
			}, nil
		},
	}
}

func failingTask(stage core.StageName, kind core.ErrorKind, recoverable bool) *stubTask {
	return &stubTask{
		stage: stage,
		run: func(ctx context.Context, state *ExecutionState) (*core.AnalysisResult, *core.StageError) {
			return nil, &core.StageError{
				Stage:       stage,
				Kind:        kind,
				Message:     "induced failure",
				Recoverable: recoverable,
			}
		},
	}
}

func newTestRepo(t *testing.T) storage.DocumentRepository {
	t.Helper()
	repo, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestEngine(t *testing.T, cfg *EngineConfig, provider ai.AIProvider, opts ...Option) *OrchestrationEngine {
	t.Helper()
	repo := newTestRepo(t)
	retriever, err := retrieval.NewHybridRetriever(repo, provider)
	require.NoError(t, err)
	engine, err := NewEngine(cfg, repo, retriever, provider, opts...)
	require.NoError(t, err)
	t.Cleanup(engine.Release)
	return engine
}

func analysisRequest() AnalysisRequest {
	return AnalysisRequest{
		Company: "acme",
		Query:   "what is it like to work there?",
	}
}

func TestNewEngine(t *testing.T) {
	repo := newTestRepo(t)
	provider := mock.NewMockProvider()
	retriever, err := retrieval.NewHybridRetriever(repo, provider)
	require.NoError(t, err)
	cfg := DefaultConfig()

	t.Run("valid configuration", func(t *testing.T) {
		engine, err := NewEngine(cfg, repo, retriever, provider)
		require.NoError(t, err)
		defer engine.Release()
		assert.NotNil(t, engine)
	})

	t.Run("nil config", func(t *testing.T) {
		_, err := NewEngine(nil, repo, retriever, provider)
		assert.Equal(t, ErrConfigRequired, err)
	})

	t.Run("invalid config", func(t *testing.T) {
		bad := DefaultConfig()
		bad.TopK = 0
		_, err := NewEngine(bad, repo, retriever, provider)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("nil repository", func(t *testing.T) {
		_, err := NewEngine(cfg, nil, retriever, provider)
		assert.Equal(t, ErrDocumentRepositoryRequired, err)
	})

	t.Run("nil retriever", func(t *testing.T) {
		_, err := NewEngine(cfg, repo, nil, provider)
		assert.Equal(t, ErrRetrieverRequired, err)
	})

	t.Run("nil provider", func(t *testing.T) {
		_, err := NewEngine(cfg, repo, retriever, nil)
		assert.Equal(t, ErrAIProviderRequired, err)
	})

	t.Run("all stages skipped", func(t *testing.T) {
		skipAll := DefaultConfig()
		skipAll.SkipStages = core.AllStages()
		_, err := NewEngine(skipAll, repo, retriever, provider)
		assert.Equal(t, ErrNoStages, err)
	})

	t.Run("task override for unknown stage", func(t *testing.T) {
		_, err := NewEngine(cfg, repo, retriever, provider,
			WithTask(successTask("quality", 50, 0.5)))
		assert.ErrorIs(t, err, core.ErrUnknownStage)
	})
}

func TestAnalyze_ValidationFailure(t *testing.T) {
	engine := newTestEngine(t, DefaultConfig(), mock.NewMockProvider())

	tests := []struct {
		name string
		req  AnalysisRequest
	}{
		{"empty company", AnalysisRequest{Query: "how is it?"}},
		{"empty query", AnalysisRequest{Company: "acme"}},
		{"unknown stage", AnalysisRequest{Company: "acme", Query: "how is it?", Stages: []core.StageName{"quality"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := engine.Analyze(context.Background(), tt.req)
			require.NoError(t, err)

			assert.Equal(t, core.RunFailed, report.Status)
			assert.Empty(t, report.Results)
			require.Len(t, report.Errors, 1)
			assert.Equal(t, core.ErrorKindValidation, report.Errors[0].Kind)
			assert.False(t, report.Errors[0].Recoverable)
			assert.Equal(t, 1.0, report.Progress)
		})
	}
}

func TestAnalyze_FullSuccess(t *testing.T) {
	for _, mode := range []ExecutionMode{ModeSequential, ModeParallel} {
		t.Run(mode.String(), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Mode = mode

			provider := mock.NewMockProvider()
			engine := newTestEngine(t, cfg, provider)

			report, err := engine.Analyze(context.Background(), analysisRequest())
			require.NoError(t, err)

			assert.Equal(t, core.RunSuccess, report.Status)
			assert.Len(t, report.Results, len(core.AllStages()))
			assert.Empty(t, report.Errors)
			assert.Equal(t, 1.0, report.Progress)
			assert.Len(t, report.PerStageTiming, len(core.AllStages()))
			assert.NotEmpty(t, report.RequestID)
			assert.False(t, report.Incomplete())
			for stage, result := range report.Results {
				assert.Equal(t, stage, result.Stage)
				assert.NotEmpty(t, result.Narrative)
			}
		})
	}
}

func TestAnalyze_SequentialParallelDeterminism(t *testing.T) {
	// Deterministic external services: the default mocks derive their
	// output purely from their inputs.
	provider := mock.NewMockProvider()

	seqCfg := DefaultConfig()
	seqCfg.Mode = ModeSequential
	seqEngine := newTestEngine(t, seqCfg, provider)

	parCfg := DefaultConfig()
	parCfg.Mode = ModeParallel
	parEngine := newTestEngine(t, parCfg, provider)

	seqReport, err := seqEngine.Analyze(context.Background(), analysisRequest())
	require.NoError(t, err)
	parReport, err := parEngine.Analyze(context.Background(), analysisRequest())
	require.NoError(t, err)

	require.Equal(t, core.RunSuccess, seqReport.Status)
	require.Equal(t, core.RunSuccess, parReport.Status)

	// Identical result maps apart from wall-clock fields
	diff := cmp.Diff(seqReport.Results, parReport.Results,
		cmpopts.IgnoreFields(core.AnalysisResult{}, "GeneratedAt"))
	assert.Empty(t, diff)
}

func TestAnalyze_PartialSuccess(t *testing.T) {
	// Two stages declared: one succeeds with score 80 at confidence 0.9,
	// one fails with a recoverable retrieval error.
	cfg := DefaultConfig()
	cfg.Mode = ModeSequential
	cfg.SkipStages = []core.StageName{core.StageManagement, core.StageSalaryBenefits, core.StageCareerGrowth}

	provider := mock.NewMockProvider()
	engine := newTestEngine(t, cfg, provider,
		WithTask(successTask(core.StageCompanyCulture, 80, 0.9)),
		WithTask(failingTask(core.StageWorkLifeBalance, core.ErrorKindRetrieval, true)),
	)

	report, err := engine.Analyze(context.Background(), analysisRequest())
	require.NoError(t, err)

	assert.Equal(t, core.RunPartialSuccess, report.Status)
	assert.True(t, report.Incomplete())
	require.Len(t, report.Results, 1)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, core.ErrorKindRetrieval, report.Errors[0].Kind)

	// Weighted mean over a single element is that element's score
	require.NotNil(t, report.OverallScore)
	assert.Equal(t, 80.0, *report.OverallScore)
	assert.Equal(t, 1.0, report.Progress)
}

func TestAnalyze_AllStagesFail(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = ModeParallel

	provider := mock.NewMockProvider()

	opts := make([]Option, 0, len(core.AllStages()))
	for _, stage := range core.AllStages() {
		opts = append(opts, WithTask(failingTask(stage, core.ErrorKindGeneration, true)))
	}
	engine := newTestEngine(t, cfg, provider, opts...)

	report, err := engine.Analyze(context.Background(), analysisRequest())
	require.NoError(t, err)

	assert.Equal(t, core.RunFailed, report.Status)
	assert.Empty(t, report.Results)
	assert.Len(t, report.Errors, len(core.AllStages()))
	assert.Nil(t, report.OverallScore)
	assert.Equal(t, 1.0, report.Progress)

	// The synthesizer is never invoked when every stage failed
	mockProvider := provider.(*mock.MockProvider)
	assert.Zero(t, mockProvider.GetMockGenerator().CallCount())
}

func TestAnalyze_ProgressMonotone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = ModeSequential

	var mu sync.Mutex
	var observed []float64

	opts := make([]Option, 0, len(core.AllStages()))
	for _, stage := range core.AllStages() {
		opts = append(opts, WithTask(&stubTask{
			stage: stage,
			run: func(ctx context.Context, state *ExecutionState) (*core.AnalysisResult, *core.StageError) {
				mu.Lock()
				observed = append(observed, state.Progress())
				mu.Unlock()
				score := 50.0
				return &core.AnalysisResult{Stage: stage, Score: &score, Confidence: 0.5, Narrative: "ok"}, nil
			},
		}))
	}

	engine := newTestEngine(t, cfg, mock.NewMockProvider(), opts...)
	report, err := engine.Analyze(context.Background(), analysisRequest())
	require.NoError(t, err)

	require.Len(t, observed, len(core.AllStages()))
	for i := 1; i < len(observed); i++ {
		assert.GreaterOrEqual(t, observed[i], observed[i-1])
	}
	assert.Equal(t, 1.0, report.Progress)
}

func TestAnalyze_RunBudgetExceeded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = ModeSequential
	cfg.RunTimeout = 10 * time.Millisecond
	cfg.SkipStages = []core.StageName{core.StageManagement, core.StageSalaryBenefits, core.StageCareerGrowth}

	slow := &stubTask{
		stage: core.StageCompanyCulture,
		run: func(ctx context.Context, state *ExecutionState) (*core.AnalysisResult, *core.StageError) {
			time.Sleep(50 * time.Millisecond)
			score := 90.0
			return &core.AnalysisResult{Stage: core.StageCompanyCulture, Score: &score, Confidence: 0.9, Narrative: "ok"}, nil
		},
	}

	provider := mock.NewMockProvider()
	engine := newTestEngine(t, cfg, provider,
		WithTask(slow),
		WithTask(successTask(core.StageWorkLifeBalance, 70, 0.8)),
	)

	report, err := engine.Analyze(context.Background(), analysisRequest())
	require.NoError(t, err)

	// The budget expired after the first stage: the run fails, the
	// unfinished stage gets a distinguished timeout error, and completed
	// analysis content is withheld.
	assert.Equal(t, core.RunFailed, report.Status)
	assert.Empty(t, report.Results)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, core.StageWorkLifeBalance, report.Errors[0].Stage)
	assert.Equal(t, core.ErrorKindTimeout, report.Errors[0].Kind)
	assert.False(t, report.Errors[0].Recoverable)
	assert.Equal(t, 1.0, report.Progress)
}

func TestAnalyze_StageTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = ModeParallel
	cfg.StageTimeout = 10 * time.Millisecond

	provider := mock.NewMockProvider()
	mockProvider := provider.(*mock.MockProvider)
	mockProvider.GetMockGenerator().GenerateFunc = func(ctx context.Context, prompt string, snippets []string) (string, error) {
		if strings.Contains(prompt, string(core.StageManagement)) || strings.Contains(prompt, "management quality") {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Second):
			}
		}
		return `{"score": 60, "confidence": 0.7, "narrative": "fine"}`, nil
	}

	engine := newTestEngine(t, cfg, provider)
	report, err := engine.Analyze(context.Background(), analysisRequest())
	require.NoError(t, err)

	// One stage timed out; the siblings were not cancelled
	assert.Equal(t, core.RunPartialSuccess, report.Status)
	assert.Len(t, report.Results, len(core.AllStages())-1)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, core.StageManagement, report.Errors[0].Stage)
	assert.Equal(t, core.ErrorKindTimeout, report.Errors[0].Kind)
	assert.True(t, report.Errors[0].Recoverable)
}

func TestAnalyze_UnparseableOutputIsUnrecoverable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = ModeSequential
	cfg.SkipStages = []core.StageName{core.StageWorkLifeBalance, core.StageManagement,
		core.StageSalaryBenefits, core.StageCareerGrowth}

	provider := mock.NewMockProvider()
	mockProvider := provider.(*mock.MockProvider)
	mockProvider.GetMockGenerator().GenerateFunc = func(ctx context.Context, prompt string, snippets []string) (string, error) {
		return "definitely not JSON", nil
	}

	engine := newTestEngine(t, cfg, provider)
	report, err := engine.Analyze(context.Background(), analysisRequest())
	require.NoError(t, err)

	assert.Equal(t, core.RunFailed, report.Status)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, core.ErrorKindGeneration, report.Errors[0].Kind)
	assert.False(t, report.Errors[0].Recoverable)
}

func TestAnalyze_PanicBecomesUnknownError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = ModeParallel

	panicking := &stubTask{
		stage: core.StageSalaryBenefits,
		run: func(ctx context.Context, state *ExecutionState) (*core.AnalysisResult, *core.StageError) {
			panic("boom")
		},
	}

	engine := newTestEngine(t, cfg, mock.NewMockProvider(), WithTask(panicking))
	report, err := engine.Analyze(context.Background(), analysisRequest())
	require.NoError(t, err)

	assert.Equal(t, core.RunPartialSuccess, report.Status)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, core.ErrorKindUnknown, report.Errors[0].Kind)
	assert.Len(t, report.Results, len(core.AllStages())-1)
}

func TestAnalyze_StageSubset(t *testing.T) {
	engine := newTestEngine(t, DefaultConfig(), mock.NewMockProvider())

	req := analysisRequest()
	req.Stages = []core.StageName{core.StageManagement}

	report, err := engine.Analyze(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, core.RunSuccess, report.Status)
	require.Len(t, report.Results, 1)
	assert.Contains(t, report.Results, core.StageManagement)
	assert.Equal(t, 1.0, report.Progress)
}

func TestAnalyze_SkipStages(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SkipStages = []core.StageName{core.StageCareerGrowth, core.StageSalaryBenefits}

	engine := newTestEngine(t, cfg, mock.NewMockProvider())
	report, err := engine.Analyze(context.Background(), analysisRequest())
	require.NoError(t, err)

	assert.Equal(t, core.RunSuccess, report.Status)
	assert.Len(t, report.Results, 3)
	assert.NotContains(t, report.Results, core.StageCareerGrowth)
	assert.Equal(t, 1.0, report.Progress)
}

func TestAnalyze_CareerStageSeesPriorFindings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = ModeParallel

	provider := mock.NewMockProvider()
	mockProvider := provider.(*mock.MockProvider)

	var mu sync.Mutex
	var careerSnippets []string
	mockProvider.GetMockGenerator().GenerateFunc = func(ctx context.Context, prompt string, snippets []string) (string, error) {
		if strings.Contains(prompt, "career growth") {
			mu.Lock()
			careerSnippets = append([]string(nil), snippets...)
			mu.Unlock()
		}
		return `{"score": 55, "confidence": 0.6, "narrative": "steady"}`, nil
	}

	engine := newTestEngine(t, cfg, provider)
	report, err := engine.Analyze(context.Background(), analysisRequest())
	require.NoError(t, err)
	require.Equal(t, core.RunSuccess, report.Status)

	// The post-barrier stage ran with all four group findings committed
	joined := strings.Join(careerSnippets, "\n")
	for _, stage := range parallelGroup {
		assert.Contains(t, joined, string(stage)+" finding:")
	}
}
