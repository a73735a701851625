package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/blindsight-ai/blindsight/ai"
	"github.com/blindsight-ai/blindsight/core"
	"github.com/blindsight-ai/blindsight/retrieval"
	"github.com/blindsight-ai/blindsight/storage"
)

// AnalysisTask is one unit of analysis work within an orchestration run.
// Run returns either a result or a stage error, never both. All failures
// are converted to a StageError before returning; a task never aborts
// the run.
type AnalysisTask interface {
	// Stage identifies the task's stage within the closed stage set.
	Stage() core.StageName

	// Run retrieves the stage's context documents and generates the
	// stage's analysis. It reads only the immutable request fields of
	// state, plus committed prior results for post-barrier stages.
	Run(ctx context.Context, state *ExecutionState) (*core.AnalysisResult, *core.StageError)
}

// stageTask is the AnalysisTask implementation for review-domain stages.
type stageTask struct {
	stage     core.StageName
	retriever *retrieval.HybridRetriever
	documents storage.DocumentRepository
	generator ai.Generator
	config    *EngineConfig

	// usePriorResults folds the committed findings of earlier stages into
	// the generation context. Only set for post-barrier stages.
	usePriorResults bool

	logger *slog.Logger
}

var _ AnalysisTask = (*stageTask)(nil)

func newStageTask(
	stage core.StageName,
	retriever *retrieval.HybridRetriever,
	documents storage.DocumentRepository,
	generator ai.Generator,
	config *EngineConfig,
	logger *slog.Logger,
) *stageTask {
	return &stageTask{
		stage:           stage,
		retriever:       retriever,
		documents:       documents,
		generator:       generator,
		config:          config,
		usePriorResults: dependsOnGroup(stage),
		logger:          logger.With("stage", string(stage)),
	}
}

// Stage identifies the task's stage.
func (t *stageTask) Stage() core.StageName {
	return t.stage
}

// Run executes the stage: hybrid retrieval scoped to the stage's domain
// category, then a bounded generation call, then output parsing.
func (t *stageTask) Run(ctx context.Context, state *ExecutionState) (*core.AnalysisResult, *core.StageError) {
	query := core.RetrievalQuery{
		Text: state.InputQuery,
		Filters: map[string]string{
			core.MetaCompany:  state.Company,
			core.MetaCategory: string(t.stage),
		},
		TopK:           t.config.TopK,
		Weights:        t.config.Weights,
		ScoreThreshold: t.config.ScoreThreshold,
	}

	retrieved, err := t.retriever.Search(ctx, query)
	if err != nil {
		t.logger.Warn("stage retrieval failed", "err", err)
		return nil, &core.StageError{
			Stage:       t.stage,
			Kind:        core.ErrorKindRetrieval,
			Message:     err.Error(),
			Recoverable: true,
		}
	}

	docIDs := retrieved.DocumentIDs()
	docs, err := t.documents.GetDocuments(ctx, docIDs...)
	if err != nil {
		t.logger.Warn("stage document fetch failed", "err", err)
		return nil, &core.StageError{
			Stage:       t.stage,
			Kind:        core.ErrorKindRetrieval,
			Message:     err.Error(),
			Recoverable: true,
		}
	}

	snippets := make([]string, 0, len(docs)+1)
	for _, doc := range docs {
		snippets = append(snippets, doc.Content)
	}
	if t.usePriorResults {
		snippets = append(snippets, priorFindings(state)...)
	}

	genCtx, cancel := context.WithTimeout(ctx, t.config.StageTimeout)
	defer cancel()

	raw, err := t.generator.Generate(genCtx, buildStagePrompt(t.stage, state), snippets)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			t.logger.Warn("stage generation timed out")
			return nil, &core.StageError{
				Stage:       t.stage,
				Kind:        core.ErrorKindTimeout,
				Message:     "generation exceeded stage timeout",
				Recoverable: true,
			}
		}
		t.logger.Warn("stage generation failed", "err", err)
		return nil, &core.StageError{
			Stage:       t.stage,
			Kind:        core.ErrorKindGeneration,
			Message:     err.Error(),
			Recoverable: true,
		}
	}

	out, err := parseAnalysisOutput(raw)
	if err != nil {
		t.logger.Warn("stage output unparseable", "err", err)
		return nil, &core.StageError{
			Stage:       t.stage,
			Kind:        core.ErrorKindGeneration,
			Message:     err.Error(),
			Recoverable: false,
		}
	}

	return &core.AnalysisResult{
		Stage:                 t.stage,
		Score:                 out.Score,
		Confidence:            out.Confidence,
		Narrative:             out.Narrative,
		SupportingDocumentIDs: docIDs,
		GeneratedAt:           time.Now().UTC(),
	}, nil
}

// priorFindings renders the committed results of earlier stages in a
// fixed order, so the generation context does not depend on scheduling.
func priorFindings(state *ExecutionState) []string {
	results := state.Results()
	stages := make([]core.StageName, 0, len(results))
	for stage := range results {
		stages = append(stages, stage)
	}
	slices.Sort(stages)

	findings := make([]string, 0, len(stages))
	for _, stage := range stages {
		findings = append(findings, fmt.Sprintf("%s finding: %s", stage, results[stage].Narrative))
	}
	return findings
}

func buildStagePrompt(stage core.StageName, state *ExecutionState) string {
	var sb strings.Builder
	sb.WriteString(stageInstructions[stage])
	fmt.Fprintf(&sb, "\n\nCompany: %s\nQuestion: %s", state.Company, state.InputQuery)
	if state.UserContext != "" {
		fmt.Fprintf(&sb, "\nAdditional context: %s", state.UserContext)
	}
	return sb.String()
}
