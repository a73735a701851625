package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/blindsight-ai/blindsight/ai"
	"github.com/blindsight-ai/blindsight/core"
	"github.com/blindsight-ai/blindsight/retrieval"
	"github.com/blindsight-ai/blindsight/storage"
)

// validationStage labels run-level validation failures in the error list.
const validationStage core.StageName = "validation"

// AnalysisRequest describes one company analysis run.
type AnalysisRequest struct {
	// Company is the target entity. Required.
	Company string

	// Query is the user's question. Required.
	Query string

	// UserContext is optional free-form context carried into generation.
	UserContext string

	// Stages optionally restricts the run to a subset of the configured
	// stages. Empty means all of them.
	Stages []core.StageName
}

// OrchestrationEngine owns the execution state of analysis runs and
// schedules stage tasks over the declared stage graph, sequentially or
// as a fan-out with a barrier, with partial-failure tolerance.
type OrchestrationEngine struct {
	config      *EngineConfig
	tasks       map[core.StageName]AnalysisTask
	synthesizer *Synthesizer
	pool        *ants.Pool
	logger      *slog.Logger
}

// Option configures an OrchestrationEngine.
type Option func(*OrchestrationEngine) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *OrchestrationEngine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// WithTask replaces the default task for its stage. The stage must be
// part of the closed stage set.
func WithTask(task AnalysisTask) Option {
	return func(e *OrchestrationEngine) error {
		if !core.IsKnownStage(task.Stage()) {
			return fmt.Errorf("%w: %q", core.ErrUnknownStage, task.Stage())
		}
		e.tasks[task.Stage()] = task
		return nil
	}
}

// NewEngine creates an orchestration engine. Each non-skipped stage gets
// a default task wired to the retriever and the provider's generator;
// WithTask overrides individual stages.
func NewEngine(
	config *EngineConfig,
	documents storage.DocumentRepository,
	retriever *retrieval.HybridRetriever,
	provider ai.AIProvider,
	opts ...Option,
) (*OrchestrationEngine, error) {
	if config == nil {
		return nil, ErrConfigRequired
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	e := &OrchestrationEngine{
		config: config,
		tasks:  make(map[core.StageName]AnalysisTask),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	skipped := make(map[core.StageName]bool, len(config.SkipStages))
	for _, stage := range config.SkipStages {
		skipped[stage] = true
	}
	for _, stage := range declaredOrder() {
		if skipped[stage] {
			continue
		}
		if _, overridden := e.tasks[stage]; overridden {
			continue
		}
		e.tasks[stage] = newStageTask(stage, retriever, documents, provider.Generator(), config, e.logger)
	}
	if len(e.tasks) == 0 {
		return nil, ErrNoStages
	}

	e.synthesizer = NewSynthesizer(provider.Generator(), e.logger)

	if config.Mode == ModeParallel {
		pool, err := ants.NewPool(config.PoolSize)
		if err != nil {
			return nil, err
		}
		e.pool = pool
	}

	return e, nil
}

// Release releases the engine's worker pool. The engine should not be
// used after calling Release.
func (e *OrchestrationEngine) Release() {
	if e.pool != nil {
		e.pool.Release()
	}
}

// Analyze runs the full stage graph for the request and returns the
// final report. Stage-level failures never fail the run by themselves;
// only request validation, an exceeded run budget, or every stage
// failing produce a Failed report. The returned error is reserved for
// engine-level faults, not analysis outcomes.
func (e *OrchestrationEngine) Analyze(ctx context.Context, req AnalysisRequest) (*core.FinalReport, error) {
	requestID := uuid.NewString()
	logger := e.logger.With("requestID", requestID, "company", req.Company)

	plan, validationErr := e.planStages(req)
	if validationErr != nil {
		logger.Error("request validation failed", "err", validationErr)
		now := time.Now().UTC()
		return &core.FinalReport{
			RequestID: requestID,
			Company:   req.Company,
			Status:    core.RunFailed,
			Errors: []core.StageError{{
				Stage:       validationStage,
				Kind:        core.ErrorKindValidation,
				Message:     validationErr.Error(),
				Recoverable: false,
			}},
			Progress:       1.0,
			PerStageTiming: map[core.StageName]time.Duration{},
			StartedAt:      now,
			CompletedAt:    now,
		}, nil
	}

	state := newExecutionState(requestID, req.Company, req.Query, req.UserContext, len(plan))

	runCtx, cancel := context.WithTimeout(ctx, e.config.RunTimeout)
	defer cancel()

	logger.Info("starting analysis run", "mode", e.config.Mode.String(), "stages", len(plan))

	if e.config.Mode == ModeParallel {
		e.runParallel(runCtx, plan, state)
	} else {
		e.runSequential(runCtx, plan, state)
	}

	// An exhausted run budget fails the whole run: every unfinished
	// stage gets a timeout error and completed results are withheld.
	budgetExceeded := runCtx.Err() != nil
	if budgetExceeded {
		for _, stage := range plan {
			if state.IsCompleted(stage) {
				continue
			}
			commitErr := state.CommitError(stage, core.StageError{
				Stage:       stage,
				Kind:        core.ErrorKindTimeout,
				Message:     "run budget exceeded",
				Recoverable: false,
			}, 0)
			if commitErr != nil {
				logger.Error("error committing budget timeout", "stage", stage, "err", commitErr)
			}
		}
	}

	results := state.Results()
	errs := state.Errors()

	var status core.RunStatus
	switch {
	case budgetExceeded, len(results) == 0:
		status = core.RunFailed
	case len(errs) == 0:
		status = core.RunSuccess
	default:
		status = core.RunPartialSuccess
	}

	var overall *float64
	var narrative string
	if status != core.RunFailed {
		// Synthesis runs over whatever subset of results exists, down to
		// a singleton. With no results at all it is never invoked.
		overall, narrative = e.synthesizer.Synthesize(runCtx, req.Company, req.Query, results)
	} else {
		results = nil
	}

	state.finish()

	report := &core.FinalReport{
		RequestID:      requestID,
		Company:        req.Company,
		Status:         status,
		OverallScore:   overall,
		Narrative:      narrative,
		Results:        results,
		Errors:         errs,
		Progress:       state.Progress(),
		PerStageTiming: state.Timing(),
		StartedAt:      state.StartedAt(),
		CompletedAt:    time.Now().UTC(),
	}

	logger.Info("analysis run finished", "status", status.String(),
		"results", len(report.Results), "errors", len(report.Errors))
	return report, nil
}

// planStages validates the request and resolves the ordered stage list.
func (e *OrchestrationEngine) planStages(req AnalysisRequest) ([]core.StageName, error) {
	if req.Company == "" {
		return nil, fmt.Errorf("company is required")
	}
	if req.Query == "" {
		return nil, fmt.Errorf("%w", core.ErrEmptyQueryText)
	}

	requested := make(map[core.StageName]bool, len(req.Stages))
	for _, stage := range req.Stages {
		if !core.IsKnownStage(stage) {
			return nil, fmt.Errorf("%w: %q", core.ErrUnknownStage, stage)
		}
		requested[stage] = true
	}

	var plan []core.StageName
	for _, stage := range declaredOrder() {
		if _, configured := e.tasks[stage]; !configured {
			continue
		}
		if len(requested) > 0 && !requested[stage] {
			continue
		}
		plan = append(plan, stage)
	}
	if len(plan) == 0 {
		return nil, ErrNoStages
	}
	return plan, nil
}

// runSequential executes stages one at a time in declared order. Each
// stage's writes are committed before the next stage begins.
func (e *OrchestrationEngine) runSequential(ctx context.Context, plan []core.StageName, state *ExecutionState) {
	for _, stage := range plan {
		if ctx.Err() != nil {
			return
		}
		e.runStage(ctx, e.tasks[stage], state)
	}
}

// runParallel fans the parallel group out over the worker pool, joins
// at the barrier, then runs post-barrier stages. Group members' writes
// are all committed before any dependent stage starts.
func (e *OrchestrationEngine) runParallel(ctx context.Context, plan []core.StageName, state *ExecutionState) {
	var group, dependents []core.StageName
	for _, stage := range plan {
		if dependsOnGroup(stage) {
			dependents = append(dependents, stage)
		} else {
			group = append(group, stage)
		}
	}

	var wg sync.WaitGroup
	for _, stage := range group {
		task := e.tasks[stage]
		wg.Add(1)
		job := func() {
			defer wg.Done()
			e.runStage(ctx, task, state)
		}
		if err := e.pool.Submit(job); err != nil {
			// Degrade to inline execution rather than dropping the stage
			e.logger.Warn("pool submit failed, running stage inline", "stage", stage, "err", err)
			job()
		}
	}
	wg.Wait()

	for _, stage := range dependents {
		if ctx.Err() != nil {
			return
		}
		e.runStage(ctx, e.tasks[stage], state)
	}
}

// runStage executes one task and commits its outcome. Panics become
// Unknown stage errors; a stage failure never aborts the run.
func (e *OrchestrationEngine) runStage(ctx context.Context, task AnalysisTask, state *ExecutionState) {
	stage := task.Stage()
	start := time.Now()

	result, stageErr := e.safeRun(ctx, task, state)
	elapsed := time.Since(start)

	if stageErr != nil {
		e.logger.Warn("stage completed with error", "stage", stage,
			"kind", stageErr.Kind.String(), "recoverable", stageErr.Recoverable)
		if err := state.CommitError(stage, *stageErr, elapsed); err != nil {
			e.logger.Error("error committing stage error", "stage", stage, "err", err)
		}
		return
	}

	if err := state.CommitResult(stage, *result, elapsed); err != nil {
		e.logger.Error("error committing stage result", "stage", stage, "err", err)
	}
}

func (e *OrchestrationEngine) safeRun(ctx context.Context, task AnalysisTask, state *ExecutionState) (result *core.AnalysisResult, stageErr *core.StageError) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			stageErr = &core.StageError{
				Stage:       task.Stage(),
				Kind:        core.ErrorKindUnknown,
				Message:     fmt.Sprintf("stage panicked: %v", r),
				Recoverable: true,
			}
		}
	}()
	return task.Run(ctx, state)
}
