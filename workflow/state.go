package workflow

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/blindsight-ai/blindsight/core"
)

// ExecutionState is the shared mutable state of one orchestration run.
// The engine owns it exclusively for the run's lifetime and hands it by
// reference to each stage task. Tasks read only the immutable request
// fields; all writes go through the commit methods, which serialize
// access and enforce at-most-once completion per stage.
type ExecutionState struct {
	// Immutable after validation.
	RequestID   string
	Company     string
	InputQuery  string
	UserContext string

	mu              sync.Mutex
	results         map[core.StageName]core.AnalysisResult
	errors          []core.StageError
	completedStages map[core.StageName]struct{}
	totalStages     int
	progress        float64
	startedAt       time.Time
	perStageTiming  map[core.StageName]time.Duration
}

func newExecutionState(requestID, company, query, userContext string, totalStages int) *ExecutionState {
	return &ExecutionState{
		RequestID:       requestID,
		Company:         company,
		InputQuery:      query,
		UserContext:     userContext,
		results:         make(map[core.StageName]core.AnalysisResult),
		completedStages: make(map[core.StageName]struct{}),
		totalStages:     totalStages,
		startedAt:       time.Now().UTC(),
		perStageTiming:  make(map[core.StageName]time.Duration),
	}
}

// CommitResult records a stage's successful result, marks the stage
// completed and advances progress. A stage commits at most once.
func (s *ExecutionState) CommitResult(stage core.StageName, result core.AnalysisResult, elapsed time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, done := s.completedStages[stage]; done {
		return fmt.Errorf("%w: %s", ErrStageAlreadyCompleted, stage)
	}
	s.results[stage] = result
	s.complete(stage, elapsed)
	return nil
}

// CommitError records a stage's failure. A failed stage still counts as
// completed for progress purposes.
func (s *ExecutionState) CommitError(stage core.StageName, stageErr core.StageError, elapsed time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, done := s.completedStages[stage]; done {
		return fmt.Errorf("%w: %s", ErrStageAlreadyCompleted, stage)
	}
	s.errors = append(s.errors, stageErr)
	s.complete(stage, elapsed)
	return nil
}

// complete must be called with the lock held.
func (s *ExecutionState) complete(stage core.StageName, elapsed time.Duration) {
	s.completedStages[stage] = struct{}{}
	s.perStageTiming[stage] = elapsed
	if s.totalStages > 0 {
		s.progress = float64(len(s.completedStages)) / float64(s.totalStages)
	}
}

// finish forces progress to 1.0 when the run reaches a terminal state.
// Progress is monotone: it only ever moves toward 1.0.
func (s *ExecutionState) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = 1.0
}

// Progress returns the current progress in [0.0, 1.0].
func (s *ExecutionState) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// Results returns a snapshot of the committed stage results.
func (s *ExecutionState) Results() map[core.StageName]core.AnalysisResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.results)
}

// Errors returns a snapshot of the accumulated stage errors, in
// completion order.
func (s *ExecutionState) Errors() []core.StageError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.errors)
}

// CompletedStages returns the set of completed stages as a sorted slice.
func (s *ExecutionState) CompletedStages() []core.StageName {
	s.mu.Lock()
	defer s.mu.Unlock()
	stages := make([]core.StageName, 0, len(s.completedStages))
	for stage := range s.completedStages {
		stages = append(stages, stage)
	}
	slices.Sort(stages)
	return stages
}

// IsCompleted reports whether the stage has committed a result or error.
func (s *ExecutionState) IsCompleted(stage core.StageName) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, done := s.completedStages[stage]
	return done
}

// Timing returns a snapshot of per-stage wall-clock durations.
func (s *ExecutionState) Timing() map[core.StageName]time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.perStageTiming)
}

// StartedAt returns the run's start time.
func (s *ExecutionState) StartedAt() time.Time {
	return s.startedAt
}
