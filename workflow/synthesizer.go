package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/blindsight-ai/blindsight/ai"
	"github.com/blindsight-ai/blindsight/core"
)

// Synthesizer merges completed stage results into one cross-domain
// answer. It tolerates any non-empty subset of stages, including a
// singleton; the engine never calls it with an empty result map.
type Synthesizer struct {
	generator ai.Generator
	logger    *slog.Logger
}

// NewSynthesizer creates a synthesizer over the generation service.
func NewSynthesizer(generator ai.Generator, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{
		generator: generator,
		logger:    logger.With("component", "synthesizer"),
	}
}

// Synthesize produces the overall score and narrative from the committed
// stage results. The score is the confidence-weighted mean of available
// stage scores, ignoring stages without one. Synthesis never fails on
// non-empty input: a generation error falls back to a deterministic
// merge of the stage narratives.
func (s *Synthesizer) Synthesize(ctx context.Context, company, query string, results map[core.StageName]core.AnalysisResult) (*float64, string) {
	stages := make([]core.StageName, 0, len(results))
	for stage := range results {
		stages = append(stages, stage)
	}
	slices.Sort(stages)

	overall := aggregateScore(results)

	snippets := make([]string, 0, len(stages))
	for _, stage := range stages {
		r := results[stage]
		if r.Score != nil {
			snippets = append(snippets, fmt.Sprintf("%s (score %.0f, confidence %.2f): %s",
				stage, *r.Score, r.Confidence, r.Narrative))
		} else {
			snippets = append(snippets, fmt.Sprintf("%s (no score, confidence %.2f): %s",
				stage, r.Confidence, r.Narrative))
		}
	}

	prompt := fmt.Sprintf("Combine the per-area findings below into one overall "+
		"assessment of %s, answering: %s. Weigh each area by its stated confidence.",
		company, query)

	raw, err := s.generator.Generate(ctx, prompt, snippets)
	if err != nil {
		s.logger.Warn("synthesis generation failed, merging narratives directly", "err", err)
		return overall, mergeNarratives(stages, results)
	}

	out, parseErr := parseAnalysisOutput(raw)
	if parseErr != nil {
		s.logger.Warn("synthesis output unparseable, merging narratives directly", "err", parseErr)
		return overall, mergeNarratives(stages, results)
	}

	return overall, out.Narrative
}

// aggregateScore computes the confidence-weighted mean of stage scores.
// Stages with a nil score are skipped; returns nil when no stage scored.
func aggregateScore(results map[core.StageName]core.AnalysisResult) *float64 {
	var weightedSum, confidenceSum float64
	for _, r := range results {
		if r.Score == nil {
			continue
		}
		weight := r.Confidence
		if weight <= 0 {
			continue
		}
		weightedSum += weight * (*r.Score)
		confidenceSum += weight
	}
	if confidenceSum == 0 {
		return nil
	}
	score := weightedSum / confidenceSum
	return &score
}

// mergeNarratives is the deterministic fallback narrative: stage
// findings concatenated in stage-name order.
func mergeNarratives(stages []core.StageName, results map[core.StageName]core.AnalysisResult) string {
	var sb strings.Builder
	for i, stage := range stages {
		if i > 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "%s: %s", stage, results[stage].Narrative)
	}
	return sb.String()
}
