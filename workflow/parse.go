package workflow

import (
	"encoding/json"
	"fmt"

	"github.com/blindsight-ai/blindsight/ai"
)

// analysisOutput is the JSON shape every stage expects from the generator.
type analysisOutput struct {
	Score      *float64 `json:"score"`
	Confidence float64  `json:"confidence"`
	Narrative  string   `json:"narrative"`
}

// parseAnalysisOutput parses generator output into an analysisOutput.
// Markdown fences and common JSON defects are repaired before parsing;
// output that still fails to parse is unsalvageable. Out-of-range score
// and confidence values are clamped rather than rejected.
func parseAnalysisOutput(raw string) (*analysisOutput, error) {
	cleaned := ai.CleanJSONResponse(raw)

	var out analysisOutput
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedOutput, err)
	}
	if out.Narrative == "" {
		return nil, fmt.Errorf("%w: empty narrative", ErrMalformedOutput)
	}

	if out.Score != nil {
		clamped := clamp(*out.Score, 0, 100)
		out.Score = &clamped
	}
	out.Confidence = clamp(out.Confidence, 0, 1)

	return &out, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
