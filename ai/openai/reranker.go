package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/blindsight-ai/blindsight/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Reranker implements ai.Reranker by asking an OpenAI-compatible chat model
// to score each candidate passage against the query. This is the expensive
// cross-scorer pass, intended for shortlists only.
type Reranker struct {
	client llms.Model
	logger *slog.Logger
}

// rerankScores is the wrapper structure for the LLM's JSON response.
type rerankScores struct {
	Scores []float64 `json:"scores"`
}

// newReranker is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newReranker(config *ai.Config) (*Reranker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.GeneratorHost),
		openai.WithToken("none"),
		openai.WithModel(config.GeneratorModel),
	)
	if err != nil {
		return nil, err
	}

	return &Reranker{
		client: client,
		logger: slog.Default().With("component", "openai-reranker"),
	}, nil
}

// NewReranker creates a new reranker using the provided configuration.
//
// Returns ai.Reranker interface to enforce abstraction.
func NewReranker(config *ai.Config) (ai.Reranker, error) {
	return newReranker(config)
}

// Rerank scores candidates against the query. Results are returned in
// candidate order.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []ai.RerankCandidate) ([]ai.RerankResult, error) {
	if len(candidates) == 0 {
		return []ai.RerankResult{}, nil
	}

	passages := make([]string, len(candidates))
	for i, c := range candidates {
		passages[i] = c.Content
	}

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(rerankSystemPrompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(buildRerankPrompt(query, passages)),
			},
		},
	}

	// Try up to 3 times in case of malformed JSON
	var parsed rerankScores
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := r.client.GenerateContent(ctx, content,
			llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			r.logger.Error("failed to generate rerank scores", "attempt", attempt+1, "err", err)
			return nil, err
		}

		if len(response.Choices) < 1 {
			r.logger.Debug("no choices returned from model")
			return nil, fmt.Errorf("reranker returned no choices")
		}

		responseText := ai.CleanJSONResponse(response.Choices[0].Content)
		if err := json.Unmarshal([]byte(responseText), &parsed); err != nil {
			lastErr = err
			r.logger.Warn("error parsing rerank response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		lastErr = nil
		break
	}

	if lastErr != nil {
		r.logger.Error("failed to parse rerank response after retries", "err", lastErr)
		return nil, lastErr
	}

	if len(parsed.Scores) != len(candidates) {
		return nil, fmt.Errorf("rerank score count mismatch: expected %d, received %d",
			len(candidates), len(parsed.Scores))
	}

	results := make([]ai.RerankResult, len(candidates))
	for i, c := range candidates {
		score := parsed.Scores[i]
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		results[i] = ai.RerankResult{ID: c.ID, Score: score}
	}

	return results, nil
}
