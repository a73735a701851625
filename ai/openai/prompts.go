package openai

import (
	"fmt"
	"strings"
)

const analysisResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "score": {
      "type": ["number", "null"],
      "minimum": 0,
      "maximum": 100
    },
    "confidence": {
      "type": "number",
      "minimum": 0,
      "maximum": 1
    },
    "narrative": {
      "type": "string"
    }
  },
  "required": ["score", "confidence", "narrative"],
  "additionalProperties": false
}`

var analysisSystemPrompt = fmt.Sprintf(`You are an analyst that evaluates employee reviews of a company.

Using ONLY the review excerpts supplied with the request, answer the analysis
question with a JSON object. Output ONLY valid JSON which complies with the
schema given below. Do not include any preamble, explanation, greeting, or
acknowledgment. Start your response directly with the opening brace { and end
with the closing brace }. Your output must exactly follow this schema:

%s

Rules:
- "score" rates the company for the asked dimension from 0 (worst) to 100 (best);
  use null when the excerpts carry no signal at all.
- "confidence" reflects how well the excerpts support the narrative, from 0 to 1.
- "narrative" is a short factual summary grounded in the excerpts.`, analysisResponseSchema)

const rerankResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "scores": {
      "type": "array",
      "items": {
        "type": "number",
        "minimum": 0,
        "maximum": 1
      }
    }
  },
  "required": ["scores"],
  "additionalProperties": false
}`

var rerankSystemPrompt = fmt.Sprintf(`You judge how relevant text passages are to a search query.

For each numbered passage in the request, produce one relevance score from 0
(irrelevant) to 1 (highly relevant). Output ONLY valid JSON which complies with
the schema given below, with exactly one score per passage, in passage order.
Do not include any preamble or explanation. Your output must exactly follow
this schema:

%s`, rerankResponseSchema)

// buildUserPrompt assembles the user message from the analysis question and
// the retrieved review excerpts.
func buildUserPrompt(prompt string, contextSnippets []string) string {
	var b strings.Builder
	b.WriteString(prompt)
	if len(contextSnippets) == 0 {
		b.WriteString("\n\nNo review excerpts were retrieved for this question.")
		return b.String()
	}
	b.WriteString("\n\nReview excerpts:\n")
	for i, snippet := range contextSnippets {
		fmt.Fprintf(&b, "%d. %s\n", i+1, snippet)
	}
	return b.String()
}

// buildRerankPrompt assembles the user message for a rerank request.
func buildRerankPrompt(query string, passages []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\nPassages:\n", query)
	for i, passage := range passages {
		fmt.Fprintf(&b, "%d. %s\n", i+1, passage)
	}
	return b.String()
}
