package retrieval

import "strings"

// Stop words filtered out before term-overlap scoring
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true,
}

// tokenizeAndFilter splits text into words, lowercases, trims punctuation, and removes stop words
func tokenizeAndFilter(text string) []string {
	words := strings.Fields(text)
	filtered := make([]string, 0, len(words))

	for _, word := range words {
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}"))
		if cleaned != "" && !stopWords[cleaned] {
			filtered = append(filtered, cleaned)
		}
	}

	return filtered
}

// lexicalOverlap computes the term-overlap score of a document against the
// query tokens: the count of query tokens present in the document divided by
// the query token count. The result is always within [0, 1]. An empty query
// token list scores 0 for every document.
func lexicalOverlap(queryTokens []string, document string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}

	docTokens := tokenizeAndFilter(document)
	docSet := make(map[string]bool, len(docTokens))
	for _, tok := range docTokens {
		docSet[tok] = true
	}

	matched := 0
	for _, tok := range queryTokens {
		if docSet[tok] {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTokens))
}
