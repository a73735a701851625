package core

import (
	"fmt"
	"math"
)

// weightTolerance is the allowed deviation when checking that retrieval
// weights sum to 1.0.
const weightTolerance = 1e-6

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - Content must not be empty
//
// NOT validated (populated elsewhere):
//   - Embedding (can be empty until the embedding processor runs)
//   - Metadata (optional; filters simply never match absent keys)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyContent)
	}

	return nil
}

// ValidateRetrievalQuery validates a RetrievalQuery according to domain rules.
//
// Validation rules:
//   - Text must not be empty
//   - TopK must be positive
//   - Weights.Lexical + Weights.Semantic must equal 1.0 within tolerance
func ValidateRetrievalQuery(query *RetrievalQuery) error {
	if query == nil {
		return fmt.Errorf("%w: query is nil", ErrInvalidQuery)
	}

	if query.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidQuery, ErrEmptyQueryText)
	}

	if query.TopK <= 0 {
		return fmt.Errorf("%w: %w (got %d)", ErrInvalidQuery, ErrInvalidTopK, query.TopK)
	}

	sum := query.Weights.Lexical + query.Weights.Semantic
	if math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("%w: %w (got %g)", ErrInvalidQuery, ErrInvalidWeights, sum)
	}

	return nil
}

// ValidateReviewRecord validates a scraper feed record before ingestion.
//
// Validation rules:
//   - Text must not be empty
//   - Company must not be empty
func ValidateReviewRecord(record *ReviewRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidReviewRecord)
	}

	if record.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidReviewRecord, ErrEmptyContent)
	}

	if record.Company == "" {
		return fmt.Errorf("%w: company cannot be empty", ErrInvalidReviewRecord)
	}

	return nil
}
