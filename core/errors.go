package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrEmptyContent indicates the Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidQuery indicates a RetrievalQuery failed validation.
	ErrInvalidQuery = errors.New("invalid retrieval query")

	// ErrEmptyQueryText indicates the query text is empty.
	ErrEmptyQueryText = errors.New("query text cannot be empty")

	// ErrInvalidWeights indicates lexical and semantic weights do not sum to 1.0.
	ErrInvalidWeights = errors.New("weights must sum to 1.0")

	// ErrInvalidTopK indicates a non-positive topK value.
	ErrInvalidTopK = errors.New("topK must be positive")

	// ErrInvalidReviewRecord indicates a scraper feed record failed validation.
	ErrInvalidReviewRecord = errors.New("invalid review record")

	// ErrUnknownStage indicates a stage name outside the closed stage set.
	ErrUnknownStage = errors.New("unknown analysis stage")

	// ErrRetrievalUnavailable indicates the retrieval engine could not serve
	// the query because its underlying scorers were unavailable.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
)
