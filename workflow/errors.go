package workflow

import "errors"

var (
	// ErrConfigRequired is returned when an engine config is not provided.
	ErrConfigRequired = errors.New("engine config required")

	// ErrDocumentRepositoryRequired is returned when a document repository is not provided.
	ErrDocumentRepositoryRequired = errors.New("document repository required")

	// ErrRetrieverRequired is returned when a hybrid retriever is not provided.
	ErrRetrieverRequired = errors.New("hybrid retriever required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrStageAlreadyCompleted indicates a second commit for a stage that
	// already holds a result or error.
	ErrStageAlreadyCompleted = errors.New("stage already completed")

	// ErrNoStages indicates the engine was constructed with every stage skipped.
	ErrNoStages = errors.New("no stages to execute")

	// ErrMalformedOutput indicates generator output that could not be parsed
	// into an analysis result.
	ErrMalformedOutput = errors.New("malformed generator output")

	// ErrUnknownMode indicates an unrecognized execution mode name.
	ErrUnknownMode = errors.New("unknown execution mode")

	// ErrInvalidConfig indicates an engine config that failed validation.
	ErrInvalidConfig = errors.New("invalid engine config")
)
