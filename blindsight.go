// Package blindsight assembles the review-analysis system: badger-backed
// document storage, hybrid retrieval, the ingestion pipeline, and the
// stage orchestration engine behind a single entry point.
package blindsight

import (
	"log/slog"

	"github.com/blindsight-ai/blindsight/ai"
	"github.com/blindsight-ai/blindsight/ai/openai"
	"github.com/blindsight-ai/blindsight/ingestion"
	"github.com/blindsight-ai/blindsight/retrieval"
	"github.com/blindsight-ai/blindsight/storage"
	"github.com/blindsight-ai/blindsight/storage/badger"
	"github.com/blindsight-ai/blindsight/workflow"
)

// System owns the storage backend, the AI provider, and the retriever,
// and hands out pipelines and engines wired to them.
type System struct {
	documents storage.DocumentRepository
	provider  ai.AIProvider
	retriever *retrieval.HybridRetriever
	config    *workflow.EngineConfig
	logger    *slog.Logger
}

// Option configures a System.
type Option func(*systemOptions)

type systemOptions struct {
	aiConfig     *ai.Config
	engineConfig *workflow.EngineConfig
	provider     ai.AIProvider
	inMemory     bool
	logger       *slog.Logger
}

// WithAIConfig sets the AI provider configuration.
// Default is ai.DefaultConfig().
func WithAIConfig(config *ai.Config) Option {
	return func(o *systemOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithEngineConfig sets the orchestration engine configuration.
// Default is workflow.DefaultConfig().
func WithEngineConfig(config *workflow.EngineConfig) Option {
	return func(o *systemOptions) {
		if config != nil {
			o.engineConfig = config
		}
	}
}

// WithProvider overrides the AI provider, bypassing the OpenAI client.
func WithProvider(provider ai.AIProvider) Option {
	return func(o *systemOptions) {
		o.provider = provider
	}
}

// WithInMemoryStorage keeps all documents in memory. The file path
// passed to Open is ignored.
func WithInMemoryStorage() Option {
	return func(o *systemOptions) {
		o.inMemory = true
	}
}

// WithSystemLogger sets a custom logger.
// Default is slog.Default().
func WithSystemLogger(logger *slog.Logger) Option {
	return func(o *systemOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Open opens the document store at filePath and wires the retrieval
// stack to it.
func Open(filePath string, opts ...Option) (*System, error) {
	options := &systemOptions{
		aiConfig:     ai.DefaultConfig(),
		engineConfig: workflow.DefaultConfig(),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if err := options.engineConfig.Validate(); err != nil {
		return nil, err
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}
	documents := badger.NewDocumentRepository(backend)

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			documents.Close()
			return nil, err
		}
	}

	retrieverOpts := []retrieval.Option{retrieval.WithLogger(options.logger)}
	if options.engineConfig.RerankEnabled {
		retrieverOpts = append(retrieverOpts,
			retrieval.WithReranker(provider.Reranker()),
			retrieval.WithRerankMultiplier(options.engineConfig.RerankMultiplier))
	}
	retriever, err := retrieval.NewHybridRetriever(documents, provider, retrieverOpts...)
	if err != nil {
		provider.Close()
		documents.Close()
		return nil, err
	}

	return &System{
		documents: documents,
		provider:  provider,
		retriever: retriever,
		config:    options.engineConfig,
		logger:    options.logger,
	}, nil
}

// Close releases the AI provider and the storage backend.
func (s *System) Close() error {
	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
	}
	if err := s.documents.Close(); err != nil {
		s.logger.Error("error closing document repository", "err", err)
		return err
	}
	return nil
}

// Documents exposes the underlying document repository.
func (s *System) Documents() storage.DocumentRepository {
	return s.documents
}

// Retriever exposes the hybrid retriever.
func (s *System) Retriever() *retrieval.HybridRetriever {
	return s.retriever
}

// NewIngestionPipeline creates an ingestion pipeline over the system's
// document store and embedder.
func (s *System) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	opts = append([]ingestion.Option{ingestion.WithLogger(s.logger)}, opts...)
	return ingestion.NewPipeline(s.documents, s.provider, opts...)
}

// NewEngine creates an orchestration engine over the system's retriever
// and provider using the configured engine settings.
func (s *System) NewEngine(opts ...workflow.Option) (*workflow.OrchestrationEngine, error) {
	opts = append([]workflow.Option{workflow.WithLogger(s.logger)}, opts...)
	return workflow.NewEngine(s.config, s.documents, s.retriever, s.provider, opts...)
}
