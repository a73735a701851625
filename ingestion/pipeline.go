package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/blindsight-ai/blindsight/ai"
	"github.com/blindsight-ai/blindsight/core"
	"github.com/blindsight-ai/blindsight/storage"
)

// defaultBatchSize is the number of documents embedded per pool job.
const defaultBatchSize = 32

// Pipeline converts scraper feed records into stored documents and
// embeds them concurrently. Storage writes are synchronous; embedding
// runs asynchronously on a worker pool so a slow embedding service
// never blocks the feed.
type Pipeline struct {
	documents     storage.DocumentRepository
	embeddingPool *ants.Pool
	embeddingProc *embeddingProcessor
	batchSize     int
	inflight      sync.WaitGroup
	logger        *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.embeddingPool != nil {
			p.embeddingPool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.embeddingPool = pool
		return nil
	}
}

// WithBatchSize sets the number of documents embedded per pool job.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("batch size must be positive, got %d", size)
		}
		p.batchSize = size
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(documents storage.DocumentRepository, provider ai.AIProvider, opts ...Option) (*Pipeline, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		documents:     documents,
		embeddingPool: pool,
		batchSize:     defaultBatchSize,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	proc, err := newEmbeddingProcessor(documents, provider.Embedder(), p.logger)
	if err != nil {
		p.Release()
		return nil, err
	}
	p.embeddingProc = proc

	return p, nil
}

// Ingest validates the feed records, upserts them as documents, and
// schedules embedding batches. It returns the number of documents
// stored. Embedding failures are logged and leave the affected
// documents without vectors; they never fail the ingestion.
func (p *Pipeline) Ingest(ctx context.Context, records ...*core.ReviewRecord) (int, error) {
	docs := make([]*core.Document, 0, len(records))
	for _, record := range records {
		if err := core.ValidateReviewRecord(record); err != nil {
			return 0, err
		}
		docs = append(docs, recordToDocument(record))
	}
	if len(docs) == 0 {
		return 0, nil
	}

	added, err := p.documents.AddDocuments(ctx, docs...)
	if err != nil {
		return 0, err
	}

	ids := make([]core.ID, len(added))
	for i, doc := range added {
		ids[i] = doc.Id
	}

	for start := 0; start < len(ids); start += p.batchSize {
		end := min(start+p.batchSize, len(ids))
		batch := ids[start:end]

		p.inflight.Add(1)
		job := func() {
			defer p.inflight.Done()
			if err := p.embeddingProc.process(context.Background(), batch...); err != nil {
				p.logger.Error("error processing embeddings", "err", err)
			}
		}
		if err := p.embeddingPool.Submit(job); err != nil {
			p.logger.Warn("pool submit failed, embedding inline", "err", err)
			job()
		}
	}

	p.logger.Info("ingested feed records", "documents", len(added))
	return len(added), nil
}

// Wait blocks until all scheduled embedding work has finished.
func (p *Pipeline) Wait() {
	p.inflight.Wait()
}

// Release waits for in-flight embedding work and releases the worker
// pool. The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	p.inflight.Wait()
	if p.embeddingPool != nil {
		p.embeddingPool.Release()
	}
}
