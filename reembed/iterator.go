package reembed

import (
	"context"

	"github.com/blindsight-ai/blindsight/core"
	"github.com/blindsight-ai/blindsight/storage"
)

// DefaultBatchSize is the default number of documents per batch.
const DefaultBatchSize = 100

// DocumentIterator walks stored documents in batches, optionally
// restricted by exact-match metadata filters.
type DocumentIterator struct {
	documents storage.DocumentRepository
	filters   map[string]string
	batchSize int
}

// NewDocumentIterator creates a new document iterator. Nil or empty
// filters select every document.
func NewDocumentIterator(documents storage.DocumentRepository, filters map[string]string, batchSize int) *DocumentIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &DocumentIterator{
		documents: documents,
		filters:   filters,
		batchSize: batchSize,
	}
}

// Count returns the number of documents the iterator will visit.
func (it *DocumentIterator) Count(ctx context.Context) (int, error) {
	docs, err := it.documents.ListByMetadata(ctx, it.filters)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

// ForEach calls fn for each batch of documents, in ID order. Iteration
// stops on the first error from fn; context cancellation is checked
// between batches.
func (it *DocumentIterator) ForEach(ctx context.Context, fn func([]*core.Document) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	docs, err := it.documents.ListByMetadata(ctx, it.filters)
	if err != nil {
		return err
	}

	for start := 0; start < len(docs); start += it.batchSize {
		end := min(start+it.batchSize, len(docs))

		if err := fn(docs[start:end]); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}
