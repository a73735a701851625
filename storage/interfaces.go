package storage

import (
	"context"

	"github.com/blindsight-ai/blindsight/core"
)

// DocumentRepository provides operations for managing review documents.
// Implementations must be thread-safe and support concurrent access.
type DocumentRepository interface {
	// AddDocuments adds one or more documents to storage.
	// For documents with ID=0, derives a content-based ID from the document text.
	// Sets IngestedAt if not already set. Documents with an existing ID are
	// overwritten, so re-ingesting the same content is idempotent.
	// Returns the documents with IDs and timestamps populated.
	AddDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error)

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// GetDocuments retrieves multiple documents by their IDs.
	// Returns only the documents that exist (no error for missing documents).
	GetDocuments(ctx context.Context, ids ...core.ID) ([]*core.Document, error)

	// ListByMetadata retrieves all documents whose metadata contains every
	// key/value pair in filters. An empty or nil filters map matches all
	// documents. Results are ordered by document ID ascending.
	ListByMetadata(ctx context.Context, filters map[string]string) ([]*core.Document, error)

	// FindSimilar scores documents matching filters by cosine similarity to
	// the given vector. Documents without embeddings are skipped. Results are
	// ordered by similarity descending; limit <= 0 returns all matches.
	FindSimilar(ctx context.Context, vector []float32, filters map[string]string, limit int) ([]core.SimilarityMatch, error)

	// DeleteDocuments removes documents by their IDs.
	// Returns ErrNotFound if any document doesn't exist.
	DeleteDocuments(ctx context.Context, ids ...core.ID) error

	// CountDocuments returns the number of stored documents.
	CountDocuments(ctx context.Context) (int, error)

	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}
