package badger

import (
	"bytes"
	"context"
	"math"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/blindsight-ai/blindsight/core"
	"github.com/blindsight-ai/blindsight/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository on top of backend.
// Closing the repository closes the backend.
func NewDocumentRepository(backend *Backend) *DocumentRepository {
	return &DocumentRepository{backend: backend}
}

// Close closes the underlying backend.
func (r *DocumentRepository) Close() error {
	return r.backend.Close()
}

// WithTransaction delegates to the backend.
func (r *DocumentRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddDocuments adds one or more documents to storage.
// Documents with ID=0 get a content-based ID, so re-ingesting the same
// text overwrites the prior copy instead of duplicating it.
func (r *DocumentRepository) AddDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, doc := range docs {
			if doc.Id == 0 {
				doc.Id = core.IDFromContent(doc.Content)
			}
			if doc.IngestedAt.IsZero() {
				doc.IngestedAt = time.Now().UTC()
			}

			key := makeDocumentKey(doc.Id)

			// Drop a stale company index entry when an overwrite moves
			// the document to a different company.
			old, err := readDocument(tx, key)
			if err != nil {
				return err
			}
			if old != nil {
				// Embeddings are derived enrichment; a re-ingested copy
				// without a vector keeps the one already stored.
				if len(doc.Embedding) == 0 {
					doc.Embedding = old.Embedding
				}
				oldCompany := old.Metadata[core.MetaCompany]
				if oldCompany != "" && oldCompany != doc.Metadata[core.MetaCompany] {
					if err := tx.Delete(makeCompanyKey(oldCompany, doc.Id)); err != nil {
						return err
					}
				}
			}

			if err := tx.Set(key, storage.MarshalDocument(doc)); err != nil {
				return err
			}

			if company := doc.Metadata[core.MetaCompany]; company != "" {
				indexKey := makeCompanyKey(company, doc.Id)
				if err := tx.Set(indexKey, storage.MarshalID(doc.Id)); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	}, true)

	return docs, err
}

// GetDocument retrieves a single document by ID.
func (r *DocumentRepository) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	var result *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readDocument(tx, makeDocumentKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetDocuments retrieves multiple documents by their IDs.
func (r *DocumentRepository) GetDocuments(ctx context.Context, ids ...core.ID) ([]*core.Document, error) {
	var result []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			doc, err := readDocument(tx, makeDocumentKey(id))
			if err != nil {
				return err
			}
			if doc != nil {
				result = append(result, doc)
			}
		}
		return nil
	}, false)
	return result, err
}

// ListByMetadata retrieves all documents matching every filter pair,
// ordered by ID ascending. When a company filter is present the company
// index narrows the scan; otherwise all documents are visited.
func (r *DocumentRepository) ListByMetadata(ctx context.Context, filters map[string]string) ([]*core.Document, error) {
	var results []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		results, err = listByMetadata(tx, filters)
		return err
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b *core.Document) int {
		if a.Id < b.Id {
			return -1
		}
		if a.Id > b.Id {
			return 1
		}
		return 0
	})
	return results, nil
}

// FindSimilar scores documents matching filters by cosine similarity to the
// given vector. Documents without embeddings are skipped. Ties are broken by
// document ID ascending; limit <= 0 returns all matches.
func (r *DocumentRepository) FindSimilar(ctx context.Context, vector []float32, filters map[string]string, limit int) ([]core.SimilarityMatch, error) {
	var matches []core.SimilarityMatch
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		docs, err := listByMetadata(tx, filters)
		if err != nil {
			return err
		}
		for _, doc := range docs {
			if len(doc.Embedding) == 0 {
				continue
			}
			matches = append(matches, core.SimilarityMatch{
				DocumentID: doc.Id,
				Score:      cosineSimilarity(vector, doc.Embedding),
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(matches, func(a, b core.SimilarityMatch) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		if a.DocumentID < b.DocumentID {
			return -1
		}
		if a.DocumentID > b.DocumentID {
			return 1
		}
		return 0
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// DeleteDocuments removes documents by their IDs.
func (r *DocumentRepository) DeleteDocuments(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeDocumentKey(id)
			doc, err := readDocument(tx, key)
			if err != nil {
				return err
			}
			if doc == nil {
				return storage.ErrNotFound
			}

			if company := doc.Metadata[core.MetaCompany]; company != "" {
				if err := tx.Delete(makeCompanyKey(company, id)); err != nil {
					return err
				}
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// CountDocuments returns the number of stored documents.
func (r *DocumentRepository) CountDocuments(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(documentPrefix + ":")
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// Helpers

// readDocument reads a document from the transaction.
// Returns (nil, nil) if the key does not exist.
func readDocument(tx *badger.Txn, key []byte) (*core.Document, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var doc *core.Document
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		doc, unmarshalErr = storage.UnmarshalDocument(val)
		return unmarshalErr
	})
	return doc, err
}

// listByMetadata collects documents matching every filter pair within tx.
func listByMetadata(tx *badger.Txn, filters map[string]string) ([]*core.Document, error) {
	if company, ok := filters[core.MetaCompany]; ok && company != "" {
		return listByCompany(tx, company, filters)
	}
	return scanAll(tx, filters)
}

// listByCompany walks the company index and applies any remaining filters.
func listByCompany(tx *badger.Txn, company string, filters map[string]string) ([]*core.Document, error) {
	var results []*core.Document
	prefix := makePartialCompanyKey(company)

	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Seek(prefix); iter.Valid(); iter.Next() {
		var docID core.ID
		if err := iter.Item().Value(func(val []byte) error {
			var err error
			docID, err = storage.UnmarshalID(val)
			return err
		}); err != nil {
			return nil, err
		}

		doc, err := readDocument(tx, makeDocumentKey(docID))
		if err != nil {
			return nil, err
		}
		if doc != nil && metadataMatches(doc, filters) {
			results = append(results, doc)
		}
	}
	return results, nil
}

// scanAll visits every document record and applies filters.
func scanAll(tx *badger.Txn, filters map[string]string) ([]*core.Document, error) {
	var results []*core.Document
	prefix := []byte(documentPrefix + ":")

	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		item := iter.Item()
		if !bytes.HasPrefix(item.Key(), prefix) {
			continue
		}

		var doc *core.Document
		if err := item.Value(func(val []byte) error {
			var err error
			doc, err = storage.UnmarshalDocument(val)
			return err
		}); err != nil {
			return nil, err
		}
		if doc != nil && metadataMatches(doc, filters) {
			results = append(results, doc)
		}
	}
	return results, nil
}

// metadataMatches reports whether doc's metadata contains every filter pair.
func metadataMatches(doc *core.Document, filters map[string]string) bool {
	for k, v := range filters {
		if doc.Metadata[k] != v {
			return false
		}
	}
	return true
}

// cosineSimilarity calculates the cosine similarity of two vectors.
// Returns 0 when either vector has zero magnitude.
func cosineSimilarity(a, b []float32) float64 {
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < minLen; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	for _, v := range a {
		normA += float64(v) * float64(v)
	}
	for _, v := range b {
		normB += float64(v) * float64(v)
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
