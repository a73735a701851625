package badger

import "github.com/blindsight-ai/blindsight/storage"

// NewMemoryRepository creates an in-memory document repository for testing.
// Caller must close the repository when done.
func NewMemoryRepository() (storage.DocumentRepository, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}
	return NewDocumentRepository(backend), nil
}
