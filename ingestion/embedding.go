package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/blindsight-ai/blindsight/ai"
	"github.com/blindsight-ai/blindsight/core"
	"github.com/blindsight-ai/blindsight/storage"
)

// embeddingProcessor attaches embedding vectors to stored documents.
type embeddingProcessor struct {
	documents storage.DocumentRepository
	embedder  ai.Embedder
	logger    *slog.Logger
}

func newEmbeddingProcessor(documents storage.DocumentRepository, embedder ai.Embedder, logger *slog.Logger) (*embeddingProcessor, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &embeddingProcessor{
		documents: documents,
		embedder:  embedder,
		logger:    logger.With("processor", "embeddings"),
	}, nil
}

// process embeds the documents identified by the given IDs and writes
// the vectors back. Documents that already carry an embedding are left
// untouched, so repeated ingestion of the same feed does no extra
// embedding work.
func (ep *embeddingProcessor) process(ctx context.Context, ids ...core.ID) error {
	docs, err := ep.documents.GetDocuments(ctx, ids...)
	if err != nil {
		ep.logger.Error("error retrieving documents", "err", err)
		return err
	}

	pending := make([]*core.Document, 0, len(docs))
	for _, doc := range docs {
		if len(doc.Embedding) == 0 {
			pending = append(pending, doc)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	texts := make([]string, len(pending))
	for i, doc := range pending {
		texts[i] = doc.Content
	}

	ep.logger.Debug("generating embeddings", "documents", len(texts))
	embeddings, err := ep.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		ep.logger.Error("error generating embeddings", "err", err)
		return err
	}
	if len(embeddings) != len(pending) {
		return fmt.Errorf("embedding result mismatch. expected %d, received %d", len(pending), len(embeddings))
	}

	for i := range embeddings {
		pending[i].Embedding = embeddings[i]
	}

	_, err = ep.documents.AddDocuments(ctx, pending...)
	return err
}
