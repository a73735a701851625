package retrieval

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/blindsight-ai/blindsight/ai"
)

// embedCache memoizes query embeddings. Concurrent requests for the same
// text share a single upstream call, so a stage fan-out never embeds the
// same query twice.
type embedCache struct {
	embedder ai.Embedder
	group    singleflight.Group

	mu    sync.RWMutex
	cache map[string][]float32
}

var _ ai.Embedder = (*embedCache)(nil)

func newEmbedCache(embedder ai.Embedder) *embedCache {
	return &embedCache{
		embedder: embedder,
		cache:    make(map[string][]float32),
	}
}

// EmbedText returns the cached embedding for text, computing it at most
// once across concurrent callers.
func (c *embedCache) EmbedText(ctx context.Context, text string) ([]float32, error) {
	c.mu.RLock()
	vec, ok := c.cache[text]
	c.mu.RUnlock()
	if ok {
		return vec, nil
	}

	result, err, _ := c.group.Do(text, func() (any, error) {
		computed, embedErr := c.embedder.EmbedText(ctx, text)
		if embedErr != nil {
			return nil, embedErr
		}
		c.mu.Lock()
		c.cache[text] = computed
		c.mu.Unlock()
		return computed, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]float32), nil
}

// EmbedTexts embeds each text through the cache.
func (c *embedCache) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := c.EmbedText(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}
