package retrieval

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blindsight-ai/blindsight/ai/mock"
)

func TestEmbedCache_AtMostOncePerText(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	cache := newEmbedCache(embedder)

	ctx := context.Background()

	first, err := cache.EmbedText(ctx, "how is the culture")
	require.NoError(t, err)
	second, err := cache.EmbedText(ctx, "how is the culture")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, embedder.CallCount())
}

func TestEmbedCache_ConcurrentSameKey(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	cache := newEmbedCache(embedder)

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.EmbedText(ctx, "shared query text")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Concurrent callers for the same text share one upstream call.
	assert.Equal(t, 1, embedder.CallCount())
}

func TestEmbedCache_DistinctKeys(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	cache := newEmbedCache(embedder)

	ctx := context.Background()
	_, err := cache.EmbedText(ctx, "first query")
	require.NoError(t, err)
	_, err = cache.EmbedText(ctx, "second query")
	require.NoError(t, err)

	assert.Equal(t, 2, embedder.CallCount())
}

func TestEmbedCache_ErrorsNotCached(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	fail := true
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		if fail {
			return nil, assert.AnError
		}
		return []float32{1, 0}, nil
	}
	cache := newEmbedCache(embedder)

	ctx := context.Background()
	_, err := cache.EmbedText(ctx, "flaky query")
	require.Error(t, err)

	fail = false
	vec, err := cache.EmbedText(ctx, "flaky query")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vec)
}

func TestEmbedCache_EmbedTexts(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	cache := newEmbedCache(embedder)

	ctx := context.Background()
	vectors, err := cache.EmbedTexts(ctx, []string{"one", "two", "one"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, vectors[0], vectors[2])
}
