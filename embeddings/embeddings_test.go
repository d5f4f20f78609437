package embeddings_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seif-aber/pdf-chat-assistant/embeddings"
	"github.com/Seif-aber/pdf-chat-assistant/embeddings/fake"
)

// indexedEmbedder returns a vector encoding the text itself, so tests can
// verify that batched results come back in the original order.
type indexedEmbedder struct {
	mu      sync.Mutex
	batches int
	dim     int
}

func (e *indexedEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.batches++
	e.mu.Unlock()

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		var id int
		fmt.Sscanf(text, "text-%d", &id)
		v := make([]float32, e.dim)
		v[0] = float32(id)
		vectors[i] = v
	}
	return vectors, nil
}

func (e *indexedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *indexedEmbedder) GetDimension(_ context.Context) (int, error) {
	return e.dim, nil
}

func TestEmbedderImpl_EmbedDocuments(t *testing.T) {
	ctx := context.Background()

	t.Run("preserves order across batches", func(t *testing.T) {
		client := &indexedEmbedder{dim: 4}
		embedder, err := embeddings.NewEmbedder(client, embeddings.WithBatchSize(3))
		require.NoError(t, err)

		texts := make([]string, 20)
		for i := range texts {
			texts[i] = fmt.Sprintf("text-%d", i)
		}

		vectors, err := embedder.EmbedDocuments(ctx, texts)
		require.NoError(t, err)
		require.Len(t, vectors, len(texts))

		for i, v := range vectors {
			assert.Equal(t, float32(i), v[0], "vector %d out of order", i)
		}
		assert.Equal(t, 7, client.batches)
	})

	t.Run("empty input", func(t *testing.T) {
		embedder, err := embeddings.NewEmbedder(fake.New(8))
		require.NoError(t, err)

		vectors, err := embedder.EmbedDocuments(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, vectors)
	})

	t.Run("backend failure surfaces", func(t *testing.T) {
		client := fake.New(8)
		client.FailOnCall = 1

		embedder, err := embeddings.NewEmbedder(client)
		require.NoError(t, err)

		_, err = embedder.EmbedDocuments(ctx, []string{"a", "b"})
		assert.ErrorIs(t, err, embeddings.ErrServiceFailure)
	})

	t.Run("cannot wrap a wrapped embedder", func(t *testing.T) {
		inner, err := embeddings.NewEmbedder(fake.New(8))
		require.NoError(t, err)

		_, err = embeddings.NewEmbedder(inner)
		assert.Error(t, err)
	})
}

// mismatchEmbedder changes vector dimensionality between calls.
type mismatchEmbedder struct {
	calls int
}

func (e *mismatchEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	dim := 4
	if e.calls > 1 {
		dim = 6
	}
	vectors := make([][]float32, len(texts))
	for i := range vectors {
		vectors[i] = make([]float32, dim)
		vectors[i][0] = 1
	}
	return vectors, nil
}

func (e *mismatchEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedDocuments(ctx, []string{text})
	return vectors[0], err
}

func (e *mismatchEmbedder) GetDimension(_ context.Context) (int, error) {
	return 4, nil
}

func TestEmbedderImpl_DimensionGuard(t *testing.T) {
	ctx := context.Background()

	embedder, err := embeddings.NewEmbedder(&mismatchEmbedder{})
	require.NoError(t, err)

	_, err = embedder.EmbedDocuments(ctx, []string{"first"})
	require.NoError(t, err)

	_, err = embedder.EmbedQuery(ctx, "second")
	require.ErrorIs(t, err, embeddings.ErrServiceFailure)
	assert.Contains(t, err.Error(), "dimension")
}

func TestEmbedderImpl_EmbedQuery(t *testing.T) {
	ctx := context.Background()

	embedder, err := embeddings.NewEmbedder(fake.New(8))
	require.NoError(t, err)

	t.Run("rejects blank text", func(t *testing.T) {
		_, err := embedder.EmbedQuery(ctx, "   ")
		assert.ErrorIs(t, err, embeddings.ErrEmptyText)
	})

	t.Run("identical texts embed identically", func(t *testing.T) {
		a, err := embedder.EmbedQuery(ctx, "same text")
		require.NoError(t, err)
		b, err := embedder.EmbedQuery(ctx, "same text")
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})
}
