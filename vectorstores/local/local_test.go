package local_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seif-aber/pdf-chat-assistant/schema"
	"github.com/Seif-aber/pdf-chat-assistant/vectorstores"
	"github.com/Seif-aber/pdf-chat-assistant/vectorstores/local"
)

func newStore(t *testing.T) *local.Store {
	t.Helper()
	store, err := local.New(t.TempDir())
	require.NoError(t, err)
	return store
}

func entryAt(index int, text string, vector []float32) vectorstores.Entry {
	return vectorstores.Entry{
		Chunk: schema.Chunk{
			Text:  text,
			Index: index,
			Start: index * 100,
			End:   index*100 + len(text),
		},
		Vector: vector,
	}
}

func TestStore_Search(t *testing.T) {
	ctx := context.Background()

	t.Run("search before insert fails", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Search(ctx, []float32{1, 0}, 3)
		assert.ErrorIs(t, err, vectorstores.ErrEmptyStore)
	})

	t.Run("results sorted by descending similarity", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.ReplaceAll(ctx, []vectorstores.Entry{
			entryAt(0, "weak match", []float32{0, 1}),
			entryAt(1, "exact match", []float32{1, 0}),
			entryAt(2, "partial match", []float32{1, 1}),
		}))

		results, err := store.Search(ctx, []float32{1, 0}, 3)
		require.NoError(t, err)
		require.Len(t, results, 3)

		assert.Equal(t, "exact match", results[0].Chunk.Text)
		assert.Equal(t, "partial match", results[1].Chunk.Text)
		assert.Equal(t, "weak match", results[2].Chunk.Text)
		assert.True(t, results[0].Score >= results[1].Score)
		assert.True(t, results[1].Score >= results[2].Score)
	})

	t.Run("ties break by chunk index", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.ReplaceAll(ctx, []vectorstores.Entry{
			entryAt(2, "third", []float32{1, 0}),
			entryAt(0, "first", []float32{1, 0}),
			entryAt(1, "second", []float32{1, 0}),
		}))

		results, err := store.Search(ctx, []float32{1, 0}, 3)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, "first", results[0].Chunk.Text)
		assert.Equal(t, "second", results[1].Chunk.Text)
		assert.Equal(t, "third", results[2].Chunk.Text)
	})

	t.Run("zero query vector falls back to index order", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.ReplaceAll(ctx, []vectorstores.Entry{
			entryAt(1, "b", []float32{0, 1}),
			entryAt(0, "a", []float32{1, 0}),
		}))

		results, err := store.Search(ctx, []float32{0, 0}, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "a", results[0].Chunk.Text)
		assert.Equal(t, "b", results[1].Chunk.Text)
		for _, res := range results {
			assert.Zero(t, res.Score)
		}
	})

	t.Run("k larger than store returns everything", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.ReplaceAll(ctx, []vectorstores.Entry{
			entryAt(0, "only", []float32{1, 0}),
		}))

		results, err := store.Search(ctx, []float32{1, 0}, 10)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("k limits result count", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.ReplaceAll(ctx, []vectorstores.Entry{
			entryAt(0, "a", []float32{1, 0}),
			entryAt(1, "b", []float32{0, 1}),
			entryAt(2, "c", []float32{1, 1}),
		}))

		results, err := store.Search(ctx, []float32{1, 0}, 2)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("invalid k", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Search(ctx, []float32{1, 0}, 0)
		assert.ErrorIs(t, err, vectorstores.ErrInvalidNumResults)
	})
}

func TestStore_ReplaceAll(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects empty entry set", func(t *testing.T) {
		store := newStore(t)
		assert.ErrorIs(t, store.ReplaceAll(ctx, nil), vectorstores.ErrNoEntries)
	})

	t.Run("replaces previous contents entirely", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.ReplaceAll(ctx, []vectorstores.Entry{
			entryAt(0, "old document", []float32{1, 0}),
			entryAt(1, "old document too", []float32{0, 1}),
		}))
		require.NoError(t, store.ReplaceAll(ctx, []vectorstores.Entry{
			entryAt(0, "new document", []float32{1, 0}),
		}))

		assert.Equal(t, 1, store.Len())
		results, err := store.Search(ctx, []float32{1, 0}, 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "new document", results[0].Chunk.Text)
	})
}

func TestStore_PersistRestore(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip reproduces entries exactly", func(t *testing.T) {
		dir := t.TempDir()
		store, err := local.New(dir)
		require.NoError(t, err)

		entries := []vectorstores.Entry{
			entryAt(0, "first chunk with ünïcode", []float32{0.1, -0.25, 0.999999}),
			entryAt(1, "second chunk", []float32{3.14159274, -2.7182817, 0}),
		}
		require.NoError(t, store.ReplaceAll(ctx, entries))
		require.NoError(t, store.Persist(ctx, "doc-abc123"))

		fresh, err := local.New(dir)
		require.NoError(t, err)

		ok, err := fresh.Restore(ctx, "doc-abc123")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, len(entries), fresh.Len())

		results, err := fresh.Search(ctx, entries[0].Vector, len(entries))
		require.NoError(t, err)
		require.Len(t, results, len(entries))
		assert.Equal(t, entries[0].Chunk, results[0].Chunk)
		assert.InDelta(t, 1.0, float64(results[0].Score), 1e-6)
	})

	t.Run("restore without snapshot reports false", func(t *testing.T) {
		store := newStore(t)
		ok, err := store.Restore(ctx, "never-persisted")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("persist before insert fails", func(t *testing.T) {
		store := newStore(t)
		assert.ErrorIs(t, store.Persist(ctx, "key"), vectorstores.ErrEmptyStore)
	})

	t.Run("empty key rejected", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.ReplaceAll(ctx, []vectorstores.Entry{
			entryAt(0, "x", []float32{1}),
		}))
		assert.ErrorIs(t, store.Persist(ctx, ""), local.ErrMissingKey)
		_, err := store.Restore(ctx, "")
		assert.ErrorIs(t, err, local.ErrMissingKey)
	})

	t.Run("keys with path characters are sanitized", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.ReplaceAll(ctx, []vectorstores.Entry{
			entryAt(0, "x", []float32{1}),
		}))
		require.NoError(t, store.Persist(ctx, "weird/key with spaces"))

		ok, err := store.Restore(ctx, "weird/key with spaces")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}
