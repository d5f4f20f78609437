package vectorstores

import (
	"context"
	"errors"

	"github.com/Seif-aber/pdf-chat-assistant/schema"
)

var (
	// ErrEmptyStore is returned by Search before any ReplaceAll. Calling
	// order is a caller bug, distinct from a query with no good matches.
	ErrEmptyStore = errors.New("vector store holds no entries")

	ErrNoEntries         = errors.New("no entries to insert")
	ErrInvalidNumResults = errors.New("number of results must be positive")
)

// Entry pairs exactly one chunk with its embedding vector.
type Entry struct {
	Chunk  schema.Chunk `json:"chunk"`
	Vector []float32    `json:"vector"`
}

// SearchResult is a chunk together with its cosine similarity to the query.
type SearchResult struct {
	Chunk schema.Chunk
	Score float32
}

// VectorStore holds the chunk/vector pairs of the active document.
//
// ReplaceAll swaps the full entry set atomically; there is no incremental
// append across documents. Search ranks by descending cosine similarity
// with ties broken by ascending chunk index. Persist and Restore move the
// entry set to and from stable storage keyed by document identity;
// Restore reports (false, nil) when no state exists for the key.
type VectorStore interface {
	ReplaceAll(ctx context.Context, entries []Entry) error
	Search(ctx context.Context, query []float32, k int) ([]SearchResult, error)
	Persist(ctx context.Context, key string) error
	Restore(ctx context.Context, key string) (bool, error)
}
