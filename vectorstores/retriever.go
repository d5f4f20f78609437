package vectorstores

import (
	"context"
	"fmt"

	"github.com/Seif-aber/pdf-chat-assistant/embeddings"
	"github.com/Seif-aber/pdf-chat-assistant/schema"
)

// retrieverImpl implements the schema.Retriever interface on top of an
// embedder and a vector store.
type retrieverImpl struct {
	store    VectorStore
	embedder embeddings.Embedder
	numDocs  int
}

// GetRelevantDocuments embeds the query and returns the top-ranked chunks
// as documents.
func (r retrieverImpl) GetRelevantDocuments(ctx context.Context, query string) ([]schema.Document, error) {
	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := r.store.Search(ctx, vector, r.numDocs)
	if err != nil {
		return nil, err
	}

	docs := make([]schema.Document, len(results))
	for i, res := range results {
		docs[i] = schema.NewDocument(res.Chunk.Text, map[string]any{
			"chunk_index": res.Chunk.Index,
			"score":       res.Score,
		})
	}
	return docs, nil
}

// ToRetriever creates a retriever from a vector store and an embedder.
func ToRetriever(store VectorStore, embedder embeddings.Embedder, numDocs int) schema.Retriever {
	return retrieverImpl{
		store:    store,
		embedder: embedder,
		numDocs:  numDocs,
	}
}
