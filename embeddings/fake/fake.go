package fake

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/Seif-aber/pdf-chat-assistant/embeddings"
)

// Embedder is a deterministic in-process embedder for testing. The vector
// for a text depends only on the text and the configured dimension, so
// identical texts always embed identically.
type Embedder struct {
	mu sync.Mutex

	// Dim is the dimensionality of produced vectors. Defaults to 8.
	Dim int
	// FailOnCall makes the Nth call to EmbedDocuments (1-based) return
	// ErrServiceFailure. Zero disables it.
	FailOnCall int
	// RateLimitedCalls makes the first N calls to EmbedDocuments return
	// ErrRateLimited before succeeding.
	RateLimitedCalls int

	docCalls   int
	queryCalls int
}

var _ embeddings.Embedder = (*Embedder)(nil)

func New(dim int) *Embedder {
	if dim <= 0 {
		dim = 8
	}
	return &Embedder{Dim: dim}
}

func (e *Embedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.docCalls++
	if e.FailOnCall > 0 && e.docCalls == e.FailOnCall {
		return nil, embeddings.ErrServiceFailure
	}
	if e.docCalls <= e.RateLimitedCalls {
		return nil, embeddings.ErrRateLimited
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.vectorFor(text)
	}
	return vectors, nil
}

func (e *Embedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.queryCalls++
	return e.vectorFor(text), nil
}

func (e *Embedder) GetDimension(_ context.Context) (int, error) {
	return e.Dim, nil
}

// DocumentCalls reports how many times EmbedDocuments was invoked.
func (e *Embedder) DocumentCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.docCalls
}

// QueryCalls reports how many times EmbedQuery was invoked.
func (e *Embedder) QueryCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queryCalls
}

func (e *Embedder) vectorFor(text string) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	state := h.Sum64()

	vector := make([]float32, e.Dim)
	for i := range vector {
		state = state*6364136223846793005 + 1442695040888963407
		vector[i] = float32(state%1000)/1000.0 - 0.5
	}
	return vector
}
