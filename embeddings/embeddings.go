package embeddings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrServiceFailure covers transport failures and malformed responses
	// from the external embedding service.
	ErrServiceFailure = errors.New("embedding service failure")

	// ErrRateLimited signals backoff-worthy throttling by the external
	// service. Retry policy is the caller's decision.
	ErrRateLimited = errors.New("embedding service rate limited")
)

// Embedder converts text into fixed-dimension vectors. Implementations
// delegate the numeric computation to an external service; their job is
// request shaping and error translation.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	GetDimension(ctx context.Context) (int, error)
}

// EmbedderImpl wraps a backend Embedder with batching, bounded concurrent
// batch dispatch and a per-session dimensionality guard. Batch results are
// recombined in original order, so dispatch order never affects output
// order.
type EmbedderImpl struct {
	client Embedder
	opts   options

	mu        sync.Mutex
	dimension int // first observed vector length, 0 until then
}

var _ Embedder = (*EmbedderImpl)(nil)

func NewEmbedder(client Embedder, opts ...Option) (*EmbedderImpl, error) {
	embedderOpts := options{
		StripNewLines:  true,
		BatchSize:      32,
		MaxConcurrency: 8,
	}

	for _, opt := range opts {
		opt(&embedderOpts)
	}

	if embedderOpts.BatchSize <= 0 {
		embedderOpts.BatchSize = 32
	}
	if embedderOpts.MaxConcurrency <= 0 {
		embedderOpts.MaxConcurrency = 8
	}

	if _, ok := client.(*EmbedderImpl); ok {
		return nil, errors.New("cannot wrap an already-wrapped EmbedderImpl")
	}

	return &EmbedderImpl{
		client: client,
		opts:   embedderOpts,
	}, nil
}

func (e *EmbedderImpl) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	vector, err := e.client.EmbedQuery(ctx, e.preprocessText(text))
	if err != nil {
		return nil, err
	}
	if err := e.checkDimension(len(vector)); err != nil {
		return nil, err
	}
	return vector, nil
}

func (e *EmbedderImpl) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	processedTexts := make([]string, len(texts))
	for i, text := range texts {
		processedTexts[i] = e.preprocessText(text)
	}

	batchedTexts := batchTexts(processedTexts, e.opts.BatchSize)
	batchResults := make([][][]float32, len(batchedTexts))
	errCh := make(chan error, len(batchedTexts))

	semaphore := make(chan struct{}, e.opts.MaxConcurrency)

	var wg sync.WaitGroup
	for i, batch := range batchedTexts {
		wg.Add(1)
		go func(i int, batch []string) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if ctx.Err() != nil {
				return
			}

			vectors, err := e.client.EmbedDocuments(ctx, batch)
			if err != nil {
				errCh <- fmt.Errorf("error embedding batch %d: %w", i, err)
				return
			}
			if len(vectors) != len(batch) {
				errCh <- fmt.Errorf("%w: batch %d returned %d vectors for %d texts",
					ErrServiceFailure, i, len(vectors), len(batch))
				return
			}
			batchResults[i] = vectors
		}(i, batch)
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			return nil, err
		}
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	allEmbeddings := make([][]float32, 0, len(texts))
	for _, batch := range batchResults {
		allEmbeddings = append(allEmbeddings, batch...)
	}

	for _, vector := range allEmbeddings {
		if err := e.checkDimension(len(vector)); err != nil {
			return nil, err
		}
	}

	return allEmbeddings, nil
}

func (e *EmbedderImpl) GetDimension(ctx context.Context) (int, error) {
	return e.client.GetDimension(ctx)
}

// checkDimension enforces that every vector observed during the session
// has the same length. A mismatch means the backend configuration changed
// under us and mixing such vectors would silently corrupt similarity
// ranking.
func (e *EmbedderImpl) checkDimension(got int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if got == 0 {
		return fmt.Errorf("%w: received empty vector", ErrServiceFailure)
	}
	if e.dimension == 0 {
		e.dimension = got
		return nil
	}
	if got != e.dimension {
		return fmt.Errorf("%w: vector dimension changed from %d to %d",
			ErrServiceFailure, e.dimension, got)
	}
	return nil
}

func (e *EmbedderImpl) preprocessText(text string) string {
	if e.opts.StripNewLines {
		return strings.ReplaceAll(text, "\n", " ")
	}
	return text
}

func batchTexts(texts []string, batchSize int) [][]string {
	if batchSize <= 0 {
		return [][]string{texts}
	}

	numBatches := (len(texts) + batchSize - 1) / batchSize
	batches := make([][]string, 0, numBatches)

	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batches = append(batches, texts[i:end])
	}

	return batches
}
