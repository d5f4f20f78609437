package chains

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Seif-aber/pdf-chat-assistant/embeddings"
	"github.com/Seif-aber/pdf-chat-assistant/llms"
	"github.com/Seif-aber/pdf-chat-assistant/schema"
	"github.com/Seif-aber/pdf-chat-assistant/textsplitter"
	"github.com/Seif-aber/pdf-chat-assistant/vectorstores"
)

var (
	// ErrNotReady is returned by query operations before a successful ingest.
	ErrNotReady = errors.New("no document has been ingested")

	// ErrIngestInProgress is returned when an ingest starts while another
	// one is still running.
	ErrIngestInProgress = errors.New("another ingest is already in progress")
)

// IngestState tracks where the pipeline is in its document lifecycle.
type IngestState int

const (
	StateEmpty IngestState = iota
	StateIngesting
	StateReady
)

func (s IngestState) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateIngesting:
		return "ingesting"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// DocumentQA drives the full retrieval pipeline for a single active
// document: normalize, chunk, embed, store, then answer queries against
// the stored chunks.
//
// Ingest is all-or-nothing: the vector store is only replaced after every
// chunk has been embedded successfully, so a failed ingest leaves the
// previously active document queryable.
type DocumentQA struct {
	splitter textsplitter.TextSplitter
	embedder embeddings.Embedder
	store    vectorstores.VectorStore
	llm      llms.Model
	logger   *slog.Logger
	opts     options

	mu         sync.Mutex
	state      IngestState
	docKey     string
	chunkCount int
}

// NewDocumentQA assembles the pipeline. The LLM may be nil when only
// AnswerContext is used.
func NewDocumentQA(
	splitter textsplitter.TextSplitter,
	embedder embeddings.Embedder,
	store vectorstores.VectorStore,
	llm llms.Model,
	opts ...Option,
) (*DocumentQA, error) {
	if splitter == nil {
		return nil, errors.New("splitter is required")
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if store == nil {
		return nil, errors.New("vector store is required")
	}

	o := applyOptions(opts...)

	return &DocumentQA{
		splitter: splitter,
		embedder: embedder,
		store:    store,
		llm:      llm,
		logger:   o.logger.With("component", "document_qa"),
		opts:     o,
		state:    StateEmpty,
	}, nil
}

// State reports the current lifecycle state.
func (d *DocumentQA) State() IngestState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// ChunkCount reports how many chunks the active document produced.
func (d *DocumentQA) ChunkCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.chunkCount
}

// DocumentKey returns the content hash identifying the active document,
// empty until a document is ready.
func (d *DocumentQA) DocumentKey() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.docKey
}

// Ingest replaces the active document with rawText. The text is
// normalized, chunked and embedded before the store is swapped; any
// failure before the swap leaves the previous document intact and
// restores the prior state.
//
// When a persisted snapshot exists for the same content, the embedding
// step is skipped entirely and the snapshot is restored instead.
func (d *DocumentQA) Ingest(ctx context.Context, rawText string) error {
	d.mu.Lock()
	if d.state == StateIngesting {
		d.mu.Unlock()
		return ErrIngestInProgress
	}
	prevState := d.state
	d.state = StateIngesting
	d.mu.Unlock()

	err := d.ingest(ctx, rawText)
	if err != nil {
		d.mu.Lock()
		d.state = prevState
		d.mu.Unlock()
		return err
	}
	return nil
}

func (d *DocumentQA) ingest(ctx context.Context, rawText string) error {
	start := time.Now()

	normalized, err := textsplitter.Normalize(rawText)
	if err != nil {
		return fmt.Errorf("normalization failed: %w", err)
	}

	chunks, err := d.splitter.SplitText(ctx, normalized)
	if err != nil {
		return fmt.Errorf("chunking failed: %w", err)
	}

	key := contentKey(normalized)
	logger := d.logger.With("doc_key", key[:12], "chunks", len(chunks))

	restored, err := d.store.Restore(ctx, key)
	if err != nil {
		logger.WarnContext(ctx, "snapshot restore failed, re-embedding", "error", err)
	}
	if restored {
		logger.InfoContext(ctx, "document restored from snapshot", "duration", time.Since(start))
		d.finishIngest(key, len(chunks))
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	var vectors [][]float32
	err = d.withRetry(ctx, func() error {
		var embedErr error
		vectors, embedErr = d.embedder.EmbedDocuments(ctx, texts)
		return embedErr
	})
	if err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: got %d vectors for %d chunks",
			embeddings.ErrServiceFailure, len(vectors), len(chunks))
	}

	entries := make([]vectorstores.Entry, len(chunks))
	for i, chunk := range chunks {
		entries[i] = vectorstores.Entry{Chunk: chunk, Vector: vectors[i]}
	}

	if err := d.store.ReplaceAll(ctx, entries); err != nil {
		return fmt.Errorf("store replacement failed: %w", err)
	}

	if err := d.store.Persist(ctx, key); err != nil {
		// The document is live in memory; persistence is best effort.
		logger.WarnContext(ctx, "snapshot persist failed", "error", err)
	}

	logger.InfoContext(ctx, "document ingested", "duration", time.Since(start))
	d.finishIngest(key, len(chunks))
	return nil
}

func (d *DocumentQA) finishIngest(key string, chunkCount int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = StateReady
	d.docKey = key
	d.chunkCount = chunkCount
}

// AnswerContext returns the text of the top-k chunks most similar to
// query, in descending relevance order.
func (d *DocumentQA) AnswerContext(ctx context.Context, query string, k int) ([]string, error) {
	if d.State() != StateReady {
		return nil, ErrNotReady
	}

	var vector []float32
	err := d.withRetry(ctx, func() error {
		var embedErr error
		vector, embedErr = d.embedder.EmbedQuery(ctx, query)
		return embedErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := d.store.Search(ctx, vector, k)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(results))
	for i, res := range results {
		texts[i] = res.Chunk.Text
	}
	return texts, nil
}

// Ask answers query grounded in the active document.
func (d *DocumentQA) Ask(ctx context.Context, query string) (string, error) {
	return d.answer(ctx, query)
}

// StreamAnswer answers query and streams the response fragments through
// streamFn as they arrive.
func (d *DocumentQA) StreamAnswer(
	ctx context.Context,
	query string,
	streamFn func(ctx context.Context, chunk []byte) error,
) (string, error) {
	return d.answer(ctx, query, llms.WithStreamingFunc(streamFn))
}

func (d *DocumentQA) answer(ctx context.Context, query string, callOpts ...llms.CallOption) (string, error) {
	if d.llm == nil {
		return "", errors.New("no language model configured")
	}

	contextTexts, err := d.AnswerContext(ctx, query, d.opts.topK)
	if err != nil {
		return "", err
	}

	if d.opts.temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(d.opts.temperature))
	}

	qa := NewRetrievalQA(staticRetriever(contextTexts), d.llm)
	return qa.Call(ctx, query, callOpts...)
}

// withRetry runs fn, retrying with exponential backoff only when the
// failure is rate limiting. Any other error is returned immediately.
func (d *DocumentQA) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delay := d.opts.retryBaseDelay

	for attempt := 0; attempt <= d.opts.maxRetries; attempt++ {
		if attempt > 0 {
			d.logger.WarnContext(ctx, "rate limited, backing off",
				"attempt", attempt, "delay", delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		err = fn()
		if err == nil || !errors.Is(err, embeddings.ErrRateLimited) {
			return err
		}
	}
	return err
}

// contentKey derives the document identity from its normalized text, so
// the same content always maps to the same snapshot.
func contentKey(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// staticRetriever serves an already-retrieved context set as documents.
type staticRetriever []string

func (s staticRetriever) GetRelevantDocuments(_ context.Context, _ string) ([]schema.Document, error) {
	docs := make([]schema.Document, len(s))
	for i, text := range s {
		docs[i] = schema.NewDocument(text, nil)
	}
	return docs, nil
}
