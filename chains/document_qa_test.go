package chains

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seif-aber/pdf-chat-assistant/embeddings"
	embfake "github.com/Seif-aber/pdf-chat-assistant/embeddings/fake"
	llmfake "github.com/Seif-aber/pdf-chat-assistant/llms/fake"
	"github.com/Seif-aber/pdf-chat-assistant/textsplitter"
	"github.com/Seif-aber/pdf-chat-assistant/vectorstores/local"
)

func newTestPipeline(t *testing.T, dir string, embedder embeddings.Embedder, opts ...Option) *DocumentQA {
	t.Helper()

	splitter, err := textsplitter.NewCharacterSplitter(
		textsplitter.WithChunkSize(50),
		textsplitter.WithChunkOverlap(10),
	)
	require.NoError(t, err)

	store, err := local.New(dir)
	require.NoError(t, err)

	qa, err := NewDocumentQA(splitter, embedder, store, nil, opts...)
	require.NoError(t, err)
	return qa
}

func TestDocumentQA_IngestAndAnswer(t *testing.T) {
	ctx := context.Background()
	embedder := embfake.New(16)
	qa := newTestPipeline(t, t.TempDir(), embedder)

	assert.Equal(t, StateEmpty, qa.State())

	_, err := qa.AnswerContext(ctx, "anything", 3)
	assert.ErrorIs(t, err, ErrNotReady)

	text := strings.Repeat("the quick brown fox jumps over the lazy dog ", 10)
	require.NoError(t, qa.Ingest(ctx, text))

	assert.Equal(t, StateReady, qa.State())
	assert.Greater(t, qa.ChunkCount(), 1)
	assert.Len(t, qa.DocumentKey(), 64)

	results, err := qa.AnswerContext(ctx, "quick brown fox", 3)
	require.NoError(t, err)
	assert.Len(t, results, 3)
	for _, res := range results {
		assert.NotEmpty(t, res)
	}
}

func TestDocumentQA_EmptyTextLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	qa := newTestPipeline(t, t.TempDir(), embfake.New(16))

	err := qa.Ingest(ctx, "\n\t   \x00 ")
	require.Error(t, err)
	assert.ErrorIs(t, err, textsplitter.ErrEmptyContent)
	assert.Equal(t, StateEmpty, qa.State())
}

func TestDocumentQA_FailedIngestKeepsPreviousDocument(t *testing.T) {
	ctx := context.Background()
	embedder := embfake.New(16)
	qa := newTestPipeline(t, t.TempDir(), embedder)

	require.NoError(t, qa.Ingest(ctx, strings.Repeat("first document contents here ", 10)))
	firstKey := qa.DocumentKey()

	embedder.FailOnCall = embedder.DocumentCalls() + 1
	err := qa.Ingest(ctx, strings.Repeat("second document contents here ", 10))
	require.Error(t, err)
	assert.ErrorIs(t, err, embeddings.ErrServiceFailure)

	// The first document stays active and queryable.
	assert.Equal(t, StateReady, qa.State())
	assert.Equal(t, firstKey, qa.DocumentKey())

	results, err := qa.AnswerContext(ctx, "first document", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestDocumentQA_RestoreSkipsEmbedding(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	text := strings.Repeat("persisted document for snapshot reuse ", 10)

	first := newTestPipeline(t, dir, embfake.New(16))
	require.NoError(t, first.Ingest(ctx, text))

	// A fresh pipeline over the same directory and the same content should
	// restore the snapshot without calling the embedding service.
	embedder := embfake.New(16)
	second := newTestPipeline(t, dir, embedder)
	require.NoError(t, second.Ingest(ctx, text))

	assert.Equal(t, 0, embedder.DocumentCalls())
	assert.Equal(t, StateReady, second.State())
	assert.Equal(t, first.DocumentKey(), second.DocumentKey())

	results, err := second.AnswerContext(ctx, "persisted document", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestDocumentQA_RetriesRateLimitedEmbedding(t *testing.T) {
	ctx := context.Background()
	embedder := embfake.New(16)
	embedder.RateLimitedCalls = 2

	qa := newTestPipeline(t, t.TempDir(), embedder,
		WithMaxRetries(3),
		WithRetryBaseDelay(time.Millisecond),
	)

	require.NoError(t, qa.Ingest(ctx, strings.Repeat("rate limited then fine ", 10)))
	assert.Equal(t, StateReady, qa.State())
	assert.Equal(t, 3, embedder.DocumentCalls())
}

func TestDocumentQA_RetryBudgetExhausted(t *testing.T) {
	ctx := context.Background()
	embedder := embfake.New(16)
	embedder.RateLimitedCalls = 10

	qa := newTestPipeline(t, t.TempDir(), embedder,
		WithMaxRetries(2),
		WithRetryBaseDelay(time.Millisecond),
	)

	err := qa.Ingest(ctx, strings.Repeat("always throttled ", 10))
	require.Error(t, err)
	assert.ErrorIs(t, err, embeddings.ErrRateLimited)
	assert.Equal(t, StateEmpty, qa.State())
}

// gatedEmbedder blocks inside EmbedDocuments until released, so tests can
// hold an ingest mid-flight. Gating is off until armed.
type gatedEmbedder struct {
	dim     int
	entered chan struct{}
	release chan struct{}

	mu        sync.Mutex
	armed     bool
	enterOnce sync.Once
}

func newGatedEmbedder(dim int) *gatedEmbedder {
	return &gatedEmbedder{
		dim:     dim,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gatedEmbedder) arm() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.armed = true
}

func (g *gatedEmbedder) disarm() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.armed = false
}

func (g *gatedEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	g.mu.Lock()
	armed := g.armed
	g.mu.Unlock()

	if armed {
		g.enterOnce.Do(func() { close(g.entered) })
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, g.dim)
		v[0] = float32(len(text))
		vectors[i] = v
	}
	return vectors, nil
}

func (g *gatedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := g.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (g *gatedEmbedder) GetDimension(_ context.Context) (int, error) {
	return g.dim, nil
}

func TestDocumentQA_ConcurrentIngestRejected(t *testing.T) {
	ctx := context.Background()
	embedder := newGatedEmbedder(16)
	qa := newTestPipeline(t, t.TempDir(), embedder)

	embedder.arm()

	done := make(chan error, 1)
	go func() {
		done <- qa.Ingest(ctx, strings.Repeat("first document underway ", 10))
	}()

	// Wait until the first ingest is blocked inside the embedding step.
	select {
	case <-embedder.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first ingest never reached the embedder")
	}

	err := qa.Ingest(ctx, strings.Repeat("second document contents ", 10))
	assert.ErrorIs(t, err, ErrIngestInProgress)

	close(embedder.release)
	require.NoError(t, <-done)
	assert.Equal(t, StateReady, qa.State())
}

func TestDocumentQA_CancelledIngestKeepsPreviousDocument(t *testing.T) {
	ctx := context.Background()
	embedder := newGatedEmbedder(16)
	qa := newTestPipeline(t, t.TempDir(), embedder)

	require.NoError(t, qa.Ingest(ctx, strings.Repeat("first document contents ", 10)))
	firstKey := qa.DocumentKey()

	embedder.arm()

	ingestCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- qa.Ingest(ingestCtx, strings.Repeat("second document contents ", 10))
	}()

	select {
	case <-embedder.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("second ingest never reached the embedder")
	}
	cancel()

	err := <-done
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	embedder.disarm()

	// The first document stays active and queryable.
	assert.Equal(t, StateReady, qa.State())
	assert.Equal(t, firstKey, qa.DocumentKey())

	results, answerErr := qa.AnswerContext(ctx, "first document", 2)
	require.NoError(t, answerErr)
	assert.Len(t, results, 2)
}

func TestDocumentQA_AskUsesRetrievedContext(t *testing.T) {
	ctx := context.Background()

	splitter, err := textsplitter.NewCharacterSplitter(
		textsplitter.WithChunkSize(50),
		textsplitter.WithChunkOverlap(10),
	)
	require.NoError(t, err)

	store, err := local.New(t.TempDir())
	require.NoError(t, err)

	llm := llmfake.NewFakeLLM([]string{"the answer"})
	qa, err := NewDocumentQA(splitter, embfake.New(16), store, llm, WithTopK(2))
	require.NoError(t, err)

	require.NoError(t, qa.Ingest(ctx, strings.Repeat("document body with facts ", 10)))

	answer, err := qa.Ask(ctx, "what facts?")
	require.NoError(t, err)
	assert.Equal(t, "the answer", answer)

	prompt, ok := llm.LastPrompt()
	require.True(t, ok)
	assert.Contains(t, prompt, "what facts?")
	assert.Contains(t, prompt, "document body")
}

func TestDocumentQA_StreamAnswer(t *testing.T) {
	ctx := context.Background()

	splitter, err := textsplitter.NewCharacterSplitter(
		textsplitter.WithChunkSize(50),
		textsplitter.WithChunkOverlap(10),
	)
	require.NoError(t, err)

	store, err := local.New(t.TempDir())
	require.NoError(t, err)

	llm := llmfake.NewFakeLLM([]string{"streamed answer"})
	qa, err := NewDocumentQA(splitter, embfake.New(16), store, llm)
	require.NoError(t, err)

	require.NoError(t, qa.Ingest(ctx, strings.Repeat("streaming source text ", 10)))

	var streamed strings.Builder
	answer, err := qa.StreamAnswer(ctx, "question", func(_ context.Context, chunk []byte) error {
		streamed.Write(chunk)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "streamed answer", answer)
	assert.Equal(t, "streamed answer", streamed.String())
}
