package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"

	"google.golang.org/genai"

	"github.com/Seif-aber/pdf-chat-assistant/embeddings"
)

var ErrNoAPIKey = errors.New("gemini: API key is required")

const (
	taskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	taskRetrievalQuery    = "RETRIEVAL_QUERY"
)

// Embedder generates embeddings through the Gemini embedding API.
type Embedder struct {
	client  *genai.Client
	options options

	// dimension is cached after the first call to GetDimension
	dimension int
	dimErr    error
	dimOnce   sync.Once
}

var _ embeddings.Embedder = (*Embedder)(nil)

// New creates a new Gemini embedding client.
func New(ctx context.Context, opts ...Option) (*Embedder, error) {
	o := applyOptions(opts...)

	if o.apiKey == "" {
		o.apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if o.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: o.apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	e := &Embedder{
		client:  client,
		options: o,
	}
	e.options.logger = o.logger.With("component", "gemini_embedder", "model", o.model)
	e.options.logger.Info("Gemini embedder initialized successfully")
	return e, nil
}

// EmbedDocuments generates embeddings for a slice of texts, preserving order.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	res, err := e.client.Models.EmbedContent(ctx, e.options.model, contents,
		&genai.EmbedContentConfig{TaskType: taskRetrievalDocument})
	if err != nil {
		return nil, translateError(err)
	}

	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, but got %d",
			embeddings.ErrServiceFailure, len(texts), len(res.Embeddings))
	}

	vectors := make([][]float32, len(res.Embeddings))
	for i, emb := range res.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("%w: embedding %d is nil or empty", embeddings.ErrServiceFailure, i)
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}

// EmbedQuery generates an embedding for a single query text.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, embeddings.ErrEmptyText
	}

	content := genai.NewContentFromText(text, genai.RoleUser)
	res, err := e.client.Models.EmbedContent(ctx, e.options.model, []*genai.Content{content},
		&genai.EmbedContentConfig{TaskType: taskRetrievalQuery})
	if err != nil {
		return nil, translateError(err)
	}

	if len(res.Embeddings) == 0 || res.Embeddings[0] == nil {
		return nil, fmt.Errorf("%w: embedding is nil or empty", embeddings.ErrServiceFailure)
	}
	return res.Embeddings[0].Values, nil
}

// GetDimension returns the embedding dimension of the configured model.
func (e *Embedder) GetDimension(ctx context.Context) (int, error) {
	e.dimOnce.Do(func() {
		sample, err := e.EmbedQuery(ctx, "dimension")
		if err != nil {
			e.dimErr = fmt.Errorf("failed to get dimension by embedding sample text: %w", err)
			return
		}
		e.dimension = len(sample)
	})
	return e.dimension, e.dimErr
}

// translateError maps Gemini API failures onto the embeddings taxonomy.
// HTTP 429 means throttling and is the only condition the orchestration
// layer retries.
func translateError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %s", embeddings.ErrRateLimited, apiErr.Message)
	}
	return fmt.Errorf("%w: %v", embeddings.ErrServiceFailure, err)
}
