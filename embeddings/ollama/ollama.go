package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/Seif-aber/pdf-chat-assistant/embeddings"
)

const (
	DefaultOllamaURL = "http://127.0.0.1:11434"
	DefaultTimeout   = 2 * time.Minute
)

// Embedder generates embeddings through a local or remote Ollama server
// using its /api/embed endpoint.
type Embedder struct {
	baseURL    *url.URL
	httpClient *http.Client
	options    options

	// dimension is cached after the first call to GetDimension
	dimension int
	dimErr    error
	dimOnce   sync.Once
}

var _ embeddings.Embedder = (*Embedder)(nil)

// New creates a new Ollama embedding client.
func New(opts ...Option) (*Embedder, error) {
	o := applyOptions(opts...)

	baseURL := o.baseURL
	if baseURL == nil {
		host := os.Getenv("OLLAMA_URL")
		if host == "" {
			host = DefaultOllamaURL
		}
		parsed, err := url.Parse(host)
		if err != nil {
			return nil, fmt.Errorf("failed to parse OLLAMA_URL: %w", err)
		}
		baseURL = parsed
	}

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: o.timeout}
	}

	return &Embedder{
		baseURL:    baseURL,
		httpClient: httpClient,
		options:    o,
	}, nil
}

// EmbedDocuments generates embeddings for a slice of texts, preserving order.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	req := &api.EmbedRequest{
		Model: e.options.model,
		Input: texts,
	}

	var resp api.EmbedResponse
	if err := e.doRequest(ctx, "/api/embed", req, &resp); err != nil {
		return nil, err
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, but got %d",
			embeddings.ErrServiceFailure, len(texts), len(resp.Embeddings))
	}
	return resp.Embeddings, nil
}

// EmbedQuery generates an embedding for a single query text.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, embeddings.ErrEmptyText
	}

	vectors, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: no embedding returned for query", embeddings.ErrServiceFailure)
	}
	return vectors[0], nil
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

func (e *Embedder) doRequest(ctx context.Context, path string, reqData, respData any) error {
	body := new(bytes.Buffer)
	if err := json.NewEncoder(body).Encode(reqData); err != nil {
		return fmt.Errorf("failed to encode request data: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL.JoinPath(path).String(), body)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")

	response, err := e.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("%w: %v", embeddings.ErrServiceFailure, err)
	}
	defer response.Body.Close()

	if err := e.checkError(response); err != nil {
		return err
	}

	if err := json.NewDecoder(response.Body).Decode(respData); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", embeddings.ErrServiceFailure, err)
	}
	return nil
}

func (e *Embedder) checkError(response *http.Response) error {
	if response.StatusCode < http.StatusBadRequest {
		return nil
	}

	var apiError struct {
		Error string `json:"error"`
	}
	message := http.StatusText(response.StatusCode)
	if err := json.NewDecoder(response.Body).Decode(&apiError); err == nil && apiError.Error != "" {
		message = apiError.Error
	}

	if response.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %s", embeddings.ErrRateLimited, message)
	}
	return fmt.Errorf("%w: ollama API error (status %d): %s",
		embeddings.ErrServiceFailure, response.StatusCode, message)
}
