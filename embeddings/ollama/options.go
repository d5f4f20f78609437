package ollama

import (
	"net/http"
	"net/url"
	"time"
)

// options holds configuration for the Ollama embedding client.
type options struct {
	model      string
	baseURL    *url.URL
	httpClient *http.Client
	timeout    time.Duration
}

// Option is a function type for configuring the client.
type Option func(*options)

func applyOptions(opts ...Option) options {
	o := options{
		model:   "nomic-embed-text",
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithModel sets the embedding model name.
func WithModel(model string) Option {
	return func(opts *options) {
		if model != "" {
			opts.model = model
		}
	}
}

// WithBaseURL sets the Ollama server URL.
func WithBaseURL(baseURL *url.URL) Option {
	return func(opts *options) {
		opts.baseURL = baseURL
	}
}

// WithHTTPClient allows providing a custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(opts *options) {
		if client != nil {
			opts.httpClient = client
		}
	}
}

// WithTimeout sets the request timeout used when no custom client is given.
func WithTimeout(timeout time.Duration) Option {
	return func(opts *options) {
		if timeout > 0 {
			opts.timeout = timeout
		}
	}
}
