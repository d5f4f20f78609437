package gemini

import "log/slog"

// options holds configuration for the Gemini embedding client.
type options struct {
	model  string
	apiKey string
	logger *slog.Logger
}

// Option is a function type for configuring the client.
type Option func(*options)

func applyOptions(opts ...Option) options {
	o := options{
		model:  "text-embedding-004",
		logger: slog.Default(),
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

// WithAPIKey sets the Gemini API key.
func WithAPIKey(apiKey string) Option {
	return func(opts *options) {
		opts.apiKey = apiKey
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *options) {
		if logger != nil {
			opts.logger = logger
		}
	}
}
