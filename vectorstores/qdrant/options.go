package qdrant

import (
	"errors"
	"log/slog"
	"strings"
)

const (
	defaultHost = "localhost"
	defaultPort = 6334
)

var ErrInvalidOptions = errors.New("qdrant: invalid options provided")

// options holds all configuration options for the Qdrant store.
type options struct {
	collectionName string
	host           string
	port           int
	apiKey         string
	useTLS         bool
	logger         *slog.Logger
}

// Option defines a function type for configuring Qdrant store options.
type Option func(*options)

// WithCollectionName pins the store to a fixed collection instead of
// deriving one from the document key.
func WithCollectionName(name string) Option {
	return func(opts *options) {
		opts.collectionName = strings.TrimSpace(name)
	}
}

// WithHostAndPort sets the Qdrant server address.
func WithHostAndPort(host string, port int) Option {
	return func(opts *options) {
		if host != "" {
			opts.host = host
		}
		if port > 0 {
			opts.port = port
		}
	}
}

// WithAPIKey sets the API key for Qdrant authentication.
func WithAPIKey(apiKey string) Option {
	return func(opts *options) {
		opts.apiKey = strings.TrimSpace(apiKey)
	}
}

// WithTLS enables TLS for the Qdrant connection.
func WithTLS(useTLS bool) Option {
	return func(opts *options) {
		opts.useTLS = useTLS
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

func parseOptions(opts ...Option) (options, error) {
	o := options{
		host:   defaultHost,
		port:   defaultPort,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	if o.port <= 0 || o.port > 65535 {
		return o, errors.New("port must be between 1 and 65535")
	}
	return o, nil
}
