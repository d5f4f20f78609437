package chains

import (
	"log/slog"
	"time"
)

type options struct {
	topK           int
	maxRetries     int
	retryBaseDelay time.Duration
	temperature    float64
	logger         *slog.Logger
}

type Option func(*options)

func applyOptions(opts ...Option) options {
	o := options{
		topK:           4,
		maxRetries:     3,
		retryBaseDelay: 500 * time.Millisecond,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.topK <= 0 {
		o.topK = 4
	}
	if o.maxRetries < 0 {
		o.maxRetries = 0
	}
	return o
}

// WithTopK sets how many chunks are retrieved per query.
func WithTopK(k int) Option {
	return func(o *options) {
		o.topK = k
	}
}

// WithMaxRetries bounds retries of rate-limited embedding calls.
func WithMaxRetries(n int) Option {
	return func(o *options) {
		o.maxRetries = n
	}
}

// WithRetryBaseDelay sets the initial backoff delay; it doubles per retry.
func WithRetryBaseDelay(d time.Duration) Option {
	return func(o *options) {
		o.retryBaseDelay = d
	}
}

// WithTemperature sets the sampling temperature for answer generation.
func WithTemperature(temperature float64) Option {
	return func(o *options) {
		o.temperature = temperature
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
