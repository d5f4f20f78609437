package documentloaders

import "log/slog"

type options struct {
	logger *slog.Logger
}

type Option func(*options)

func applyOptions(opts ...Option) options {
	o := options{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
