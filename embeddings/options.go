package embeddings

type options struct {
	StripNewLines  bool
	BatchSize      int
	MaxConcurrency int
}

type Option func(*options)

func WithBatchSize(size int) Option {
	return func(opts *options) {
		opts.BatchSize = size
	}
}

func WithStripNewLines(strip bool) Option {
	return func(opts *options) {
		opts.StripNewLines = strip
	}
}

func WithMaxConcurrency(n int) Option {
	return func(opts *options) {
		opts.MaxConcurrency = n
	}
}
