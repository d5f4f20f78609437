package textsplitter

// options holds configuration settings for the text splitter.
type options struct {
	chunkSize    int
	chunkOverlap int
}

// Option is a function type for configuring the splitter.
type Option func(*options)

// WithChunkSize sets the target chunk size in characters.
func WithChunkSize(size int) Option {
	return func(o *options) {
		o.chunkSize = size
	}
}

// WithChunkOverlap sets the overlap between consecutive chunks.
func WithChunkOverlap(overlap int) Option {
	return func(o *options) {
		o.chunkOverlap = overlap
	}
}
