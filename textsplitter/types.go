package textsplitter

import "errors"

// Default chunking parameters, in characters.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

var (
	ErrInvalidChunkSize = errors.New("invalid chunk size")
	ErrEmptyContent     = errors.New("content is empty or contains only whitespace")
)
