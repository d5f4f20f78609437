package textsplitter

import (
	"context"
	"fmt"

	"github.com/Seif-aber/pdf-chat-assistant/schema"
)

// CharacterSplitter splits text into fixed-size chunks with a configured
// overlap between consecutive chunks, so that context spanning a chunk
// boundary is not lost.
type CharacterSplitter struct {
	opts options
}

var _ TextSplitter = (*CharacterSplitter)(nil)

// NewCharacterSplitter creates a splitter and validates its configuration.
// Invalid chunk parameters are a construction-time failure, not a
// per-document one.
func NewCharacterSplitter(opts ...Option) (*CharacterSplitter, error) {
	o := options{
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidChunkSize, o.chunkSize)
	}
	if o.chunkOverlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap cannot be negative, got %d", ErrInvalidChunkSize, o.chunkOverlap)
	}
	if o.chunkOverlap >= o.chunkSize {
		return nil, fmt.Errorf("%w: chunk overlap (%d) must be smaller than chunk size (%d)",
			ErrInvalidChunkSize, o.chunkOverlap, o.chunkSize)
	}

	return &CharacterSplitter{opts: o}, nil
}

// SplitText materializes the full chunk sequence eagerly. Each chunk spans
// [start, start+size) clipped to the text length and the next chunk starts
// at start+size-overlap. The final chunk may be shorter than the configured
// size; it is never dropped.
func (s *CharacterSplitter) SplitText(_ context.Context, text string) ([]schema.Chunk, error) {
	if text == "" {
		return nil, ErrEmptyContent
	}

	size := s.opts.chunkSize
	step := size - s.opts.chunkOverlap

	chunks := make([]schema.Chunk, 0, (len(text)+step-1)/step)
	for start := 0; start < len(text); start += step {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, schema.Chunk{
			Text:  text[start:end],
			Index: len(chunks),
			Start: start,
			End:   end,
		})
		// Once a chunk reaches the end of the text there is nothing left
		// that is not already covered by it.
		if end == len(text) {
			break
		}
	}
	return chunks, nil
}

// ChunkSize reports the configured chunk size in characters.
func (s *CharacterSplitter) ChunkSize() int {
	return s.opts.chunkSize
}

// ChunkOverlap reports the configured overlap in characters.
func (s *CharacterSplitter) ChunkOverlap() int {
	return s.opts.chunkOverlap
}
