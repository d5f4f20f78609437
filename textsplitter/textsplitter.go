package textsplitter

import (
	"context"

	"github.com/Seif-aber/pdf-chat-assistant/schema"
)

// TextSplitter splits normalized text into retrieval chunks.
type TextSplitter interface {
	SplitText(ctx context.Context, text string) ([]schema.Chunk, error)
}
