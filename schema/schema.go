package schema

import (
	"context"
	"fmt"
)

// Document is a piece of source text plus arbitrary metadata, as produced
// by a document loader.
type Document struct {
	PageContent string
	Metadata    map[string]any
}

func (d Document) String() string {
	return d.PageContent
}

func NewDocument(content string, metadata map[string]any) Document {
	if metadata == nil {
		metadata = make(map[string]any)
	}
	return Document{
		PageContent: content,
		Metadata:    metadata,
	}
}

// Chunk is a contiguous substring of a normalized document used as a
// retrieval unit. Start and End are byte offsets into the normalized
// text, [Start, End). Chunks are immutable once created.
type Chunk struct {
	Text  string `json:"text"`
	Index int    `json:"index"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

func (c Chunk) String() string {
	return fmt.Sprintf("chunk %d [%d:%d)", c.Index, c.Start, c.End)
}

// Retriever fetches the document fragments most relevant to a query.
type Retriever interface {
	GetRelevantDocuments(ctx context.Context, query string) ([]Document, error)
}
