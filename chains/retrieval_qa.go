package chains

import (
	"context"
	"fmt"
	"strings"

	"github.com/Seif-aber/pdf-chat-assistant/llms"
	"github.com/Seif-aber/pdf-chat-assistant/prompts"
	"github.com/Seif-aber/pdf-chat-assistant/schema"
)

// RetrievalQA retrieves relevant documents for a query and asks the
// model to answer using only that context.
type RetrievalQA struct {
	Retriever schema.Retriever
	LLM       llms.Model
}

func NewRetrievalQA(retriever schema.Retriever, llm llms.Model) RetrievalQA {
	return RetrievalQA{
		Retriever: retriever,
		LLM:       llm,
	}
}

func (c RetrievalQA) Call(ctx context.Context, query string, callOpts ...llms.CallOption) (string, error) {
	docs, err := c.Retriever.GetRelevantDocuments(ctx, query)
	if err != nil {
		return "", fmt.Errorf("document retrieval failed: %w", err)
	}

	if len(docs) == 0 {
		return c.LLM.Call(ctx, query, callOpts...)
	}

	docContents := make([]string, len(docs))
	for i, doc := range docs {
		docContents[i] = doc.PageContent
	}
	docContext := strings.Join(docContents, "\n\n---\n\n")

	prompt, err := prompts.NewDocumentQAPrompt().Format(map[string]any{
		"context": docContext,
		"query":   query,
	})
	if err != nil {
		return "", fmt.Errorf("prompt formatting failed: %w", err)
	}

	return c.LLM.Call(ctx, prompt, callOpts...)
}
