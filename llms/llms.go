package llms

import (
	"context"
	"errors"

	"github.com/Seif-aber/pdf-chat-assistant/schema"
)

// Model is a generative language model. Streaming is requested through
// WithStreamingFunc; the callback receives answer fragments as they
// arrive.
type Model interface {
	GenerateContent(ctx context.Context, messages []schema.MessageContent, options ...CallOption) (*ContentResponse, error)
	Call(ctx context.Context, prompt string, options ...CallOption) (string, error)
}

func GenerateFromSinglePrompt(ctx context.Context, llm Model, prompt string, options ...CallOption) (string, error) {
	msg := schema.NewHumanMessage(prompt)

	resp, err := llm.GenerateContent(ctx, []schema.MessageContent{msg}, options...)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) < 1 {
		return "", errors.New("empty response from model")
	}
	return resp.Choices[0].Content, nil
}
