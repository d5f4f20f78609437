package fake

import (
	"context"
	"errors"
	"sync"

	"github.com/Seif-aber/pdf-chat-assistant/llms"
	"github.com/Seif-aber/pdf-chat-assistant/schema"
)

// LLM cycles through predefined responses for testing.
type LLM struct {
	mu         sync.Mutex
	responses  []string
	index      int
	lastPrompt string
	callCount  int
}

func NewFakeLLM(responses []string) *LLM {
	return &LLM{
		responses: responses,
	}
}

// GenerateContent returns the next predefined response in the cycle. When
// streaming is requested the response is delivered through the callback
// in a single fragment first.
func (f *LLM) GenerateContent(
	ctx context.Context,
	messages []schema.MessageContent,
	options ...llms.CallOption,
) (*llms.ContentResponse, error) {
	f.mu.Lock()

	if len(f.responses) == 0 {
		f.mu.Unlock()
		return nil, errors.New("no responses configured")
	}

	if len(messages) > 0 {
		f.lastPrompt = messages[len(messages)-1].Text
	}
	f.callCount++

	response := f.responses[f.index]
	f.index = (f.index + 1) % len(f.responses)
	f.mu.Unlock()

	callOpts := &llms.CallOptions{}
	for _, opt := range options {
		opt(callOpts)
	}
	if callOpts.StreamingFunc != nil {
		if err := callOpts.StreamingFunc(ctx, []byte(response)); err != nil {
			return nil, err
		}
	}

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{Content: response},
		},
	}, nil
}

// Call is a simplified interface for generating responses from a string prompt.
func (f *LLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := f.GenerateContent(ctx, []schema.MessageContent{schema.NewHumanMessage(prompt)}, options...)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty response from model")
	}
	return resp.Choices[0].Content, nil
}

// Reset resets the response index and call count.
func (f *LLM) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.index = 0
	f.callCount = 0
	f.lastPrompt = ""
}

// LastPrompt returns the last prompt sent to the LLM.
func (f *LLM) LastPrompt() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastPrompt, f.lastPrompt != ""
}

// GetCallCount returns the number of times the LLM was called.
func (f *LLM) GetCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.callCount
}
