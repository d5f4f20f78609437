package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"google.golang.org/api/iterator"
	"google.golang.org/genai"

	"github.com/Seif-aber/pdf-chat-assistant/llms"
	"github.com/Seif-aber/pdf-chat-assistant/schema"
)

var (
	ErrNoAPIKey      = errors.New("gemini: API key is required")
	ErrInvalidModel  = errors.New("gemini: invalid model specified")
	ErrNoContent     = errors.New("gemini: no content generated")
	ErrSystemMessage = errors.New("gemini: system message must be the first message in the conversation")
)

// LLM implements the Model interface for Gemini.
type LLM struct {
	client  *genai.Client
	options options
	logger  *slog.Logger
}

var _ llms.Model = (*LLM)(nil)

// New creates a new Gemini LLM client.
func New(ctx context.Context, opts ...Option) (*LLM, error) {
	o := applyOptions(opts...)

	if o.apiKey == "" {
		o.apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if o.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if o.model == "" {
		return nil, ErrInvalidModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: o.apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	llm := &LLM{
		client:  client,
		options: o,
		logger:  o.logger.With("component", "gemini_llm", "model", o.model),
	}

	llm.logger.Info("Gemini LLM initialized successfully")
	return llm, nil
}

// Call is a convenience method for a single-turn conversation.
func (g *LLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, g, prompt, options...)
}

// GenerateContent handles multi-turn conversations and streaming.
func (g *LLM) GenerateContent(
	ctx context.Context,
	messages []schema.MessageContent,
	options ...llms.CallOption,
) (*llms.ContentResponse, error) {
	start := time.Now()

	callOpts := &llms.CallOptions{}
	for _, opt := range options {
		opt(callOpts)
	}

	genConfig := &genai.GenerateContentConfig{}
	if callOpts.Temperature > 0 {
		genConfig.Temperature = genai.Ptr(float32(callOpts.Temperature))
	}

	history, systemInstruction, err := g.convertToGeminiMessages(messages)
	if err != nil {
		return nil, err
	}
	if systemInstruction != nil {
		genConfig.SystemInstruction = systemInstruction
	}
	if len(history) == 0 {
		return nil, errors.New("gemini: no messages to send")
	}

	if callOpts.StreamingFunc == nil {
		resp, err := g.client.Models.GenerateContent(ctx, g.options.model, history, genConfig)
		duration := time.Since(start)
		if err != nil {
			g.logger.ErrorContext(ctx, "Gemini client failed", "error", err, "duration", duration)
			return nil, err
		}
		return g.responseToContent(resp, duration)
	}

	var fullResponse strings.Builder
	var finalResp *genai.GenerateContentResponse

	for resp, errStream := range g.client.Models.GenerateContentStream(ctx, g.options.model, history, genConfig) {
		if errors.Is(errStream, iterator.Done) {
			break
		}
		if errStream != nil {
			g.logger.ErrorContext(ctx, "Gemini stream error", "error", errStream)
			return nil, errStream
		}

		finalResp = resp
		chunkContent := extractContent(resp)
		fullResponse.WriteString(chunkContent)
		if err := callOpts.StreamingFunc(ctx, []byte(chunkContent)); err != nil {
			return nil, fmt.Errorf("streaming function returned an error: %w", err)
		}
	}

	duration := time.Since(start)

	var totalTokens int32
	if finalResp != nil && finalResp.UsageMetadata != nil {
		totalTokens = finalResp.UsageMetadata.TotalTokenCount
	}

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{
				Content: fullResponse.String(),
				GenerationInfo: map[string]any{
					"TotalTokens": totalTokens,
					"Duration":    duration,
					"Model":       g.options.model,
				},
			},
		},
	}, nil
}

// convertToGeminiMessages converts the generic schema to Gemini's native types.
func (g *LLM) convertToGeminiMessages(messages []schema.MessageContent) ([]*genai.Content, *genai.Content, error) {
	contents := make([]*genai.Content, 0, len(messages))
	var systemInstruction *genai.Content

	for i, msg := range messages {
		switch msg.Role {
		case schema.ChatMessageTypeSystem:
			if i != 0 || systemInstruction != nil {
				return nil, nil, ErrSystemMessage
			}
			systemInstruction = genai.NewContentFromText(msg.Text, genai.RoleUser)
		case schema.ChatMessageTypeAI:
			contents = append(contents, genai.NewContentFromText(msg.Text, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Text, genai.RoleUser))
		}
	}
	return contents, systemInstruction, nil
}

func (g *LLM) responseToContent(resp *genai.GenerateContentResponse, duration time.Duration) (*llms.ContentResponse, error) {
	if len(resp.Candidates) == 0 {
		return nil, ErrNoContent
	}

	choice := resp.Candidates[0]
	if choice.Content == nil || len(choice.Content.Parts) == 0 {
		return nil, ErrNoContent
	}

	var totalTokens int32
	if resp.UsageMetadata != nil {
		totalTokens = resp.UsageMetadata.TotalTokenCount
	}

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{
				Content:    extractContent(resp),
				StopReason: string(choice.FinishReason),
				GenerationInfo: map[string]any{
					"TotalTokens": totalTokens,
					"Duration":    duration,
					"Model":       g.options.model,
				},
			},
		},
	}, nil
}

// extractContent safely extracts the text content from a response.
func extractContent(resp *genai.GenerateContentResponse) string {
	var builder strings.Builder
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				builder.WriteString(part.Text)
			}
		}
	}
	return builder.String()
}
