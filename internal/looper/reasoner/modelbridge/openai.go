package modelbridge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/loopercore/looper/internal/looper/model"
)

// OpenAIClient implements ChatClient against the OpenAI Chat Completions
// API via github.com/openai/openai-go.
type OpenAIClient struct {
	client openai.Client
	model  string
}

// NewOpenAIClient builds an OpenAIClient. apiKey must be non-empty;
// defaultModel names the chat model to request (e.g. "gpt-4o-mini").
func NewOpenAIClient(apiKey, defaultModel string) (*OpenAIClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	modelID := strings.TrimSpace(defaultModel)
	if modelID == "" {
		return nil, errors.New("openai default model is required")
	}
	return &OpenAIClient{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  modelID,
	}, nil
}

// Complete implements ChatClient.
func (c *OpenAIClient) Complete(ctx context.Context, systemInstruction, userMessage string, maxTokens int) (string, model.TokenUsage, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemInstruction),
			openai.UserMessage(userMessage),
		},
		Temperature:         openai.Float(0),
		MaxCompletionTokens: openai.Int(int64(maxTokens)),
	})
	if err != nil {
		return "", model.TokenUsage{}, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", model.TokenUsage{}, errors.New("openai chat completion returned no choices")
	}
	usage := model.TokenUsage{
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
	}
	return resp.Choices[0].Message.Content, usage, nil
}
