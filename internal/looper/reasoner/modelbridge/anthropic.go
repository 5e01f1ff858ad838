package modelbridge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/loopercore/looper/internal/looper/model"
)

// AnthropicClient implements ChatClient against the Anthropic Messages
// API via github.com/anthropics/anthropic-sdk-go.
type AnthropicClient struct {
	client anthropic.Client
	model  string
}

// NewAnthropicClient builds an AnthropicClient. apiKey must be
// non-empty; defaultModel names the model to request (e.g.
// "claude-3-5-haiku-latest" — cheap tier fits the local reasoner's
// cost profile).
func NewAnthropicClient(apiKey, defaultModel string) (*AnthropicClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("anthropic api key is required")
	}
	modelID := strings.TrimSpace(defaultModel)
	if modelID == "" {
		return nil, errors.New("anthropic default model is required")
	}
	return &AnthropicClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  modelID,
	}, nil
}

// Complete implements ChatClient.
func (c *AnthropicClient) Complete(ctx context.Context, systemInstruction, userMessage string, maxTokens int) (string, model.TokenUsage, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(maxTokens),
		System: []anthropic.TextBlockParam{
			{Text: systemInstruction},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userMessage)),
		},
		Temperature: anthropic.Float(0),
	})
	if err != nil {
		return "", model.TokenUsage{}, fmt.Errorf("anthropic message: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if variant := block.AsAny(); variant != nil {
			if tb, ok := variant.(anthropic.TextBlock); ok {
				text.WriteString(tb.Text)
			}
		}
	}
	usage := model.TokenUsage{
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}
	return text.String(), usage, nil
}
