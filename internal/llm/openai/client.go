package openai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"visioncloud-backend/internal/llm"
)

const defaultTemperature = 0.9

// Client implements llm.TextGenerator using OpenAI chat completions.
type Client struct {
	client openai.Client
	model  string
}

// New constructs a chat-completions client. Extra options are appended after the API key.
func New(apiKey, model string, opts ...option.RequestOption) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("OPENAI_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	all := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Client{client: openai.NewClient(all...), model: model}, nil
}

// GenerateText sends prompt as a single user message.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
	}
	if !isReasoningModel(c.model) {
		params.Temperature = openai.Float(defaultTemperature)
	}
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai chat model=%s: %w", c.model, err)
	}
	if len(resp.Choices) == 0 {
		return "", llm.ErrEmptyResponse
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", llm.ErrEmptyResponse
	}
	return content, nil
}

// isReasoningModel reports models that reject a custom temperature.
func isReasoningModel(model string) bool {
	m := strings.ToLower(strings.TrimSpace(model))
	return strings.HasPrefix(m, "gpt-5") || strings.HasPrefix(m, "o1") || strings.HasPrefix(m, "o3") || strings.HasPrefix(m, "o4")
}

var _ llm.TextGenerator = (*Client)(nil)
