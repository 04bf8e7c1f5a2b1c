package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"visioncloud-backend/internal/llm"
)

// Client implements llm.TextGenerator and llm.ImageGenerator on the Gemini API.
type Client struct {
	client     *genai.Client
	textModel  string
	imageModel string
}

// New constructs a Gemini client authenticated with apiKey.
func New(ctx context.Context, apiKey, textModel, imageModel string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	return NewWithConfig(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}, textModel, imageModel)
}

// NewWithConfig constructs a client from an explicit SDK configuration.
func NewWithConfig(ctx context.Context, cc *genai.ClientConfig, textModel, imageModel string) (*Client, error) {
	if strings.TrimSpace(textModel) == "" || strings.TrimSpace(imageModel) == "" {
		return nil, fmt.Errorf("gemini text and image models are required")
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Client{client: client, textModel: textModel, imageModel: imageModel}, nil
}

// GenerateText returns the concatenated text parts of the first candidate.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.textModel, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate text model=%s: %w", c.textModel, err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

// GenerateImage requests text and image modalities and returns the first inline image part.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (*llm.Image, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.imageModel, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityText), string(genai.ModalityImage)},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini generate image model=%s: %w", c.imageModel, err)
	}
	return imageFromResponse(resp)
}

func imageFromResponse(resp *genai.GenerateContentResponse) (*llm.Image, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, llm.ErrNoImage
	}
	candidate := resp.Candidates[0]
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				mime := part.InlineData.MIMEType
				if mime == "" {
					mime = "image/png"
				}
				return &llm.Image{Data: part.InlineData.Data, MIMEType: mime}, nil
			}
		}
	}
	if candidate.FinishReason != genai.FinishReasonUnspecified && candidate.FinishReason != genai.FinishReasonStop {
		return nil, fmt.Errorf("%w: finish reason %s", llm.ErrNoImage, candidate.FinishReason)
	}
	return nil, llm.ErrNoImage
}

var (
	_ llm.TextGenerator  = (*Client)(nil)
	_ llm.ImageGenerator = (*Client)(nil)
)
