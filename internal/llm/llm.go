package llm

import (
	"context"
	"errors"
)

// TextGenerator produces free text for a prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Image is a generated image payload.
type Image struct {
	Data     []byte
	MIMEType string
}

// ImageGenerator produces a single image for a prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (*Image, error)
}

var (
	// ErrEmptyResponse is returned when the model answered with no usable text.
	ErrEmptyResponse = errors.New("model returned empty response")
	// ErrNoImage is returned when the model answered without an inline image part.
	ErrNoImage = errors.New("model returned no image")
)

// TextFunc adapts a function to TextGenerator.
type TextFunc func(ctx context.Context, prompt string) (string, error)

func (f TextFunc) GenerateText(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// ImageFunc adapts a function to ImageGenerator.
type ImageFunc func(ctx context.Context, prompt string) (*Image, error)

func (f ImageFunc) GenerateImage(ctx context.Context, prompt string) (*Image, error) {
	return f(ctx, prompt)
}
