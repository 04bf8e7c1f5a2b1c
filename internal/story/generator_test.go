package story

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visioncloud-backend/internal/llm"
	"visioncloud-backend/internal/prompt"
	"visioncloud-backend/internal/shared/telemetry"
	"visioncloud-backend/internal/vision"
)

const storyJSON = `{"introduction":"I","rising_action":"R","twist":"T","climax":"C","resolution":"E"}`

func TestParse(t *testing.T) {
	want := vision.Story{Introduction: "I", RisingAction: "R", Twist: "T", Climax: "C", Resolution: "E"}
	tests := []struct {
		name    string
		raw     string
		want    vision.Story
		wantErr error
	}{
		{name: "bare json", raw: storyJSON, want: want},
		{name: "surrounding commentary", raw: "Sure! Here is your story:\n" + storyJSON + "\nEnjoy.", want: want},
		{name: "markdown fence", raw: "```json\n" + storyJSON + "\n```", want: want},
		{name: "no braces", raw: "I cannot help with that.", wantErr: ErrNoJSON},
		{name: "only closing brace", raw: "} oops {", wantErr: ErrNoJSON},
		{name: "all sections empty", raw: `{"introduction":"  ","other":"x"}`, wantErr: ErrEmptyStory},
		{name: "partial story", raw: `{"introduction":"only"}`, want: vision.Story{Introduction: "only"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMalformedJSONErrors(t *testing.T) {
	_, err := Parse(`prefix {"introduction": "x", } suffix`)
	require.Error(t, err)
}

func TestGenerateUsesModelStory(t *testing.T) {
	var gotPrompt string
	text := llm.TextFunc(func(ctx context.Context, p string) (string, error) {
		gotPrompt = p
		return "Here you go " + storyJSON, nil
	})
	f := prompt.Derive(vision.Empty(nil))

	got, fellBack := NewGenerator(text, 0).Generate(context.Background(), f)
	assert.False(t, fellBack)
	assert.Equal(t, "I", got.Introduction)
	assert.Equal(t, prompt.Story(f), gotPrompt)
}

func TestGenerateFallsBackOnNoJSON(t *testing.T) {
	var buf bytes.Buffer
	restore := telemetry.SetOutput(&buf)
	defer restore()

	text := llm.TextFunc(func(ctx context.Context, p string) (string, error) {
		return "no story today", nil
	})
	f := prompt.Derive(vision.Empty(nil))

	got, fellBack := NewGenerator(text, 0).Generate(context.Background(), f)
	require.True(t, fellBack)
	assert.Equal(t, Fallback(f), got)
	for _, name := range vision.Sections {
		assert.NotEmpty(t, got.Section(name), name)
	}
	assert.Equal(t, "A world awash in vibrant red, deep blue, forest green came to life.", got.Introduction)
	assert.Equal(t, "Conflict emerged when mysterious object, shadowy figure, ancient artifact appeared.", got.RisingAction)
	assert.Equal(t, "Everything changed upon discovering hidden secret, unexpected discovery, ancient myth.", got.Twist)
	assert.Equal(t, "The peak conflict reached at towering mountain, hidden valley, ancient temple.", got.Climax)
	assert.Equal(t, "In the end, colors shifted from vibrant red to deep blue to forest green, bringing calm.", got.Resolution)
	assert.True(t, strings.Contains(buf.String(), `"msg":"story.fallback"`))
}

func TestGenerateFallsBackOnCallError(t *testing.T) {
	restore := telemetry.SetOutput(&bytes.Buffer{})
	defer restore()

	text := llm.TextFunc(func(ctx context.Context, p string) (string, error) {
		return "", errors.New("quota exceeded")
	})
	f := prompt.Fragments{ColorDescriptions: "deep cyan", ObjectNames: "Boat", WebEntities: "Paris", LandmarkNames: "Louvre", ColorTransition: "deep cyan"}

	got, fellBack := NewGenerator(text, 0).Generate(context.Background(), f)
	require.True(t, fellBack)
	assert.Equal(t, "A world awash in deep cyan came to life.", got.Introduction)
	assert.Equal(t, "The peak conflict reached at Louvre.", got.Climax)
}

func TestGenerateWithoutModelFallsBack(t *testing.T) {
	restore := telemetry.SetOutput(&bytes.Buffer{})
	defer restore()

	_, fellBack := NewGenerator(nil, 0).Generate(context.Background(), prompt.Fragments{})
	assert.True(t, fellBack)
}
