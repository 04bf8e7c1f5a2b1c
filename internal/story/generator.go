package story

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"visioncloud-backend/internal/llm"
	"visioncloud-backend/internal/prompt"
	"visioncloud-backend/internal/shared/metrics"
	"visioncloud-backend/internal/shared/telemetry"
	"visioncloud-backend/internal/vision"
)

var (
	// ErrNoJSON is returned by Parse when the text holds no {...} object.
	ErrNoJSON = errors.New("no json object in response")
	// ErrEmptyStory is returned by Parse when every section is blank.
	ErrEmptyStory = errors.New("story has no sections")
)

// Generator asks a text model for a five-section story. It never fails: any generation or
// parse problem yields the fallback story built from the same fragments.
type Generator struct {
	text    llm.TextGenerator
	timeout time.Duration
}

// NewGenerator builds a Generator. A zero timeout leaves the caller's deadline in charge.
func NewGenerator(text llm.TextGenerator, timeout time.Duration) *Generator {
	return &Generator{text: text, timeout: timeout}
}

// Generate returns the story and whether the fallback was used.
func (g *Generator) Generate(ctx context.Context, f prompt.Fragments) (vision.Story, bool) {
	s, err := g.generate(ctx, f)
	if err != nil {
		telemetry.Warn("story.fallback", map[string]any{
			"error": err.Error(),
		})
		metrics.IncStoryFallback()
		return Fallback(f), true
	}
	return s, false
}

func (g *Generator) generate(ctx context.Context, f prompt.Fragments) (vision.Story, error) {
	if g == nil || g.text == nil {
		return vision.Story{}, errors.New("text model not configured")
	}
	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	raw, err := g.text.GenerateText(callCtx, prompt.Story(f))
	if err != nil {
		return vision.Story{}, err
	}
	return Parse(raw)
}

// Parse decodes a story from model output. It tries the whole text first, then the span
// from the first '{' to the last '}'.
func Parse(raw string) (vision.Story, error) {
	text := strings.TrimSpace(raw)
	var s vision.Story
	if err := json.Unmarshal([]byte(text), &s); err != nil {
		start := strings.IndexByte(text, '{')
		end := strings.LastIndexByte(text, '}')
		if start < 0 || end <= start {
			return vision.Story{}, ErrNoJSON
		}
		s = vision.Story{}
		if err := json.Unmarshal([]byte(text[start:end+1]), &s); err != nil {
			return vision.Story{}, err
		}
	}
	s = trimmed(s)
	if s.IsEmpty() {
		return vision.Story{}, ErrEmptyStory
	}
	return s, nil
}

// Fallback builds the deterministic story used when generation fails.
func Fallback(f prompt.Fragments) vision.Story {
	return vision.Story{
		Introduction: "A world awash in " + f.ColorDescriptions + " came to life.",
		RisingAction: "Conflict emerged when " + f.ObjectNames + " appeared.",
		Twist:        "Everything changed upon discovering " + f.WebEntities + ".",
		Climax:       "The peak conflict reached at " + f.LandmarkNames + ".",
		Resolution:   "In the end, colors shifted from " + f.ColorTransition + ", bringing calm.",
	}
}

func trimmed(s vision.Story) vision.Story {
	return vision.Story{
		Introduction: strings.TrimSpace(s.Introduction),
		RisingAction: strings.TrimSpace(s.RisingAction),
		Twist:        strings.TrimSpace(s.Twist),
		Climax:       strings.TrimSpace(s.Climax),
		Resolution:   strings.TrimSpace(s.Resolution),
	}
}
