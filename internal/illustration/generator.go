package illustration

import (
	"context"
	"time"

	"visioncloud-backend/internal/llm"
	"visioncloud-backend/internal/prompt"
	"visioncloud-backend/internal/shared/metrics"
	"visioncloud-backend/internal/shared/telemetry"
	"visioncloud-backend/internal/vision"
)

// Set maps every story section to its image, or nil when generation gave up.
type Set map[string]*llm.Image

// Count returns the number of sections with an image.
func (s Set) Count() int {
	n := 0
	for _, img := range s {
		if img != nil {
			n++
		}
	}
	return n
}

// Policy holds attempt budgets and pacing.
type Policy struct {
	Attempts           int
	ResolutionAttempts int
	RetryDelay         time.Duration
	SectionDelay       time.Duration
	TwoStepDelay       time.Duration
	FinalAttemptDelay  time.Duration
	CallTimeout        time.Duration
}

// DefaultPolicy returns the standard budgets: 3 attempts per section, 4 for the resolution
// fallback, 1.5s between attempts and 1s between sections.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:           3,
		ResolutionAttempts: 4,
		RetryDelay:         1500 * time.Millisecond,
		SectionDelay:       time.Second,
		TwoStepDelay:       time.Second,
		FinalAttemptDelay:  2 * time.Second,
		CallTimeout:        90 * time.Second,
	}
}

// Generator produces section illustrations one at a time. Every step is fail-soft.
type Generator struct {
	text   llm.TextGenerator
	image  llm.ImageGenerator
	policy Policy
	sleep  Sleeper
}

// Option configures a Generator.
type Option func(*Generator)

// WithSleeper replaces the real-time sleeper.
func WithSleeper(s Sleeper) Option {
	return func(g *Generator) {
		if s != nil {
			g.sleep = s
		}
	}
}

// NewGenerator builds a Generator. text is used only for the describe step of the
// two-step strategy and may be nil.
func NewGenerator(text llm.TextGenerator, image llm.ImageGenerator, policy Policy, opts ...Option) *Generator {
	g := &Generator{text: text, image: image, policy: policy, sleep: Sleep}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate illustrates each section of s in order with SectionDelay between sections.
func (g *Generator) Generate(ctx context.Context, s vision.Story) Set {
	out := make(Set, len(vision.Sections))
	processed := 0
	for _, section := range vision.Sections {
		out[section] = nil
		text := s.Section(section)
		if text == "" {
			continue
		}
		if ctx.Err() != nil {
			telemetry.Warn("illustration.skipped", map[string]any{"section": section, "error": ctx.Err().Error()})
			continue
		}
		if processed > 0 {
			if err := g.sleep(ctx, g.policy.SectionDelay); err != nil {
				continue
			}
		}
		processed++
		out[section] = g.Section(ctx, section, text)
	}
	for _, section := range vision.Sections {
		if out[section] != nil {
			metrics.IncIllustrationGenerated()
		} else {
			metrics.IncIllustrationMissing()
		}
	}
	return out
}

// Section applies the per-section policy. The resolution tries two-step generation, then
// ResolutionAttempts retries, then one final attempt after FinalAttemptDelay. Other sections
// use Attempts retries.
func (g *Generator) Section(ctx context.Context, section, text string) *llm.Image {
	if text == "" {
		return nil
	}
	if section != vision.SectionResolution {
		return g.WithRetry(ctx, section, text, g.policy.Attempts)
	}
	if img := g.TwoStep(ctx, section, text); img != nil {
		return img
	}
	if img := g.WithRetry(ctx, section, text, g.policy.ResolutionAttempts); img != nil {
		return img
	}
	if err := g.sleep(ctx, g.policy.FinalAttemptDelay); err != nil {
		return nil
	}
	return g.attempt(ctx, section, "final", prompt.FinalAttempt(text))
}

// WithRetry makes up to maxAttempts image requests, cycling prompt variations by attempt.
func (g *Generator) WithRetry(ctx context.Context, section, text string, maxAttempts int) *llm.Image {
	var img *llm.Image
	b := Backoff{MaxAttempts: maxAttempts, Delay: g.policy.RetryDelay, Sleep: g.sleep}
	b.Do(ctx, func(ctx context.Context, attempt int) bool {
		img = g.attempt(ctx, section, attempt, prompt.Variation(attempt, text))
		return img != nil
	})
	return img
}

// TwoStep asks the text model for a short description, waits TwoStepDelay, then requests
// an image of that description.
func (g *Generator) TwoStep(ctx context.Context, section, text string) *llm.Image {
	if g.text == nil {
		return nil
	}
	callCtx, cancel := g.callContext(ctx)
	desc, err := g.text.GenerateText(callCtx, prompt.Describe(text))
	cancel()
	if err != nil || desc == "" {
		fields := map[string]any{"section": section, "attempt": "describe"}
		if err != nil {
			fields["error"] = err.Error()
		}
		telemetry.Warn("illustration.attempt_failed", fields)
		return nil
	}
	if err := g.sleep(ctx, g.policy.TwoStepDelay); err != nil {
		return nil
	}
	return g.attempt(ctx, section, "two_step", prompt.FromDescription(desc))
}

// attempt makes one image request. Errors are logged and reported as nil.
func (g *Generator) attempt(ctx context.Context, section string, attempt any, p string) *llm.Image {
	if g.image == nil {
		return nil
	}
	callCtx, cancel := g.callContext(ctx)
	defer cancel()

	started := time.Now()
	img, err := g.image.GenerateImage(callCtx, p)
	if err != nil || img == nil || len(img.Data) == 0 {
		fields := map[string]any{
			"section":     section,
			"attempt":     attempt,
			"duration_ms": time.Since(started).Milliseconds(),
		}
		if err != nil {
			fields["error"] = err.Error()
		}
		telemetry.Warn("illustration.attempt_failed", fields)
		return nil
	}
	return img
}

func (g *Generator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.policy.CallTimeout > 0 {
		return context.WithTimeout(ctx, g.policy.CallTimeout)
	}
	return context.WithCancel(ctx)
}
