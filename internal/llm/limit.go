package llm

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// NewLimiter returns a limiter allowing perMinute calls with a burst of one, or nil when
// perMinute is not positive.
func NewLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

// LimitText waits on l before each call. A nil limiter returns g unchanged.
func LimitText(g TextGenerator, l *rate.Limiter) TextGenerator {
	if l == nil || g == nil {
		return g
	}
	return TextFunc(func(ctx context.Context, prompt string) (string, error) {
		if err := l.Wait(ctx); err != nil {
			return "", err
		}
		return g.GenerateText(ctx, prompt)
	})
}

// LimitImage waits on l before each call. A nil limiter returns g unchanged.
func LimitImage(g ImageGenerator, l *rate.Limiter) ImageGenerator {
	if l == nil || g == nil {
		return g
	}
	return ImageFunc(func(ctx context.Context, prompt string) (*Image, error) {
		if err := l.Wait(ctx); err != nil {
			return nil, err
		}
		return g.GenerateImage(ctx, prompt)
	})
}
