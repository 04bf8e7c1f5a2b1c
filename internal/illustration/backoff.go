package illustration

import (
	"context"
	"time"
)

// Sleeper pauses for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real-time Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Backoff runs sequential attempts with a fixed delay between them.
type Backoff struct {
	MaxAttempts int
	Delay       time.Duration
	Sleep       Sleeper
}

// Do calls fn with attempt = 0..MaxAttempts-1 until it returns true. It reports whether an
// attempt succeeded and how many attempts ran. The delay is applied only between attempts;
// a cancelled context stops the loop.
func (b Backoff) Do(ctx context.Context, fn func(ctx context.Context, attempt int) bool) (bool, int) {
	sleep := b.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	attempts := 0
	for attempt := 0; attempt < b.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, b.Delay); err != nil {
				return false, attempts
			}
		}
		attempts++
		if fn(ctx, attempt) {
			return true, attempts
		}
	}
	return false, attempts
}
