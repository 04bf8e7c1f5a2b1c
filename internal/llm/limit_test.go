package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLimiterDisabled(t *testing.T) {
	assert.Nil(t, NewLimiter(0))
	assert.Nil(t, NewLimiter(-3))
}

func TestLimitTextPassesThroughWithoutLimiter(t *testing.T) {
	base := TextFunc(func(ctx context.Context, prompt string) (string, error) { return "ok:" + prompt, nil })
	got, err := LimitText(base, nil).GenerateText(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok:p", got)
}

func TestLimitImageStopsOnCanceledContext(t *testing.T) {
	calls := 0
	base := ImageFunc(func(ctx context.Context, prompt string) (*Image, error) {
		calls++
		return &Image{Data: []byte("x")}, nil
	})
	limited := LimitImage(base, NewLimiter(1))

	_, err := limited.GenerateImage(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = limited.GenerateImage(ctx, "second")
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
