package model

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/daikw/protoeval/internal/imagesource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestListProviders(t *testing.T) {
	assert.Equal(t, []string{"openai", "openrouter", "gemini"}, ListProviders())
}

func TestAPIKeyEnv(t *testing.T) {
	assert.Equal(t, "OPENAI_API_KEY", APIKeyEnv("openai"))
	assert.Equal(t, "OPENROUTER_API_KEY", APIKeyEnv("openrouter"))
	assert.Equal(t, "GEMINI_API_KEY", APIKeyEnv("gemini"))

	t.Setenv("OPENROUTER_API_KEY", "from-env")
	assert.Equal(t, "from-env", KeyFromEnv("openrouter"))
}

func TestFactory(t *testing.T) {
	t.Run("defaults to openai", func(t *testing.T) {
		f, err := NewFactory(Config{}, 0)
		require.NoError(t, err)
		assert.Equal(t, "openai", f.Provider())

		c, err := f.New(context.Background(), "k")
		require.NoError(t, err)
		_, ok := c.(*OpenAIProvider)
		assert.True(t, ok)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewFactory(Config{Provider: "carrier-pigeon"}, 0)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unknown provider")
	})

	t.Run("missing key", func(t *testing.T) {
		f, err := NewFactory(Config{Provider: ProviderOpenRouter}, 0)
		require.NoError(t, err)
		_, err = f.New(context.Background(), "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "API key is required")
	})

	t.Run("openrouter with pacing", func(t *testing.T) {
		f, err := NewFactory(Config{Provider: ProviderOpenRouter, Model: "m", Timeout: time.Second}, 30)
		require.NoError(t, err)
		c, err := f.New(context.Background(), "k")
		require.NoError(t, err)
		paced, ok := c.(*PacedCompleter)
		require.True(t, ok)
		assert.Equal(t, "openrouter", paced.Name())
	})
}

type stubCompleter struct {
	calls int
}

func (s *stubCompleter) Name() string { return "stub" }

func (s *stubCompleter) Complete(ctx context.Context, prompt string, images []*imagesource.CapturedImage, maxTokens int) (string, error) {
	s.calls++
	return "ok", nil
}

func TestPacedCompleter(t *testing.T) {
	stub := &stubCompleter{}
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	paced := Paced(stub, limiter)

	text, err := paced.Complete(context.Background(), "p", nil, 1)
	require.NoError(t, err)
	assert.Equal(t, "ok", text)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = paced.Complete(ctx, "p", nil, 1)

	var rce *RemoteCallError
	require.True(t, errors.As(err, &rce))
	assert.Equal(t, KindTimeout, rce.Kind)
	assert.Equal(t, 1, stub.calls)
}
