package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIProvider(t *testing.T) {
	provider := NewOpenAIProvider("test-api-key")

	assert.NotNil(t, provider)
	assert.Equal(t, "test-api-key", provider.apiKey)
	assert.Equal(t, OpenAIBaseURL, provider.baseURL)
	assert.NotNil(t, provider.httpClient)
	assert.Equal(t, "openai", provider.Name())
}

func TestOpenAIProvider_ListVoices(t *testing.T) {
	provider := NewOpenAIProvider("test-api-key")

	voices, err := provider.ListVoices(context.Background())
	assert.NoError(t, err)
	assert.Len(t, voices, 6)

	voiceIDs := make(map[string]bool)
	for _, v := range voices {
		voiceIDs[v.ID] = true
	}
	for _, id := range []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"} {
		assert.True(t, voiceIDs[id], id)
	}
}

func TestOpenAIProvider_Synthesize(t *testing.T) {
	t.Run("returns error for empty text", func(t *testing.T) {
		provider := NewOpenAIProvider("test-api-key")

		_, err := provider.Synthesize(context.Background(), "", SynthesizeOptions{})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "text cannot be empty")
	})

	t.Run("successful synthesis with defaults", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "POST", r.Method)
			assert.Equal(t, OpenAITTSEndpoint, r.URL.Path)
			assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))

			var req speechRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "tts-1", req.Model)
			assert.Equal(t, "alloy", req.Voice)
			assert.Equal(t, "mp3", req.ResponseFormat)
			assert.Equal(t, 1.0, req.Speed)
			assert.Equal(t, "Overall impression eight", req.Input)

			w.WriteHeader(http.StatusOK)
			w.Write([]byte("mock audio data"))
		}))
		defer server.Close()

		provider := NewOpenAIProvider("test-api-key")
		provider.baseURL = server.URL

		reader, err := provider.Synthesize(context.Background(), "Overall impression eight", SynthesizeOptions{})
		require.NoError(t, err)
		defer reader.Close()

		data, err := io.ReadAll(reader)
		assert.NoError(t, err)
		assert.Equal(t, "mock audio data", string(data))
	})

	t.Run("handles API error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": {"message": "Invalid API key"}}`))
		}))
		defer server.Close()

		provider := NewOpenAIProvider("invalid-key")
		provider.baseURL = server.URL

		_, err := provider.Synthesize(context.Background(), "Hello", SynthesizeOptions{Voice: "nova"})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "status 401")
	})
}

func TestClampSpeed(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 1.0},
		{-1, 1.0},
		{0.1, 0.25},
		{1.5, 1.5},
		{9, 4.0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, clampSpeed(tt.in))
	}
}

func TestContentTypeAndExtension(t *testing.T) {
	assert.Equal(t, "audio/mpeg", ContentType(FormatMP3))
	assert.Equal(t, "audio/ogg", ContentType(FormatOgg))
	assert.Equal(t, "audio/wav", ContentType(FormatWAV))
	assert.Equal(t, "audio/mpeg", ContentType(""))
	assert.Equal(t, ".mp3", Extension(""))
	assert.Equal(t, ".ogg", Extension(FormatOgg))
}
