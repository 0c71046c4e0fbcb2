package model

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/daikw/protoeval/internal/imagesource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRouterProvider_Complete(t *testing.T) {
	t.Run("successful completion", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer or-key", r.Header.Get("Authorization"))
			assert.Equal(t, "protoeval", r.Header.Get("X-Title"))

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "google/gemini-2.5-flash", body["model"])
			assert.EqualValues(t, 1200, body["max_tokens"])

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"m","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Version B wins."}}]}`))
		}))
		defer server.Close()

		provider := NewOpenRouterProvider("or-key",
			WithOpenRouterBaseURL(server.URL),
			WithOpenRouterModel("google/gemini-2.5-flash"),
		)
		assert.Equal(t, "openrouter", provider.Name())

		img := testImage(t)
		text, err := provider.Complete(context.Background(), "compare", []*imagesource.CapturedImage{img, img}, 1200)
		require.NoError(t, err)
		assert.Equal(t, "Version B wins.", text)
	})

	t.Run("auth failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"message":"No auth credentials found","code":401}}`))
		}))
		defer server.Close()

		provider := NewOpenRouterProvider("bad", WithOpenRouterBaseURL(server.URL))
		_, err := provider.Complete(context.Background(), "p", []*imagesource.CapturedImage{testImage(t)}, 10)

		var rce *RemoteCallError
		require.True(t, errors.As(err, &rce))
		assert.Equal(t, KindAuth, rce.Kind)
		assert.Equal(t, http.StatusUnauthorized, rce.Status)
	})

	t.Run("empty choices", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"m","choices":[]}`))
		}))
		defer server.Close()

		provider := NewOpenRouterProvider("k", WithOpenRouterBaseURL(server.URL))
		_, err := provider.Complete(context.Background(), "p", []*imagesource.CapturedImage{testImage(t)}, 10)

		var rce *RemoteCallError
		require.True(t, errors.As(err, &rce))
		assert.Equal(t, KindMalformed, rce.Kind)
	})
}
