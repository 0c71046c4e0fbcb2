package model

import (
	"context"
	"errors"
	"testing"

	"github.com/daikw/protoeval/internal/imagesource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

// MockGeminiClient is a mock implementation of GeminiClient
type MockGeminiClient struct {
	mock.Mock
}

func (m *MockGeminiClient) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	args := m.Called(ctx, model, contents, config)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*genai.GenerateContentResponse), args.Error(1)
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{Role: genai.RoleModel}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func TestGeminiModelName(t *testing.T) {
	assert.Equal(t, "models/gemini-2.5-flash", geminiModelName("gemini-2.5-flash"))
	assert.Equal(t, "models/gemini-2.5-pro", geminiModelName("google/gemini-2.5-pro"))
	assert.Equal(t, "models/x", geminiModelName("models/x"))
}

func TestGeminiProvider_Complete(t *testing.T) {
	img := testImage(t)

	t.Run("sends text and inline images", func(t *testing.T) {
		mockClient := new(MockGeminiClient)
		mockClient.On("GenerateContent", mock.Anything, "models/gemini-2.5-flash",
			mock.MatchedBy(func(contents []*genai.Content) bool {
				if len(contents) != 1 || len(contents[0].Parts) != 3 {
					return false
				}
				parts := contents[0].Parts
				return parts[0].Text == "evaluate" &&
					parts[1].InlineData != nil && parts[1].InlineData.MIMEType == "image/png" &&
					parts[2].InlineData != nil
			}),
			mock.MatchedBy(func(cfg *genai.GenerateContentConfig) bool {
				return cfg != nil && cfg.MaxOutputTokens == 1200
			}),
		).Return(textResponse("Version A ", "is clearer."), nil)

		provider := NewGeminiProviderWithClient(mockClient, "", 0)
		assert.Equal(t, "gemini", provider.Name())

		text, err := provider.Complete(context.Background(), "evaluate", []*imagesource.CapturedImage{img, img}, 1200)
		require.NoError(t, err)
		assert.Equal(t, "Version A is clearer.", text)
		mockClient.AssertExpectations(t)
	})

	t.Run("api error is classified", func(t *testing.T) {
		mockClient := new(MockGeminiClient)
		mockClient.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, genai.APIError{Code: 403, Message: "API key not valid", Status: "PERMISSION_DENIED"})

		provider := NewGeminiProviderWithClient(mockClient, "gemini-2.5-pro", 0)
		_, err := provider.Complete(context.Background(), "p", []*imagesource.CapturedImage{img}, 10)

		var rce *RemoteCallError
		require.True(t, errors.As(err, &rce))
		assert.Equal(t, KindAuth, rce.Kind)
		assert.Equal(t, 403, rce.Status)
	})

	t.Run("deadline is a timeout", func(t *testing.T) {
		mockClient := new(MockGeminiClient)
		mockClient.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, context.DeadlineExceeded)

		provider := NewGeminiProviderWithClient(mockClient, "", 0)
		_, err := provider.Complete(context.Background(), "p", []*imagesource.CapturedImage{img}, 10)

		var rce *RemoteCallError
		require.True(t, errors.As(err, &rce))
		assert.Equal(t, KindTimeout, rce.Kind)
	})

	t.Run("no candidates", func(t *testing.T) {
		mockClient := new(MockGeminiClient)
		mockClient.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(&genai.GenerateContentResponse{}, nil)

		provider := NewGeminiProviderWithClient(mockClient, "", 0)
		_, err := provider.Complete(context.Background(), "p", []*imagesource.CapturedImage{img}, 10)

		var rce *RemoteCallError
		require.True(t, errors.As(err, &rce))
		assert.Equal(t, KindMalformed, rce.Kind)
	})
}
