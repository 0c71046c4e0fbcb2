package model

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/daikw/protoeval/internal/imagesource"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/rs/zerolog/log"
)

const (
	OpenRouterBaseURL      = "https://openrouter.ai/api/v1"
	DefaultOpenRouterModel = "openai/gpt-4o"
)

// OpenRouterProvider implements Completer for any OpenAI-compatible endpoint
// through the official SDK. OpenRouter is the default target.
type OpenRouterProvider struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

// OpenRouterOption is a functional option for configuring OpenRouterProvider
type OpenRouterOption func(*openRouterSettings)

type openRouterSettings struct {
	baseURL string
	model   string
	timeout time.Duration
}

// WithOpenRouterBaseURL overrides the API base URL
func WithOpenRouterBaseURL(baseURL string) OpenRouterOption {
	return func(s *openRouterSettings) {
		if baseURL != "" {
			s.baseURL = baseURL
		}
	}
}

// WithOpenRouterModel sets the model name
func WithOpenRouterModel(model string) OpenRouterOption {
	return func(s *openRouterSettings) {
		if model != "" {
			s.model = model
		}
	}
}

// WithOpenRouterTimeout sets the per-request timeout
func WithOpenRouterTimeout(timeout time.Duration) OpenRouterOption {
	return func(s *openRouterSettings) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// NewOpenRouterProvider creates a new OpenRouter completion provider
func NewOpenRouterProvider(apiKey string, opts ...OpenRouterOption) *OpenRouterProvider {
	s := openRouterSettings{
		baseURL: OpenRouterBaseURL,
		model:   DefaultOpenRouterModel,
		timeout: DefaultRemoteTimeout,
	}
	for _, opt := range opts {
		opt(&s)
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(s.baseURL),
		option.WithMaxRetries(0),
		option.WithHeader("X-Title", "protoeval"),
	)

	return &OpenRouterProvider{
		client:  client,
		model:   s.model,
		timeout: s.timeout,
	}
}

// Name returns the provider name
func (p *OpenRouterProvider) Name() string {
	return ProviderOpenRouter
}

// Complete sends a chat completion request with the prompt followed by the images
func (p *OpenRouterProvider) Complete(ctx context.Context, prompt string, images []*imagesource.CapturedImage, maxTokens int) (string, error) {
	if err := validateRequest(p.Name(), prompt, images, maxTokens); err != nil {
		return "", err
	}

	parts := []openai.ChatCompletionContentPartUnionParam{openai.TextContentPart(prompt)}
	for _, img := range images {
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: img.DataURL(),
		}))
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	log.Debug().
		Str("model", p.model).
		Int("images", len(images)).
		Int("max_tokens", maxTokens).
		Msg("Making OpenRouter completion request")

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(parts),
		},
		MaxTokens: openai.Int(int64(maxTokens)),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &RemoteCallError{
				Provider: p.Name(),
				Kind:     kindForStatus(apiErr.StatusCode),
				Status:   apiErr.StatusCode,
				Err:      err,
			}
		}
		return "", transportError(p.Name(), err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", &RemoteCallError{Provider: p.Name(), Kind: KindMalformed, Err: errors.New("no text returned by model")}
	}

	return resp.Choices[0].Message.Content, nil
}
