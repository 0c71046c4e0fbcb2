package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/daikw/protoeval/internal/imagesource"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiClient is the subset of the genai models service used here
type GeminiClient interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiProvider implements Completer for the Gemini API
type GeminiProvider struct {
	client  GeminiClient
	model   string
	timeout time.Duration
}

// NewGeminiProvider creates a new Gemini completion provider
func NewGeminiProvider(ctx context.Context, apiKey, model string, timeout time.Duration) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return NewGeminiProviderWithClient(client.Models, model, timeout), nil
}

// NewGeminiProviderWithClient creates a Gemini provider with a custom client (for testing)
func NewGeminiProviderWithClient(client GeminiClient, model string, timeout time.Duration) *GeminiProvider {
	if model == "" {
		model = DefaultGeminiModel
	}
	if timeout <= 0 {
		timeout = DefaultRemoteTimeout
	}
	return &GeminiProvider{client: client, model: model, timeout: timeout}
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return ProviderGemini
}

// geminiModelName converts a bare or namespaced model id into a resource name
func geminiModelName(m string) string {
	if strings.HasPrefix(m, "models/") {
		return m
	}
	return "models/" + strings.TrimPrefix(m, "google/")
}

// Complete sends a generateContent request with the prompt followed by inline images
func (p *GeminiProvider) Complete(ctx context.Context, prompt string, images []*imagesource.CapturedImage, maxTokens int) (string, error) {
	if err := validateRequest(p.Name(), prompt, images, maxTokens); err != nil {
		return "", err
	}

	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	for _, img := range images {
		data, err := img.Bytes()
		if err != nil {
			return "", &RemoteCallError{Provider: p.Name(), Kind: KindRequest, Err: err}
		}
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: img.MIME, Data: data}})
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	log.Debug().
		Str("model", p.model).
		Int("images", len(images)).
		Int("max_tokens", maxTokens).
		Msg("Making Gemini completion request")

	resp, err := p.client.GenerateContent(ctx, geminiModelName(p.model), contents, &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens),
	})
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", &RemoteCallError{Provider: p.Name(), Kind: kindForStatus(apiErr.Code), Status: apiErr.Code, Err: err}
		}
		return "", transportError(p.Name(), err)
	}

	var out strings.Builder
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part != nil && part.Text != "" {
				out.WriteString(part.Text)
			}
		}
	}
	text := out.String()
	if strings.TrimSpace(text) == "" {
		return "", &RemoteCallError{Provider: p.Name(), Kind: KindMalformed, Err: errors.New("no text returned by model")}
	}
	return text, nil
}
