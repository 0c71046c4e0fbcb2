package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/daikw/protoeval/internal/imagesource"
	"github.com/rs/zerolog/log"
)

const (
	OpenAIBaseURL        = "https://api.openai.com/v1"
	OpenAIChatEndpoint   = "/chat/completions"
	DefaultOpenAIModel   = "gpt-4o"
	DefaultRemoteTimeout = 60 * time.Second
)

// OpenAIProvider implements Completer for the OpenAI Chat Completions API
type OpenAIProvider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// OpenAIOption is a functional option for configuring OpenAIProvider
type OpenAIOption func(*OpenAIProvider)

// WithOpenAIBaseURL overrides the API base URL
func WithOpenAIBaseURL(baseURL string) OpenAIOption {
	return func(p *OpenAIProvider) {
		if baseURL != "" {
			p.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// WithOpenAIModel sets the model name
func WithOpenAIModel(model string) OpenAIOption {
	return func(p *OpenAIProvider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithOpenAITimeout sets the per-request timeout
func WithOpenAITimeout(timeout time.Duration) OpenAIOption {
	return func(p *OpenAIProvider) {
		if timeout > 0 {
			p.httpClient.Timeout = timeout
		}
	}
}

// NewOpenAIProvider creates a new OpenAI completion provider
func NewOpenAIProvider(apiKey string, opts ...OpenAIOption) *OpenAIProvider {
	p := &OpenAIProvider{
		apiKey:  apiKey,
		baseURL: OpenAIBaseURL,
		model:   DefaultOpenAIModel,
		httpClient: &http.Client{
			Timeout: DefaultRemoteTimeout,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return ProviderOpenAI
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// OpenAIError represents an error body from the OpenAI API
type OpenAIError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

func (e OpenAIError) String() string {
	return fmt.Sprintf("OpenAI API Error: %s (type: %s, code: %s)", e.Error.Message, e.Error.Type, e.Error.Code)
}

// Complete sends a chat completion request with the prompt followed by the images
func (p *OpenAIProvider) Complete(ctx context.Context, prompt string, images []*imagesource.CapturedImage, maxTokens int) (string, error) {
	if err := validateRequest(p.Name(), prompt, images, maxTokens); err != nil {
		return "", err
	}

	parts := make([]contentPart, 0, len(images)+1)
	parts = append(parts, contentPart{Type: "text", Text: prompt})
	for _, img := range images {
		parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: img.DataURL()}})
	}

	body, err := json.Marshal(chatRequest{
		Model:     p.model,
		Messages:  []chatMessage{{Role: "user", Content: parts}},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", &RemoteCallError{Provider: p.Name(), Kind: KindRequest, Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	endpoint := p.baseURL + OpenAIChatEndpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &RemoteCallError{Provider: p.Name(), Kind: KindRequest, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	log.Debug().
		Str("endpoint", endpoint).
		Str("model", p.model).
		Int("images", len(images)).
		Int("max_tokens", maxTokens).
		Msg("Making OpenAI completion request")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", transportError(p.Name(), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", transportError(p.Name(), err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr OpenAIError
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.String()
		}
		return "", &RemoteCallError{
			Provider: p.Name(),
			Kind:     kindForStatus(resp.StatusCode),
			Status:   resp.StatusCode,
			Err:      errors.New(msg),
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", &RemoteCallError{Provider: p.Name(), Kind: KindMalformed, Status: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", &RemoteCallError{Provider: p.Name(), Kind: KindMalformed, Status: resp.StatusCode, Err: errors.New("no text returned by model")}
	}

	log.Debug().Int("status", resp.StatusCode).Msg("OpenAI completion request successful")
	return parsed.Choices[0].Message.Content, nil
}
