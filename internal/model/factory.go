package model

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/time/rate"
)

// Provider names
const (
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
)

// Config selects and configures a completion provider
type Config struct {
	Provider string        `yaml:"provider"`
	Model    string        `yaml:"model"`
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
}

// ListProviders returns available provider names
func ListProviders() []string {
	return []string{ProviderOpenAI, ProviderOpenRouter, ProviderGemini}
}

// APIKeyEnv returns the environment variable consulted for a provider's key
func APIKeyEnv(provider string) string {
	switch provider {
	case ProviderOpenRouter:
		return "OPENROUTER_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}

// KeyFromEnv reads the provider's API key from the environment
func KeyFromEnv(provider string) string {
	return os.Getenv(APIKeyEnv(provider))
}

// Factory builds completers for a fixed provider configuration. Every
// completer it creates shares one request limiter.
type Factory struct {
	cfg     Config
	limiter *rate.Limiter
}

// NewFactory creates a factory. requestsPerMinute <= 0 disables pacing.
func NewFactory(cfg Config, requestsPerMinute int) (*Factory, error) {
	if cfg.Provider == "" {
		cfg.Provider = ProviderOpenAI
	}
	if !isKnownProvider(cfg.Provider) {
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
	f := &Factory{cfg: cfg}
	if requestsPerMinute > 0 {
		f.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), requestsPerMinute)
	}
	return f, nil
}

// Provider returns the configured provider name
func (f *Factory) Provider() string {
	return f.cfg.Provider
}

// New creates a completer bound to the given API key
func (f *Factory) New(ctx context.Context, apiKey string) (Completer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s API key is required", f.cfg.Provider)
	}

	var c Completer
	switch f.cfg.Provider {
	case ProviderOpenAI:
		c = NewOpenAIProvider(apiKey,
			WithOpenAIBaseURL(f.cfg.BaseURL),
			WithOpenAIModel(f.cfg.Model),
			WithOpenAITimeout(f.cfg.Timeout),
		)
	case ProviderOpenRouter:
		c = NewOpenRouterProvider(apiKey,
			WithOpenRouterBaseURL(f.cfg.BaseURL),
			WithOpenRouterModel(f.cfg.Model),
			WithOpenRouterTimeout(f.cfg.Timeout),
		)
	case ProviderGemini:
		g, err := NewGeminiProvider(ctx, apiKey, f.cfg.Model, f.cfg.Timeout)
		if err != nil {
			return nil, err
		}
		c = g
	default:
		return nil, fmt.Errorf("unknown provider: %s", f.cfg.Provider)
	}

	if f.limiter != nil {
		c = Paced(c, f.limiter)
	}
	return c, nil
}

func isKnownProvider(name string) bool {
	for _, p := range ListProviders() {
		if p == name {
			return true
		}
	}
	return false
}
