package provider

import (
	"context"
	"fmt"
	"os"
)

// Config selects and configures a TTS provider
type Config struct {
	Provider string  `yaml:"provider"`
	APIKey   string  `yaml:"api_key"`
	BaseURL  string  `yaml:"base_url"`
	Region   string  `yaml:"region"`
	Voice    string  `yaml:"voice"`
	Language string  `yaml:"language"`
	Format   string  `yaml:"format"`
	Speed    float64 `yaml:"speed"`
	Engine   string  `yaml:"engine"`
}

// ListProviders returns available provider names
func ListProviders() []string {
	return []string{"openai", "polly", "gcp"}
}

// New creates a provider instance from configuration
func New(ctx context.Context, cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "openai":
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("OpenAI API key not found in config or OPENAI_API_KEY environment variable")
		}
		p := NewOpenAIProvider(apiKey)
		if cfg.BaseURL != "" {
			p.baseURL = cfg.BaseURL
		}
		return p, nil
	case "polly":
		return NewPollyProvider(ctx, cfg.Region)
	case "gcp":
		return NewGCPProvider(ctx, WithGCPVoice(cfg.Voice), WithGCPLanguage(cfg.Language))
	case "":
		return nil, fmt.Errorf("no narration provider configured")
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}

// Options returns the synthesis defaults carried by the configuration
func (c Config) Options() SynthesizeOptions {
	return SynthesizeOptions{
		Voice:    c.Voice,
		Speed:    c.Speed,
		Format:   c.Format,
		Language: c.Language,
		Engine:   c.Engine,
	}
}
