package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/daikw/protoeval/internal/evaluation"
	"github.com/daikw/protoeval/internal/imagesource"
	"github.com/daikw/protoeval/internal/model"
	"github.com/daikw/protoeval/internal/session"
	"github.com/daikw/protoeval/internal/voice"
	"github.com/daikw/protoeval/internal/voice/provider"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is looked up in the working directory when no path is given
const DefaultFileName = "protoeval.yaml"

// Config is the full protoeval configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Model      ModelConfig      `yaml:"model"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Personas   PersonasConfig   `yaml:"personas"`
	Narration  NarrationConfig  `yaml:"narration"`
}

// ServerConfig configures the web UI
type ServerConfig struct {
	Addr          string        `yaml:"addr"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	PreviewWidth  int           `yaml:"preview_width"`
	PreviewHeight int           `yaml:"preview_height"`
	MaxUploadMB   int64         `yaml:"max_upload_mb"`
}

// ModelConfig selects the completion provider
type ModelConfig struct {
	model.Config `yaml:",inline"`

	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// EvaluationConfig tunes prompts and batching
type EvaluationConfig struct {
	SingleMaxTokens     int `yaml:"single_max_tokens"`
	ComparisonMaxTokens int `yaml:"comparison_max_tokens"`
	Concurrency         int `yaml:"concurrency"`
}

// PersonasConfig points at an optional persona catalog file
type PersonasConfig struct {
	Catalog string `yaml:"catalog"`
}

// NarrationConfig configures optional text-to-speech of results
type NarrationConfig struct {
	provider.Config `yaml:",inline"`

	Enabled     bool   `yaml:"enabled"`
	ReadingMode string `yaml:"reading_mode"`
	MaxChars    int    `yaml:"max_chars"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:          "127.0.0.1:8501",
			SessionTTL:    session.DefaultTTL,
			SweepInterval: session.DefaultSweepInterval,
			PreviewWidth:  imagesource.DefaultPreviewWidth,
			PreviewHeight: imagesource.DefaultPreviewHeight,
			MaxUploadMB:   20,
		},
		Model: ModelConfig{
			Config: model.Config{
				Provider: model.ProviderOpenAI,
				Timeout:  model.DefaultRemoteTimeout,
			},
		},
		Evaluation: EvaluationConfig{
			SingleMaxTokens:     evaluation.DefaultSingleMaxTokens,
			ComparisonMaxTokens: evaluation.DefaultComparisonMaxTokens,
			Concurrency:         1,
		},
		Narration: NarrationConfig{
			Config: provider.Config{
				Provider: "openai",
				Format:   provider.FormatMP3,
			},
			ReadingMode: string(voice.ReadCharLimit),
			MaxChars:    voice.DefaultMaxChars,
		},
	}
}

// Load reads configuration from path. An empty path tries DefaultFileName and
// falls back to defaults when it does not exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			log.Debug().Msg("No config file found, using defaults")
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	log.Debug().Str("path", path).Msg("Loaded config file")
	return cfg, nil
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values
func expandEnvVars(input string) string {
	return envPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := match[2 : len(match)-1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		// Don't log variable names for security reasons
		log.Debug().Msg("Referenced environment variable not set in config")
		return ""
	})
}

// Validate checks values that cannot be defaulted
func (c *Config) Validate() error {
	var problems []string

	if !contains(model.ListProviders(), c.Model.Provider) {
		problems = append(problems, fmt.Sprintf("model.provider: unknown provider %q", c.Model.Provider))
	}
	if c.Model.Timeout <= 0 {
		problems = append(problems, "model.timeout must be positive")
	}
	if c.Model.RequestsPerMinute < 0 {
		problems = append(problems, "model.requests_per_minute cannot be negative")
	}
	if c.Evaluation.SingleMaxTokens <= 0 || c.Evaluation.ComparisonMaxTokens <= 0 {
		problems = append(problems, "evaluation max tokens must be positive")
	}
	if c.Server.PreviewWidth <= 0 || c.Server.PreviewHeight <= 0 {
		problems = append(problems, "server preview bounds must be positive")
	}
	if c.Server.MaxUploadMB <= 0 {
		problems = append(problems, "server.max_upload_mb must be positive")
	}
	if c.Narration.Enabled {
		if !contains(provider.ListProviders(), c.Narration.Provider) {
			problems = append(problems, fmt.Sprintf("narration.provider: unknown provider %q", c.Narration.Provider))
		}
		switch voice.ReadingMode(c.Narration.ReadingMode) {
		case voice.ReadFull, voice.ReadFirstLine, voice.ReadCharLimit:
		default:
			problems = append(problems, fmt.Sprintf("narration.reading_mode: unknown mode %q", c.Narration.ReadingMode))
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// NarrationSettings converts the narration section into narrator settings
func (c *Config) NarrationSettings() voice.Settings {
	return voice.Settings{
		Mode:     voice.ReadingMode(c.Narration.ReadingMode),
		MaxChars: c.Narration.MaxChars,
		Options:  c.Narration.Options(),
	}
}

// EvaluationOptions converts the evaluation section into service options
func (c *Config) EvaluationOptions() evaluation.Options {
	return evaluation.Options{
		SingleMaxTokens:     c.Evaluation.SingleMaxTokens,
		ComparisonMaxTokens: c.Evaluation.ComparisonMaxTokens,
		Concurrency:         c.Evaluation.Concurrency,
	}
}

// MaskSecrets returns a copy with API keys hidden, for display
func (c *Config) MaskSecrets() *Config {
	masked := *c
	if masked.Narration.APIKey != "" {
		masked.Narration.APIKey = "***"
	}
	return &masked
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// Example returns a commented example configuration
func Example() string {
	return `# protoeval configuration
server:
  addr: 127.0.0.1:8501
  session_ttl: 24h
  preview_width: 300
  preview_height: 150
  max_upload_mb: 20

model:
  provider: openai          # openai, openrouter, gemini
  model: gpt-4o
  timeout: 60s
  requests_per_minute: 0    # 0 disables pacing

evaluation:
  single_max_tokens: 1000
  comparison_max_tokens: 1200
  concurrency: 1

personas:
  catalog: ""               # optional YAML persona catalog

narration:
  enabled: false
  provider: openai          # openai, polly, gcp
  api_key: ${OPENAI_API_KEY}
  voice: alloy
  format: mp3
  reading_mode: char_limit
  max_chars: 1500
`
}
