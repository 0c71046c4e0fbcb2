package main

import (
	"context"
	"fmt"

	"github.com/daikw/protoeval/internal/config"
	"github.com/daikw/protoeval/internal/evaluation"
	"github.com/daikw/protoeval/internal/model"
	"github.com/daikw/protoeval/internal/persona"
	"github.com/daikw/protoeval/internal/voice"
	"github.com/daikw/protoeval/internal/voice/provider"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

// modelFlags override the model section of the config file
func modelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "provider",
			Usage: "Model provider: openai, openrouter, gemini",
		},
		&cli.StringFlag{
			Name:  "model",
			Usage: "Model name (provider-specific)",
		},
	}
}

// loadConfig reads the config file and applies command-line overrides
func loadConfig(c *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if p := c.String("provider"); p != "" {
		cfg.Model.Provider = p
	}
	if m := c.String("model"); m != "" {
		cfg.Model.Model = m
	}
	return cfg, nil
}

func loadCatalog(cfg *config.Config) (*persona.Catalog, error) {
	return persona.LoadCatalog(cfg.Personas.Catalog)
}

// resolveAPIKey prefers the --api-key flag and falls back to the provider's env var
func resolveAPIKey(c *cli.Command, providerName string) (string, error) {
	if key := c.String("api-key"); key != "" {
		return key, nil
	}
	if key := model.KeyFromEnv(providerName); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("no API key: pass --api-key or set %s", model.APIKeyEnv(providerName))
}

// newService builds an evaluation service bound to one API key
func newService(ctx context.Context, cfg *config.Config, apiKey string) (*evaluation.Service, error) {
	factory, err := model.NewFactory(cfg.Model.Config, cfg.Model.RequestsPerMinute)
	if err != nil {
		return nil, err
	}
	completer, err := factory.New(ctx, apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", factory.Provider(), err)
	}
	log.Debug().Str("provider", completer.Name()).Msg("Created model client")
	return evaluationService(completer, cfg), nil
}

func evaluationService(completer model.Completer, cfg *config.Config) *evaluation.Service {
	return evaluation.NewService(completer, cfg.EvaluationOptions())
}

// newNarrator creates the narrator when narration is enabled or forced
func newNarrator(ctx context.Context, cfg *config.Config, force bool) (*voice.Narrator, error) {
	if !cfg.Narration.Enabled && !force {
		return nil, nil
	}
	p, err := provider.New(ctx, cfg.Narration.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to create narration provider: %w", err)
	}
	log.Debug().Str("provider", p.Name()).Msg("Narration enabled")
	return voice.NewNarrator(p, cfg.NarrationSettings()), nil
}
