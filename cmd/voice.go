package main

import (
	"context"
	"fmt"

	"github.com/daikw/protoeval/internal/config"
	"github.com/daikw/protoeval/internal/voice/provider"
	"github.com/urfave/cli/v3"
)

func voicesCommand() *cli.Command {
	return &cli.Command{
		Name:  "voices",
		Usage: "List voices offered by a narration provider",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "provider",
				Usage: "TTS provider: " + fmt.Sprint(provider.ListProviders()) + " (default: narration.provider)",
			},
			&cli.StringFlag{
				Name:  "region",
				Usage: "AWS region for Polly",
			},
			&cli.StringFlag{
				Name:  "language",
				Usage: "Language code filter, e.g. en-US",
			},
		},
		Action: handleListVoices,
	}
}

func handleListVoices(ctx context.Context, c *cli.Command) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	pc := cfg.Narration.Config
	if p := c.String("provider"); p != "" {
		pc.Provider = p
	}
	if r := c.String("region"); r != "" {
		pc.Region = r
	}
	if l := c.String("language"); l != "" {
		pc.Language = l
	}

	p, err := provider.New(ctx, pc)
	if err != nil {
		return err
	}

	voices, err := p.ListVoices(ctx)
	if err != nil {
		return fmt.Errorf("failed to list voices: %w", err)
	}

	if len(voices) == 0 {
		fmt.Println("No voices available")
		return nil
	}

	fmt.Printf("Available voices for provider '%s':\n", p.Name())
	for _, v := range voices {
		fmt.Printf("  - %s (%s) - %s\n", v.ID, v.Language, v.Description)
	}
	return nil
}
