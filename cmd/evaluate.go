package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/daikw/protoeval/internal/evaluation"
	"github.com/daikw/protoeval/internal/imagesource"
	"github.com/daikw/protoeval/internal/voice"
	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

func evaluateCommand() *cli.Command {
	return &cli.Command{
		Name:      "evaluate",
		Aliases:   []string{"eval", "e"},
		Usage:     "Evaluate one screenshot, or compare two, from the command line",
		ArgsUsage: "<image> [image-b]",
		Flags: append(modelFlags(),
			&cli.StringFlag{
				Name:  "api-key",
				Usage: "API key for the model provider (or use the provider's environment variable)",
			},
			&cli.StringSliceFlag{
				Name:    "personas",
				Aliases: []string{"p"},
				Usage:   "Persona names, in order (default: the catalog's default selection)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print results as JSON",
			},
			&cli.StringFlag{
				Name:  "narrate",
				Usage: "Write one narration audio file per persona into this directory",
			},
		),
		Action: handleEvaluate,
	}
}

func handleEvaluate(ctx context.Context, c *cli.Command) error {
	paths := c.Args().Slice()
	if len(paths) < 1 || len(paths) > 2 {
		return fmt.Errorf("expected one image, or two for an A/B comparison, got %d", len(paths))
	}
	mode := evaluation.ModeSingle
	if len(paths) == 2 {
		mode = evaluation.ModeComparison
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	names := c.StringSlice("personas")
	if len(names) == 0 {
		names = catalog.DefaultSelection()
	}
	profiles, err := catalog.Resolve(names)
	if err != nil {
		return err
	}

	images := make([]*imagesource.CapturedImage, 0, len(paths))
	for _, p := range paths {
		img, err := imagesource.LoadFile(p)
		if err != nil {
			return err
		}
		images = append(images, img)
	}

	apiKey, err := resolveAPIKey(c, cfg.Model.Provider)
	if err != nil {
		return err
	}
	svc, err := newService(ctx, cfg, apiKey)
	if err != nil {
		return err
	}

	// Narration is set up before any model call
	dir := c.String("narrate")
	var narrator *voice.Narrator
	if dir != "" {
		narrator, err = newNarrator(ctx, cfg, true)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create narration directory: %w", err)
		}
	}

	results := svc.RunBatch(ctx, mode, images, profiles)

	if c.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return fmt.Errorf("failed to encode results: %w", err)
		}
	} else {
		printResults(os.Stdout, results)
	}

	if narrator != nil {
		for i, r := range results {
			if r.Failed {
				continue
			}
			path, err := narrator.WriteFile(ctx, dir, i, r, profiles[i])
			if err != nil {
				log.Error().Err(err).Str("persona", r.PersonaName).Msg("Narration failed")
				continue
			}
			fmt.Fprintf(os.Stderr, "🎵 Audio saved to: %s\n", path)
		}
	}

	if allFailed(results) {
		return fmt.Errorf("all %d evaluations failed", len(results))
	}
	return nil
}

// printResults writes one headed block per persona
func printResults(w io.Writer, results []evaluation.Result) {
	heading := color.New(color.FgCyan, color.Bold)
	failed := color.New(color.FgRed, color.Bold)
	stamp := color.New(color.Faint)

	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		h := heading
		if r.Failed {
			h = failed
		}
		h.Fprintf(w, "## %s", r.PersonaName)
		stamp.Fprintf(w, "  %s\n\n", r.Timestamp())
		fmt.Fprintln(w, r.Text)
	}
}

func allFailed(results []evaluation.Result) bool {
	if len(results) == 0 {
		return false
	}
	for _, r := range results {
		if !r.Failed {
			return false
		}
	}
	return true
}
