package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"go.uber.org/automaxprocs/maxprocs"
)

var (
	version  = "dev"
	revision = "none"
)

func main() {
	// Setup logger
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	app := &cli.Command{
		Name:  "protoeval",
		Usage: "Evaluate prototype screens through the eyes of synthetic personas",
		Description: `protoeval sends one prototype screenshot (or two, for an A/B comparison)
to a multimodal model once per persona and shows each persona's critique.
Run 'protoeval serve' for the browser UI.`,
		Version: fmt.Sprintf("%s (rev: %s)", version, revision),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"V"},
				Usage:   "Enable verbose logging",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (default: ./protoeval.yaml if present)",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			evaluateCommand(),
			personasCommand(),
			voicesCommand(),
			mcpCommand(),
			configCommand(),
		},
		Before: func(ctx context.Context, c *cli.Command) error {
			if c.Bool("verbose") {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
			if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
				log.Debug().Msgf(format, args...)
			})); err != nil {
				log.Warn().Err(err).Msg("Failed to set GOMAXPROCS")
			}
			return nil
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("Failed to run application")
	}
}
