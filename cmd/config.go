package main

import (
	"context"
	"fmt"
	"os"

	"github.com/daikw/protoeval/internal/config"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect or create the configuration file",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective configuration (secrets masked)",
				Action: handleConfigShow,
			},
			{
				Name:   "init",
				Usage:  "Write an example " + config.DefaultFileName,
				Action: handleConfigInit,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Overwrite an existing file",
					},
				},
			},
		},
	}
}

func handleConfigShow(ctx context.Context, c *cli.Command) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	output, err := yaml.Marshal(cfg.MaskSecrets())
	if err != nil {
		return fmt.Errorf("failed to format config: %w", err)
	}

	fmt.Println("Effective configuration (secrets masked):")
	fmt.Println(string(output))
	return nil
}

func handleConfigInit(ctx context.Context, c *cli.Command) error {
	path := c.String("config")
	if path == "" {
		path = config.DefaultFileName
	}

	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := os.WriteFile(path, []byte(config.Example()), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("✅ Created configuration: %s\n", path)
	fmt.Println("Use ${ENV_VAR} syntax for sensitive values like API keys.")
	return nil
}
