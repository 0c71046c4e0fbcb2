package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func personasCommand() *cli.Command {
	return &cli.Command{
		Name:    "personas",
		Aliases: []string{"ls"},
		Usage:   "List available personas",
		Action:  handleListPersonas,
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List available personas",
				Action: handleListPersonas,
			},
			{
				Name:      "show",
				Usage:     "Show details of a specific persona",
				ArgsUsage: "<persona>",
				Action:    handleShowPersona,
			},
		},
	}
}

func handleListPersonas(ctx context.Context, c *cli.Command) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	defaults := make(map[string]bool)
	for _, name := range catalog.DefaultSelection() {
		defaults[name] = true
	}

	fmt.Println("Available personas (* = selected by default):")
	for _, p := range catalog.Profiles() {
		marker := " "
		if defaults[p.Name] {
			marker = "*"
		}
		fmt.Printf(" %s %-12s %s\n", marker, p.Name, p.Description)
	}
	return nil
}

func handleShowPersona(ctx context.Context, c *cli.Command) error {
	name := c.Args().Get(0)
	if name == "" {
		return fmt.Errorf("persona name is required")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	p, err := catalog.Lookup(name)
	if err != nil {
		return err
	}

	fmt.Printf("Name:            %s\n", p.Name)
	fmt.Printf("Description:     %s\n", p.Description)
	fmt.Printf("Characteristics: %s\n", p.Characteristics)
	if p.Voice != "" {
		fmt.Printf("Voice:           %s\n", p.Voice)
	}
	return nil
}
