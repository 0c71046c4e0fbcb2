package main

import (
	"context"

	"github.com/daikw/protoeval/internal/mcpserver"
	"github.com/urfave/cli/v3"
)

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve persona evaluation as MCP tools over stdio",
		Flags: append(modelFlags(),
			&cli.StringFlag{
				Name:  "api-key",
				Usage: "API key for the model provider (or use the provider's environment variable)",
			},
		),
		Action: handleMCP,
	}
}

func handleMCP(ctx context.Context, c *cli.Command) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	apiKey, err := resolveAPIKey(c, cfg.Model.Provider)
	if err != nil {
		return err
	}
	svc, err := newService(ctx, cfg, apiKey)
	if err != nil {
		return err
	}

	return mcpserver.New(catalog, svc, version).ServeStdio()
}
