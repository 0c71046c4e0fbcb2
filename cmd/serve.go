package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/daikw/protoeval/internal/model"
	"github.com/daikw/protoeval/internal/session"
	"github.com/daikw/protoeval/internal/web"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the browser UI",
		Flags: append(modelFlags(),
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (overrides server.addr)",
			},
			&cli.BoolFlag{
				Name:  "env-key",
				Usage: "Prefill every new session with the API key from the environment",
			},
		),
		Action: handleServe,
	}
}

func handleServe(ctx context.Context, c *cli.Command) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if addr := c.String("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	factory, err := model.NewFactory(cfg.Model.Config, cfg.Model.RequestsPerMinute)
	if err != nil {
		return err
	}
	newEvaluator := func(ctx context.Context, credential string) (session.Evaluator, error) {
		completer, err := factory.New(ctx, credential)
		if err != nil {
			return nil, err
		}
		return evaluationService(completer, cfg), nil
	}

	var envKey string
	if c.Bool("env-key") {
		envKey = model.KeyFromEnv(factory.Provider())
		if envKey == "" {
			log.Warn().Str("env", model.APIKeyEnv(factory.Provider())).Msg("--env-key given but the variable is empty")
		}
	}

	registry := session.NewRegistry(cfg.Server.SessionTTL, func() *session.Controller {
		ctrl := session.NewController(catalog, newEvaluator)
		if envKey != "" {
			ctrl.SetCredential(envKey)
		}
		return ctrl
	})

	narrator, err := newNarrator(ctx, cfg, false)
	if err != nil {
		return err
	}

	srv := web.New(web.Options{
		Registry:       registry,
		Catalog:        catalog,
		Narrator:       narrator,
		PreviewWidth:   cfg.Server.PreviewWidth,
		PreviewHeight:  cfg.Server.PreviewHeight,
		MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		registry.Run(ctx, cfg.Server.SweepInterval)
		return nil
	})
	g.Go(func() error {
		log.Info().
			Str("addr", cfg.Server.Addr).
			Str("provider", factory.Provider()).
			Bool("narration", narrator != nil).
			Msg("Serving protoeval")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info().Msg("Shutting down")
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
