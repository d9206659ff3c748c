package main

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nadzzz/shouldi/internal/config"
	"github.com/nadzzz/shouldi/internal/gateway"
	"github.com/nadzzz/shouldi/internal/health"
	"github.com/nadzzz/shouldi/internal/transport"
	grpctransport "github.com/nadzzz/shouldi/internal/transport/grpc"
	httptransport "github.com/nadzzz/shouldi/internal/transport/http"
)

func newServeCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and gRPC analysis servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configFile)
			if err != nil {
				return err
			}
			config.SetupLogging(cfg.Logging)
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg *config.Config) error {
	slog.Info("shouldi starting", "version", version)

	// Root context with signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(contextOrBackground(parent), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	comps, err := build(cfg)
	if err != nil {
		return err
	}
	defer comps.Close()

	var transports []transport.Transport
	if cfg.Transports.GRPC.Enabled {
		transports = append(transports, grpctransport.New(cfg.Transports.GRPC.Port))
	}
	if cfg.Transports.HTTP.Enabled {
		transports = append(transports, httptransport.New(cfg.Transports.HTTP.Port))
	}
	if len(transports) == 0 {
		return errors.New("no transports enabled, enable at least one in config")
	}

	healthServer := health.New(cfg.Server.HealthPort)
	if p, ok := comps.gateway.(gateway.Pinger); ok {
		healthServer.AddCheck("model", p.Ping)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return healthServer.ListenAndServe(gctx)
	})
	for _, t := range transports {
		g.Go(func() error {
			slog.Info("starting transport", "name", t.Name())
			return t.Listen(gctx, comps.analyzer.Analyze)
		})
	}

	healthServer.SetReady(true)
	slog.Info("shouldi ready",
		"transports", len(transports),
		"health_port", cfg.Server.HealthPort)

	err = g.Wait()
	healthServer.SetReady(false)
	if err != nil {
		slog.Error("server failed", "error", err)
		return err
	}
	slog.Info("shouldi stopped")
	return nil
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
