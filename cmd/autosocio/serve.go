package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/autosocio/internal/api"
	"github.com/MikeSquared-Agency/autosocio/internal/hermes"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the NATS request handler",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("autosocio starting", zap.Int("port", cfg.Port), zap.String("provider", cfg.LLMProvider))

	a, err := buildApp(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer a.close()

	if a.hermes != nil {
		if err := a.hermes.Subscribe(hermes.SubjectRequests, a.processor.HandleRequest); err != nil {
			return err
		}
		logger.Info("listening for requests", zap.String("subject", hermes.SubjectRequests))
	} else {
		logger.Warn("NATS not configured, running HTTP only")
	}

	var opts []api.Option
	if a.hermes != nil {
		opts = append(opts, api.WithBus(a.hermes.Connected))
	}
	if cfg.MetricsEnabled {
		opts = append(opts, api.WithMetrics(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))
	}
	srv := api.NewServer(cfg.Port, cfg.APIToken, a.processor, a.catalog, logger.Named("api"), opts...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("autosocio stopped")
	return nil
}
