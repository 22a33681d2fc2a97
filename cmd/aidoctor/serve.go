package main

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	_ "github.com/nadzzz/aidoctor/docs"
	"github.com/nadzzz/aidoctor/internal/health"
	"github.com/nadzzz/aidoctor/internal/message"
	"github.com/nadzzz/aidoctor/internal/transport"
	grpctransport "github.com/nadzzz/aidoctor/internal/transport/grpc"
	httptransport "github.com/nadzzz/aidoctor/internal/transport/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the consultation service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func serve() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	slog.Info("aidoctor starting", "version", version)

	// Create root context with signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c, err := build(cfg)
	if err != nil {
		return err
	}

	// Initialize enabled transports. They share one concurrency limit.
	limiter := transport.NewLimiter(cfg.Server.MaxConcurrent)
	var transports []transport.Transport

	if cfg.Transports.HTTP.Enabled {
		transports = append(transports, httptransport.New(cfg.Transports.HTTP, limiter, c.artifacts, cfg.Server.ScratchDir))
	}
	if cfg.Transports.GRPC.Enabled {
		transports = append(transports, grpctransport.New(cfg.Transports.GRPC.Port, limiter, cfg.Server.ScratchDir))
	}

	if len(transports) == 0 {
		return errors.New("no transports enabled, enable at least one in config")
	}

	handle := func(ctx context.Context, req *message.Consultation) *message.ResultBundle {
		return c.coordinator.Run(ctx, req, nil)
	}

	// Expire old artifacts.
	go c.artifacts.Run(ctx, sweepInterval(cfg.Artifacts.TTL))

	// Start health check server.
	healthServer := health.New(cfg.Server.HealthPort, c.registry)
	go func() {
		if err := healthServer.ListenAndServe(ctx); err != nil {
			slog.Error("health server failed", "error", err)
		}
	}()

	// Start all transports.
	var wg sync.WaitGroup
	for _, t := range transports {
		wg.Add(1)
		go func(t transport.Transport) {
			defer wg.Done()
			slog.Info("starting transport", "name", t.Name())
			if err := t.Listen(ctx, handle); err != nil {
				slog.Error("transport failed", "name", t.Name(), "error", err)
			}
		}(t)
	}

	// Mark as ready once all transports are started.
	healthServer.SetReady(true)
	slog.Info("aidoctor ready",
		"transports", len(transports),
		"health_port", cfg.Server.HealthPort,
		"max_concurrent", cfg.Server.MaxConcurrent)

	// Block until shutdown signal.
	<-ctx.Done()
	healthServer.SetReady(false)
	slog.Info("shutdown signal received, draining...")

	// Close all transports gracefully.
	for _, t := range transports {
		if err := t.Close(); err != nil {
			slog.Error("transport close error", "name", t.Name(), "error", err)
		}
	}

	wg.Wait()
	slog.Info("aidoctor stopped")
	return nil
}

// sweepInterval checks for expired artifacts a few times per TTL.
func sweepInterval(ttl time.Duration) time.Duration {
	return max(ttl/4, time.Minute)
}
