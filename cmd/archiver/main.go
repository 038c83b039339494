// archiver connects to the push stream and persists message events to
// PostgreSQL in batches.
// Usage: go run ./cmd/archiver --config configs/concord.example.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"concord/internal/archive"
	"concord/internal/config"
	"concord/internal/dispatch"
	"concord/internal/gateway"
	"concord/internal/state"
)

func main() {
	configPath := flag.String("config", "configs/concord.example.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if !cfg.ArchiveEnabled() {
		logger.Error("archive.database is not configured")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	pool, err := archive.Connect(ctx, cfg.Archive.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected", "host", cfg.Archive.Database.Host, "name", cfg.Archive.Database.Name)

	writer := archive.NewWriter(archive.WriterConfig{
		BatchSize:     cfg.Archive.BatchSize,
		FlushInterval: cfg.Archive.FlushInterval,
	}, pool, logger)

	cache := state.NewCache()
	dispatcher := dispatch.NewDispatcher(cache, logger)
	dispatch.On(dispatcher, func(e dispatch.MessageCreate) {
		writer.Record(e.Message)
	})

	supervisor := gateway.NewSupervisor(gateway.SupervisorConfig{
		URL:                  cfg.Gateway.URL,
		Token:                cfg.API.Token,
		ReconnectBaseWait:    cfg.Gateway.ReconnectBaseDelay,
		ReconnectMaxWait:     cfg.Gateway.ReconnectMaxDelay,
		MaxReconnectAttempts: cfg.Gateway.MaxReconnectAttempts,
		FrameBufferSize:      cfg.Gateway.FrameBufferSize,
	}, logger)

	if err := writer.Start(ctx); err != nil {
		logger.Error("failed to start writer", "error", err)
		os.Exit(1)
	}
	if err := dispatcher.Start(ctx, supervisor.Frames()); err != nil {
		logger.Error("failed to start dispatcher", "error", err)
		os.Exit(1)
	}

	logger.Info("connecting to gateway", "url", cfg.Gateway.URL)
	if err := supervisor.Start(ctx); err != nil {
		logger.Error("failed to connect", "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)

	// Surface a permanent connection loss as a run error.
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case err := <-supervisor.Fatal():
			return err
		}
	})

	// Periodic stats.
	g.Go(func() error {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				ws := writer.Stats()
				ds := dispatcher.Stats()
				logger.Info("stats",
					"status", supervisor.Status(),
					"dispatched", ds.Dispatched,
					"inserts", ws.Inserts,
					"conflicts", ws.Conflicts,
					"flushes", ws.Flushes,
					"write_errors", ws.Errors,
				)
			}
		}
	})

	logger.Info("archiving messages - press Ctrl+C to stop")

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("archiver failed", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Info("shutting down...")
	supervisor.Stop(shutdownCtx)
	dispatcher.Stop(shutdownCtx)
	writer.Stop(shutdownCtx)

	logger.Info("shutdown complete")
}
