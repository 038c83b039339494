// watch connects to the push stream and prints synchronized events to
// the console.
// Usage: go run ./cmd/watch --config configs/concord.example.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"concord/internal/config"
	"concord/internal/dispatch"
	"concord/internal/gateway"
	"concord/internal/state"
)

func main() {
	configPath := flag.String("config", "configs/concord.example.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "log at debug level")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
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

	cache := state.NewCache()
	dispatcher := dispatch.NewDispatcher(cache, logger)
	registerPrinters(dispatcher)

	supervisor := gateway.NewSupervisor(gateway.SupervisorConfig{
		URL:                  cfg.Gateway.URL,
		Token:                cfg.API.Token,
		ReconnectBaseWait:    cfg.Gateway.ReconnectBaseDelay,
		ReconnectMaxWait:     cfg.Gateway.ReconnectMaxDelay,
		MaxReconnectAttempts: cfg.Gateway.MaxReconnectAttempts,
		FrameBufferSize:      cfg.Gateway.FrameBufferSize,
	}, logger)

	if err := dispatcher.Start(ctx, supervisor.Frames()); err != nil {
		logger.Error("failed to start dispatcher", "error", err)
		os.Exit(1)
	}

	logger.Info("connecting to gateway", "url", cfg.Gateway.URL)
	if err := supervisor.Start(ctx); err != nil {
		logger.Error("failed to connect", "error", err)
		os.Exit(1)
	}

	// Stats printer
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := dispatcher.Stats()
				logger.Info("stats",
					"status", supervisor.Status(),
					"dispatched", stats.Dispatched,
					"unknown", stats.UnknownEvents,
					"decode_errors", stats.DecodeErrors,
				)
			}
		}
	}()

	logger.Info("watching events - press Ctrl+C to stop")

	select {
	case <-ctx.Done():
	case err := <-supervisor.Fatal():
		logger.Error("connection lost", "error", err)
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Info("shutting down...")
	supervisor.Stop(shutdownCtx)
	dispatcher.Stop(shutdownCtx)

	logger.Info("shutdown complete")
}

func registerPrinters(d *dispatch.Dispatcher) {
	dispatch.On(d, func(e dispatch.Ready) {
		fmt.Printf("[READY] session=%s user=%s guilds=%d\n", e.SessionID, e.User.Username, len(e.Guilds))
	})
	dispatch.On(d, func(e dispatch.Resumed) {
		fmt.Println("[RESUMED]")
	})
	dispatch.On(d, func(e dispatch.GuildCreate) {
		fmt.Printf("[GUILD_CREATE] id=%s name=%q available=%v\n", e.Guild.ID, e.Guild.Name, e.Guild.Available)
	})
	dispatch.On(d, func(e dispatch.GuildDelete) {
		fmt.Printf("[GUILD_DELETE] id=%s unavailable=%v\n", e.GuildID, e.Unavailable)
	})
	dispatch.On(d, func(e dispatch.ChannelCreate) {
		fmt.Printf("[CHANNEL_CREATE] id=%s name=%q\n", e.Channel.ID, e.Channel.Name)
	})
	dispatch.On(d, func(e dispatch.MessageCreate) {
		fmt.Printf("[MESSAGE] channel=%s author=%s content=%q\n",
			e.Message.ChannelID, e.Message.Author.Username, e.Message.Content)
	})
	dispatch.On(d, func(e dispatch.MessageUpdate) {
		before := ""
		if e.Before != nil {
			before = e.Before.Content
		}
		fmt.Printf("[MESSAGE_EDIT] id=%s before=%q after=%q\n", e.Message.ID, before, e.Message.Content)
	})
	dispatch.On(d, func(e dispatch.PresenceUpdate) {
		fmt.Printf("[PRESENCE] guild=%s user=%s status=%s\n", e.Presence.GuildID, e.Presence.UserID, e.Presence.Status)
	})
	dispatch.On(d, func(e dispatch.Unknown) {
		fmt.Printf("[UNKNOWN] name=%s size=%d\n", e.Name, len(e.Raw))
	})
	dispatch.On(d, func(e dispatch.Disconnected) {
		fmt.Println("[DISCONNECTED] reconnect budget exhausted")
	})
}
