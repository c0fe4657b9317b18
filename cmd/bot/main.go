package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillm/candle-bot/internal/config"
	"github.com/kirillm/candle-bot/internal/engine"
	"github.com/kirillm/candle-bot/internal/reconciler"
	"github.com/kirillm/candle-bot/internal/storage"
	"github.com/kirillm/candle-bot/internal/telegram"
	"github.com/kirillm/candle-bot/internal/trader"
	"github.com/kirillm/candle-bot/internal/venue"
	"github.com/kirillm/candle-bot/pkg/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.LogLevel)
	logger.Info("Starting candle bot")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewPostgresStorage(cfg.Database, logger)
	if err != nil {
		logger.Error("failed to initialize storage: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	snapshots := config.NewSnapshotStore(cfg.Engine.SnapshotPath)
	if _, err := snapshots.Load(); err != nil {
		logger.Warn("trading config not ready yet: %v", err)
	}

	bridge := venue.NewBridgeClient(cfg.Bridge.BaseURL, cfg.Bridge.Account, cfg.Bridge.Password, cfg.Bridge.Server, logger)
	if err := bridge.Connect(ctx); err != nil {
		logger.Error("failed to connect to MT5 bridge: %v", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := bridge.Shutdown(shutdownCtx); err != nil {
			logger.Warn("bridge shutdown failed: %v", err)
		}
	}()

	magics, err := trader.SeedMagicCounter(ctx, bridge)
	if err != nil {
		logger.Error("failed to seed magic counter: %v", err)
		os.Exit(1)
	}

	exec := trader.New(bridge, magics, store, logger)
	sweeper := reconciler.New(bridge, store, logger)
	eng := engine.New(bridge, snapshots, exec, sweeper, logger, engine.Options{
		ReconcilePoll:    cfg.Engine.ReconcilePoll,
		BarFetchRetries:  cfg.Engine.BarFetchRetries,
		BarFetchDelay:    cfg.Engine.BarFetchDelay,
		ReconnectBackoff: cfg.Engine.ReconnectBackoff,
		ErrorBackoff:     cfg.Engine.ErrorBackoff,
		ConfigRetryDelay: cfg.Engine.ConfigRetryDelay,
	})

	if cfg.Telegram.BotToken != "" {
		bot, err := telegram.NewBot(cfg.Telegram.BotToken, cfg.Telegram.AllowedUserIDs, snapshots, store, logger)
		if err != nil {
			logger.Error("failed to start telegram bot: %v", err)
			os.Exit(1)
		}
		go bot.Run(ctx)
	} else {
		logger.Warn("TELEGRAM_BOT_TOKEN not set, settings editor disabled")
	}

	if err := eng.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("engine stopped: %v", err)
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}
