package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/lurzyako/classifieds-sync/internal/app/bot"
	"github.com/lurzyako/classifieds-sync/internal/backendclient"
	"github.com/lurzyako/classifieds-sync/internal/config"
	"github.com/lurzyako/classifieds-sync/internal/dualwrite"
	"github.com/lurzyako/classifieds-sync/internal/feedstore"
)

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logger.Info("starting bot",
		slog.String("env", cfg.Env),
		slog.Bool("backend_sync", cfg.Backend.Enabled),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	feed, err := feedstore.New(cfg.Bot.DataDir, logger)
	if err != nil {
		logger.Error("failed to initialize feed store", slog.Any("err", err))
		os.Exit(1)
	}

	client := backendclient.NewClient(cfg.Backend.URL, cfg.Backend.APIKey, cfg.Backend.Timeout)
	coord := dualwrite.New(feed, client, cfg.Backend.Enabled, cfg.Backend.Timeout, logger)

	app, err := bot.New(cfg.Bot, coord, feed, logger)
	if err != nil {
		logger.Error("failed to initialize bot", slog.Any("err", err))
		os.Exit(1)
	}

	go func() {
		<-ctx.Done()
		logger.Info("stopping bot")
		app.Stop()
	}()

	app.Start(ctx)
	logger.Info("bot stopped gracefully")
}
