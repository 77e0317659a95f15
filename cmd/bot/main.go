package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aliskhannn/exam-simulation/internal/app"
	"github.com/aliskhannn/exam-simulation/internal/config"
	"github.com/aliskhannn/exam-simulation/internal/delivery/telegram"
	"github.com/aliskhannn/exam-simulation/internal/logger"
	"github.com/aliskhannn/exam-simulation/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	lg, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	if err := run(cfg, lg); err != nil {
		lg.Fatal("bot stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, lg *zap.Logger) error {
	token, err := cfg.Telegram.Token()
	if err != nil {
		return fmt.Errorf("TELEGRAM_API_TOKEN: %w", err)
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return fmt.Errorf("init bot: %w", err)
	}
	bot.Debug = cfg.Env != "production"

	// Set commands.
	commands := []tgbotapi.BotCommand{
		{Command: "start", Description: "Start the bot"},
		{Command: "quiz", Description: "Start or resume a session (usage: /quiz quick grammar)"},
		{Command: "finish", Description: "Finish the current session"},
		{Command: "abandon", Description: "Abandon the current session"},
		{Command: "progress", Description: "Show progress (usage: /progress grammar)"},
		{Command: "help", Description: "Help"},
	}
	if _, err := bot.Request(tgbotapi.NewSetMyCommands(commands...)); err != nil {
		lg.Warn("failed to set bot commands", zap.Error(err))
	}

	lg.Info("authorized on telegram", zap.String("account", bot.Self.UserName))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer a.Close()

	handler := telegram.NewHandler(bot, lg, a.Sessions, a.Progress, storage.NewMessageTracker())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer bot.StopReceivingUpdates()
		if err := handler.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return a.Sweeper.Start(gctx)
	})

	err = g.Wait()
	lg.Info("shutdown signal received")
	return err
}
