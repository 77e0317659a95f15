// Command seed imports the JSON question bank into Postgres.
package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/aliskhannn/exam-simulation/internal/config"
	"github.com/aliskhannn/exam-simulation/internal/infra/postgres"
	"github.com/aliskhannn/exam-simulation/internal/infra/postgres/repository"
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
		lg.Fatal("seed failed", zap.Error(err))
	}
}

func run(cfg *config.Config, lg *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	questions, err := storage.ReadQuestions(cfg.Questions.SeedPath)
	if err != nil {
		return err
	}

	dsn, err := cfg.DB.DSN()
	if err != nil {
		return fmt.Errorf("DATABASE_URL: %w", err)
	}

	pool, err := postgres.NewPool(ctx, dsn, postgres.PoolConfig{
		MaxConns:        1,
		MaxConnLifetime: cfg.DB.MaxConnLifetime,
		ConnectTimeout:  cfg.Storage.Timeout,
	})
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	if err := repository.ImportQuestions(ctx, pool, questions); err != nil {
		return err
	}

	lg.Info("question bank imported",
		zap.String("path", cfg.Questions.SeedPath),
		zap.Int("questions", len(questions)),
	)
	return nil
}
