package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aliskhannn/exam-simulation/internal/app"
	"github.com/aliskhannn/exam-simulation/internal/auth"
	"github.com/aliskhannn/exam-simulation/internal/config"
	httpapi "github.com/aliskhannn/exam-simulation/internal/delivery/http"
	"github.com/aliskhannn/exam-simulation/internal/logger"
)

func main() {
	printStartUpBanner()

	// .env is optional; real deployments pass the environment directly.
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
		lg.Fatal("api stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, lg *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	secret, err := cfg.Auth.Secret()
	if err != nil {
		return fmt.Errorf("JWT_SECRET: %w", err)
	}

	a, err := app.New(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	handler := httpapi.NewHandler(a.Sessions, a.Progress, lg)
	router := httpapi.NewRouter(httpapi.RouterConfig{
		CORSOrigins: cfg.HTTP.CORSOrigins,
		RateLimit:   cfg.HTTP.RateLimit,
		RateBurst:   cfg.HTTP.RateBurst,
		Health:      a.Health,
	}, handler, auth.NewVerifier(secret, cfg.Auth.Issuer), lg)

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		lg.Info("http server listening", zap.String("addr", cfg.HTTP.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.Sweeper.Start(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		lg.Info("shutting down http server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func printStartUpBanner() {
	myFigure := figure.NewFigure("EXAM SIM", "", true)
	myFigure.Print()

	fmt.Println("======================================================")
	fmt.Printf("EXAM SIMULATION API (v%s)\n\n", "1.0.0")
}
