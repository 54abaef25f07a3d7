package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/formc-review/internal/app"
	"github.com/bryanwahyu/formc-review/internal/config"
)

func main() {
	// load config; CONFIG_PATH overrides ./config.yaml
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	if err := config.InitLogger(cfg.Log); err != nil {
		log.Fatalf("logger init error: %v", err)
	}

	if err := run(cfg); err != nil {
		zap.L().Error("server stopped", zap.Error(err))
		_ = zap.L().Sync()
		os.Exit(1)
	}
	_ = zap.L().Sync()
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, zap.L())
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Serve(ctx, 30*time.Second)
}
