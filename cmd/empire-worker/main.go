package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"empire/internal/config"
	"empire/internal/db"
	"empire/internal/game"

	"github.com/robfig/cron/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		logger.Error("schema setup failed", "err", err)
		os.Exit(1)
	}

	svc := game.NewService(pool, logger)
	if cfg.StartupSeedMarket {
		if err := svc.SeedDefaults(ctx); err != nil {
			logger.Error("seed defaults failed", "err", err)
			os.Exit(1)
		}
	}

	runOnce := strings.EqualFold(strings.TrimSpace(os.Getenv("EMPIRE_WORKER_RUN_ONCE")), "true")
	if runOnce {
		if err := svc.RunEngineTick(ctx, cfg.EngineTickEvery, cfg.MarketVolatility); err != nil {
			logger.Error("tick failed", "err", err)
			os.Exit(1)
		}
		logger.Info("worker run-once completed")
		return
	}

	scheduler := cron.New(cron.WithSeconds())
	spec := cfg.EngineCronSpec
	if _, err := scheduler.AddFunc(spec, func() {
		if err := svc.RunEngineTick(ctx, cfg.EngineTickEvery, cfg.MarketVolatility); err != nil {
			logger.Error("engine tick failed", "err", err)
			return
		}
		logger.Info("engine tick complete")
	}); err != nil {
		logger.Error("schedule engine tick", "spec", spec, "err", err)
		os.Exit(1)
	}

	logger.Info("worker started", "cron", spec, "volatility", cfg.MarketVolatility)
	scheduler.Start()
	<-ctx.Done()

	stopCtx := scheduler.Stop()
	<-stopCtx.Done()
	logger.Info("worker shutdown")
}
