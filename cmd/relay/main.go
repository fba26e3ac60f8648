package main

import (
	"context"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/cwrk-planet/support-relay/config"
	"github.com/cwrk-planet/support-relay/internal/app"
	"github.com/cwrk-planet/support-relay/pkg/logger"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		Level:     logger.ParseLevel(cfg.Logging.Level),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting support-relay",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version, "storage", cfg.Storage.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- wiring ---
	a, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("init failed", "err", err)
		return
	}
	defer a.Close()

	// --- run until signal ---
	if err := a.Run(ctx); err != nil {
		slog.Error("server error", "err", err)
	}
	slog.Info("stopped")
}
