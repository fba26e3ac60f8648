// Command purge deletes every message and every visitor. It does not ask for confirmation.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cwrk-planet/support-relay/config"
	"github.com/cwrk-planet/support-relay/internal/app"
	"github.com/cwrk-planet/support-relay/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:     logger.Env(cfg.Logging.Env),
		Service: "support-purge",
		Version: cfg.Logging.Version,
		Backend: logger.Backend(cfg.Logging.Backend),
		Level:   logger.ParseLevel(cfg.Logging.Level),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := app.OpenStorage(ctx, cfg)
	if err != nil {
		slog.Error("open storage failed", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	res, err := store.Purger.Purge(ctx)
	if err != nil {
		slog.Error("purge failed", "err", err)
		store.Close()
		os.Exit(1)
	}
	slog.Info("chat data deleted", "storage", cfg.Storage.Driver, "messages", res.Messages, "users", res.Users)
}
