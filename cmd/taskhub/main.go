package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/taskhub/adapter/cli"
	"github.com/felixgeelhaar/taskhub/pkg/config"
	"github.com/felixgeelhaar/taskhub/pkg/observability"
)

func main() {
	// Create context canceled on shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logCfg := observability.DefaultLogConfig()
	if cfg.IsProduction() {
		logCfg = observability.ProductionLogConfig()
	}
	logCfg.Level = observability.LogLevel(cfg.LogLevel)
	logCfg.Format = observability.LogFormat(cfg.LogFormat)
	logCfg.ServiceVersion = cli.Version

	logger := observability.NewLogger(logCfg)
	slog.SetDefault(logger)

	cli.SetLogger(logger)
	cli.SetConfig(cfg)
	cli.Execute(ctx)
}
