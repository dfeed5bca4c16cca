package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/riskibarqy/soccer-registry/internal/app"
	"github.com/riskibarqy/soccer-registry/internal/config"
	"github.com/riskibarqy/soccer-registry/internal/interfaces/cli"
	"github.com/riskibarqy/soccer-registry/internal/platform/logging"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.Default().Warn("load .env", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	open := func(ctx context.Context) (*app.App, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		logger := logging.New(os.Stderr, cfg.LogFormat, cfg.LogLevel).With(
			"service", cfg.ServiceName,
			"version", cfg.ServiceVersion,
			"env", cfg.AppEnv,
		)
		logging.SetDefault(logger)
		return app.New(ctx, cfg, logger)
	}

	code := cli.Execute(ctx, open, os.Args[1:], os.Stdout, os.Stderr)
	_ = logging.Default().Sync()
	stop()
	os.Exit(code)
}
