package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/yourname/staticserve/internal/app/sitehttp"
	"github.com/yourname/staticserve/internal/config"
	"github.com/yourname/staticserve/internal/logger"
	"github.com/yourname/staticserve/internal/metrics"
	"github.com/yourname/staticserve/internal/reload"
)

// main поднимает сервер статики и перезапускает сессию после каждой успешной загрузки.
func main() {
	configPath := pflag.StringP("config", "c", config.Path(), "path to the YAML config")
	addr := pflag.StringP("addr", "a", "", "listen address (overrides config)")
	verbose := pflag.BoolP("verbose", "v", false, "debug logging")
	pflag.Parse()

	log := logger.FromEnv(*verbose)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New("")

	err := reload.Loop(ctx, log, func(ctx context.Context) (reload.Decision, error) {
		// Конфигурация перечитывается на каждую сессию.
		cfg, err := config.Load(*configPath)
		if err != nil {
			return reload.Stop, err
		}
		if *addr != "" {
			cfg.Addr = *addr
		}

		return sitehttp.Session{Config: cfg, Metrics: m, Logger: log}.Run(ctx)
	})
	if err != nil {
		log.Error("server failed", logger.Error(err))
		os.Exit(1)
	}
}
