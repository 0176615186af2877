package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/flavorsnap/ml-api/config"
	"github.com/flavorsnap/ml-api/internal/health"
	"github.com/flavorsnap/ml-api/internal/httpserver"
	"github.com/flavorsnap/ml-api/internal/metrics"
	"github.com/flavorsnap/ml-api/pkg/logger"
	"github.com/flavorsnap/ml-api/pkg/logger/rotate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	opts, err := loggerOptions(cfg)
	if err != nil {
		slog.Error("invalid logging config", slog.Any("err", err))
		os.Exit(1)
	}

	evlog, err := logger.New(opts)
	if err != nil {
		slog.Error("failed to create logger", slog.Any("err", err))
		os.Exit(1)
	}

	if err := run(cfg, evlog); err != nil {
		evlog.Critical("Server terminated", logger.Fields{"error": err})
		evlog.Close()
		os.Exit(1)
	}
	evlog.Close()
}

func run(cfg *config.Config, evlog *logger.Logger) error {
	log := evlog.Slog()
	slog.SetDefault(log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	collector := metrics.NewCollector(cfg.Metrics.BufferSize, log.With(slog.String("component", "metrics")))
	collector.Start(ctx)

	sampler := health.NewSampler(health.HostProbe, cfg.Logging.Dir, cfg.SampleInterval(), log.With(slog.String("component", "health")))
	go sampler.Run(ctx)

	srv, err := httpserver.New(cfg.Server.Address, setupRouter(cfg, evlog, collector, sampler), log)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Start()
	}()

	evlog.Info("Starting FlavorSnap ML API server", logger.Fields{
		"address":     cfg.Server.Address,
		"environment": cfg.Server.Environment,
		"log_file":    evlog.Paths().General,
	})

	select {
	case <-ctx.Done():
		evlog.Info("Shutting down gracefully", nil)
		if err := srv.Shutdown(context.Background()); err != nil {
			evlog.Error("Error during shutdown", logger.Fields{"error": err})
		}
		return nil
	case err := <-srvErrCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	}
}

func loggerOptions(cfg *config.Config) (logger.Options, error) {
	level, err := logger.ParseLevel(cfg.Logging.ConsoleLevel)
	if err != nil {
		return logger.Options{}, err
	}

	return logger.Options{
		Name:         cfg.Logging.Name,
		Dir:          cfg.Logging.Dir,
		ConsoleLevel: level,
		General: rotate.Policy{
			MaxBytes:   cfg.Logging.General.MaxSizeBytes,
			MaxBackups: cfg.Logging.General.MaxBackups,
		},
		Errors: rotate.Policy{
			MaxBytes:   cfg.Logging.Errors.MaxSizeBytes,
			MaxBackups: cfg.Logging.Errors.MaxBackups,
		},
	}, nil
}
