package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brojonat/ledgerscope/service/blockfrost"
	"github.com/brojonat/ledgerscope/service/config"
	"github.com/brojonat/ledgerscope/service/explorer"
	"github.com/brojonat/ledgerscope/service/metrics"
	"github.com/brojonat/ledgerscope/service/server"
)

func main() {
	// Load and validate configuration from environment
	// This fails fast if any required config is missing or invalid
	cfg := config.MustLoad()

	// Setup structured logging
	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting server",
		"addr", cfg.ServerAddr,
		"env", cfg.Env,
		"network", cfg.Network,
		"log_level", cfg.LogLevel,
	)

	m := metrics.NewMetrics(nil)

	// Initialize block-data provider client
	provider := blockfrost.NewClient(blockfrost.Config{
		BaseURL:   cfg.BlockfrostURL,
		ProjectID: cfg.BlockfrostProjectID,
		Timeout:   cfg.UpstreamTimeout,
		RPS:       cfg.UpstreamRPS,
	}, nil, m, logger)
	logger.Info("initialized provider client", "url", cfg.BlockfrostURL, "rps", cfg.UpstreamRPS)

	svc := explorer.NewService(provider, explorer.Options{
		Network:       cfg.Network,
		TxConcurrency: cfg.BlockTxConcurrency,
	}, m, logger)

	// Initialize HTTP server
	httpServer := server.New(cfg.ServerAddr, cfg, svc, m, logger)

	// Start HTTP server in background
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.Start()
	}()

	// Wait for shutdown signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		// Graceful shutdown with timeout
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown server gracefully", "error", err)
			os.Exit(1)
		}

		logger.Info("server shutdown complete")
	}
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
