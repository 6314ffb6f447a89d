// Package main provides the entry point for the video-to-GIF Telegram bot.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Bas4nt/telegram-video-to-gif-bot2/internal/bootstrap"
	"github.com/Bas4nt/telegram-video-to-gif-bot2/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Create structured logger
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting video-to-gif bot",
		slog.String("log_format", cfg.LogFormat),
		slog.String("log_level", cfg.LogLevel),
		slog.String("temp_dir", cfg.TempDir),
		slog.Int("max_input_mb", cfg.MaxInputMB),
		slog.Float64("max_clip_seconds", cfg.MaxClipSeconds),
		slog.Int("max_output_width", cfg.MaxOutputWidth),
		slog.Int("max_output_mb", cfg.MaxOutputMB),
		slog.Int("default_fps", cfg.DefaultFPS),
		slog.Int("max_concurrent_jobs", cfg.MaxConcurrentJobs),
		slog.Bool("s3_enabled", cfg.S3Enabled()),
	)

	// Initialize dependencies using bootstrap
	deps, err := bootstrap.NewDependencies(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}

	// Poll until interrupted
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := deps.Bot.Run(ctx); err != nil {
		return fmt.Errorf("bot stopped: %w", err)
	}

	logger.Info("bot stopped gracefully")
	return nil
}
