// Package bootstrap provides dependency initialization for the bot.
package bootstrap

import (
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Bas4nt/telegram-video-to-gif-bot2/internal/bot"
	"github.com/Bas4nt/telegram-video-to-gif-bot2/internal/config"
	"github.com/Bas4nt/telegram-video-to-gif-bot2/internal/convert"
	"github.com/Bas4nt/telegram-video-to-gif-bot2/internal/media"
	"github.com/Bas4nt/telegram-video-to-gif-bot2/internal/storage"
)

// Dependencies holds all initialized dependencies for the bot process.
type Dependencies struct {
	Bot      *bot.Bot
	Pipeline *convert.Pipeline
	Storage  storage.Storage
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	prober := media.NewFFprobe(cfg.FFprobePath)
	encoder := media.NewFFmpegEncoder(cfg.FFmpegPath)

	pipeline := convert.NewPipeline(prober, encoder, cfg.Limits(), logger)

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("create Telegram client: %w", err)
	}

	b := bot.New(api, pipeline, store, logger,
		bot.WithMaxConcurrentJobs(cfg.MaxConcurrentJobs),
	)

	return &Dependencies{
		Bot:      b,
		Pipeline: pipeline,
		Storage:  store,
	}, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.TempDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 archive configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("temp_dir", cfg.TempDir),
	)
	return localStore, nil
}
