// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"

	"github.com/Bas4nt/telegram-video-to-gif-bot2/internal/convert"
)

// ErrTelegramTokenRequired is returned when TELEGRAM_TOKEN is not set.
var ErrTelegramTokenRequired = errors.New("config: TELEGRAM_TOKEN is required")

// Config holds all configuration for the bot.
type Config struct {
	// Telegram settings
	TelegramToken string `env:"TELEGRAM_TOKEN, required" json:"-"` // Masked in JSON

	// Storage settings
	TempDir string `env:"TEMP_DIR, default=/tmp/gifbot" json:"temp_dir"`

	// Conversion policy limits
	MaxInputMB          int     `env:"MAX_INPUT_MB, default=50" json:"max_input_mb" validate:"min=1"`
	MaxClipSeconds      float64 `env:"MAX_CLIP_SECONDS, default=10" json:"max_clip_seconds" validate:"gt=0"`
	MaxOutputWidth      int     `env:"MAX_OUTPUT_WIDTH, default=480" json:"max_output_width" validate:"min=16"`
	MaxOutputMB         int     `env:"MAX_OUTPUT_MB, default=10" json:"max_output_mb" validate:"min=1"`
	DefaultFPS          int     `env:"DEFAULT_FPS, default=15" json:"default_fps" validate:"min=2,max=50"`
	TranscodeTimeoutSec int     `env:"TRANSCODE_TIMEOUT_SEC, default=120" json:"transcode_timeout_sec" validate:"min=1"`

	// Processing settings
	MaxConcurrentJobs int `env:"MAX_CONCURRENT_JOBS, default=3" json:"max_concurrent_jobs" validate:"min=1"`

	// Tool paths; resolved via PATH when empty
	FFmpegPath  string `env:"FFMPEG_PATH" json:"ffmpeg_path,omitempty"`
	FFprobePath string `env:"FFPROBE_PATH" json:"ffprobe_path,omitempty"`

	// Optional S3 archive settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 archive configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Limits converts the configured policy values into the pipeline's Limits.
func (c *Config) Limits() convert.Limits {
	return convert.Limits{
		MaxInputBytes:    int64(c.MaxInputMB) << 20,
		MaxClipSeconds:   c.MaxClipSeconds,
		MaxOutputWidth:   c.MaxOutputWidth,
		MaxOutputBytes:   int64(c.MaxOutputMB) << 20,
		DefaultFPS:       c.DefaultFPS,
		TranscodeTimeout: time.Duration(c.TranscodeTimeoutSec) * time.Second,
	}
}

// Load reads configuration from environment variables using go-envconfig
// and checks the numeric policy bounds. It returns an error if required
// variables are not set or a limit is out of range.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		// Map envconfig errors to our domain errors for required fields
		if strings.Contains(err.Error(), "TELEGRAM_TOKEN") {
			return nil, ErrTelegramTokenRequired
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{TempDir: %s, MaxInputMB: %d, MaxClipSeconds: %.1f, MaxOutputWidth: %d, MaxOutputMB: %d, DefaultFPS: %d, TranscodeTimeoutSec: %d, MaxConcurrentJobs: %d, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.TempDir,
		c.MaxInputMB,
		c.MaxClipSeconds,
		c.MaxOutputWidth,
		c.MaxOutputMB,
		c.DefaultFPS,
		c.TranscodeTimeoutSec,
		c.MaxConcurrentJobs,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
