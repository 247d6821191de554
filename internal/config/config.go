// Package config loads and validates the bot's environment configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full environment surface of the bot. BotToken, OwnerID and
// DatabaseURL are mandatory; everything else has a usable default.
type Config struct {
	BotToken    string `env:"BOT_TOKEN"`
	OwnerID     int64  `env:"OWNER_ID"`
	DatabaseURL string `env:"DATABASE_URL"`

	// ForceSubChannel is the channel username (without @) users must join
	// before the bot serves them. Empty disables the check.
	ForceSubChannel string `env:"FORCE_SUB"`

	DefaultCaption string `env:"CUSTOM_CAPTION" envDefault:"🎬 Processed by Simple Bot"`
	TempDir        string `env:"TEMP_DIR" envDefault:"./temp"`
	FfmpegPath     string `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
}

// Load reads .env (if present), parses the environment and validates the
// mandatory values. The returned error names every missing variable so a
// broken deployment is diagnosed in one run.
func Load() (Config, error) {
	_ = godotenv.Load()

	var c Config
	if err := env.Parse(&c); err != nil {
		return c, fmt.Errorf("parse environment: %w", err)
	}

	var missing []string
	if c.BotToken == "" {
		missing = append(missing, "BOT_TOKEN")
	}
	if c.OwnerID == 0 {
		missing = append(missing, "OWNER_ID")
	}
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if len(missing) > 0 {
		return c, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	c.ForceSubChannel = strings.TrimPrefix(strings.TrimSpace(c.ForceSubChannel), "@")
	return c, nil
}
