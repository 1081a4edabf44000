package bot

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the bot configuration loaded from environment variables.
type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN,notEmpty"`
	HTTPAddr     string `env:"HTTP_ADDR"              envDefault:":8080"`
	LogLevel     string `env:"LOG_LEVEL"              envDefault:"info"`
	// CommandGuildID registers commands on a single guild instead of
	// globally, which takes effect immediately during development.
	CommandGuildID string `env:"COMMAND_GUILD_ID"`
}

// LoadDotEnv loads variables from a .env file in the working directory when
// one exists. Variables already set in the environment take precedence.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("loaded no .env file", "error", err)
	}
}

// LoadConfig loads configuration from environment variables.
// Returns an error if required fields are missing.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if _, err := ParseLogLevel(cfg.LogLevel); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ParseLogLevel converts a LOG_LEVEL value into a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
