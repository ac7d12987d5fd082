// Package config loads the bot configuration from the environment, and from a .env file
// when there is one
package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	DiscordToken string   `env:"DISCORD_TOKEN,required"`
	Prefix       string   `env:"BOT_PREFIX" envDefault:"!"`
	DatabasePath string   `env:"DATABASE_PATH" envDefault:"administrator.db"`
	OwnerIDs     []string `env:"OWNER_IDS" envSeparator:","`
	// Extensions loaded at startup
	Extensions       []string      `env:"EXTENSIONS" envSeparator:"," envDefault:"extension,help,utils,greetings,warn,reminder"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
	ReminderInterval time.Duration `env:"REMINDER_INTERVAL" envDefault:"1m"`
}

// Load reads the .env files passed, or ./.env by default, then parses the environment
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		if len(files) > 0 || !os.IsNotExist(errors.Cause(err)) {
			return nil, errors.Wrap(err, "load env file")
		}
		log.Debug().Msg("no .env file found, using the environment only")
	}

	return Parse()
}

// Parse parses the environment only
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "parse env")
	}
	return cfg, nil
}

// Level returns the configured log level, info when it can not be parsed
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
