package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"

	coreconfig "github.com/m3rciful/facilitybot/core/config"
	coredatabase "github.com/m3rciful/facilitybot/core/database"
	"github.com/m3rciful/facilitybot/core/logger"
	"github.com/m3rciful/facilitybot/internal/flow"
)

// Defaults for the bot section.
const (
	DefaultLinkHost = "t.me"
	DefaultQRSize   = 320
)

// BotConfig holds facility bot behaviour settings.
type BotConfig struct {
	AppealsLimit int    `yaml:"appeals_limit" envconfig:"BOT_APPEALS_LIMIT"`
	LinkHost     string `yaml:"link_host" envconfig:"BOT_LINK_HOST"`
	// SessionIdleTTL drops conversations idle for longer; zero keeps them.
	SessionIdleTTL time.Duration `yaml:"session_idle_ttl" envconfig:"BOT_SESSION_IDLE_TTL"`
	QRSize         int           `yaml:"qr_size" envconfig:"BOT_QR_SIZE"`
	// TimeZone is an IANA name used to show appeal dates; empty means local.
	TimeZone string `yaml:"time_zone" envconfig:"BOT_TIMEZONE"`

	location *time.Location
}

// Location returns the zone loaded from TimeZone.
func (b *BotConfig) Location() *time.Location {
	if b.location == nil {
		return time.Local
	}
	return b.location
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	Bot      BotConfig           `yaml:"bot"`

	envErr error
}

// EnvFileError reports why an existing .env file could not be read. It is
// kept until the logger is up.
func (c *Config) EnvFileError() error {
	return c.envErr
}

// LogEnvFileError warns about an unreadable .env once logging is set up.
func (c *Config) LogEnvFileError(ctx context.Context) {
	if c.envErr == nil {
		return
	}
	logger.Warn(ctx, "app", "config.env",
		slog.String("status", "fail"),
		slog.String("note", ".env ignored"),
		slog.String("err", c.envErr.Error()),
	)
}

// CoreConfig returns the embedded Telegram configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Config
}

// LoadConfig reads .env (when present), then the YAML file at path, then the
// environment, and validates the result. A missing YAML file is allowed so the
// bot can be configured from the environment alone.
func LoadConfig(path string) (*Config, error) {
	envErr := godotenv.Load()
	if errors.Is(envErr, fs.ErrNotExist) {
		envErr = nil
	}
	cfg := Config{envErr: envErr}
	if err := coreconfig.Decode(path, true, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates every section and fills defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}
	if err := c.Database.Normalize(); err != nil {
		return err
	}
	return c.Bot.Normalize()
}

// Normalize validates the bot section and fills defaults.
func (b *BotConfig) Normalize() error {
	switch {
	case b.AppealsLimit < 0:
		return fmt.Errorf("bot.appeals_limit must be >= 0")
	case b.AppealsLimit == 0:
		b.AppealsLimit = flow.DefaultAppealsLimit
	}
	b.LinkHost = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(b.LinkHost), "https://"), "/")
	if b.LinkHost == "" {
		b.LinkHost = DefaultLinkHost
	}
	if b.SessionIdleTTL < 0 {
		return fmt.Errorf("bot.session_idle_ttl must be >= 0")
	}
	switch {
	case b.QRSize < 0:
		return fmt.Errorf("bot.qr_size must be >= 0")
	case b.QRSize == 0:
		b.QRSize = DefaultQRSize
	}
	b.TimeZone = strings.TrimSpace(b.TimeZone)
	if b.TimeZone != "" {
		loc, err := time.LoadLocation(b.TimeZone)
		if err != nil {
			return fmt.Errorf("bot.time_zone: %w", err)
		}
		b.location = loc
	}
	return nil
}
