// Package config loads the server configuration from the environment, with
// an optional .env file underneath.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Definition sources.
const (
	SourceEmbedded = "embedded"
	SourcePostgres = "postgres"
)

// Save backends.
const (
	SaveNone   = "none"
	SaveRedis  = "redis"
	SaveSQLite = "sqlite"
)

// Config holds every setting of the server.
type Config struct {
	Addr            string        `env:"GROUPSOLITAIRE_ADDR" envDefault:":8080"`
	LogLevel        string        `env:"GROUPSOLITAIRE_LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"GROUPSOLITAIRE_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	// IdleTimeout drops sessions nobody has been connected to for this long.
	IdleTimeout time.Duration `env:"GROUPSOLITAIRE_IDLE_TIMEOUT" envDefault:"30m"`

	// Source selects where group and deck definitions come from.
	Source         string `env:"GROUPSOLITAIRE_SOURCE" envDefault:"embedded"`
	PostgresURL    string `env:"GROUPSOLITAIRE_POSTGRES_URL"`
	PostgresImport bool   `env:"GROUPSOLITAIRE_POSTGRES_IMPORT" envDefault:"true"`

	// SaveBackend selects where rounds and settings are persisted.
	SaveBackend string        `env:"GROUPSOLITAIRE_SAVE_BACKEND" envDefault:"none"`
	RedisAddr   string        `env:"GROUPSOLITAIRE_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB     int           `env:"GROUPSOLITAIRE_REDIS_DB" envDefault:"0"`
	SaveTTL     time.Duration `env:"GROUPSOLITAIRE_SAVE_TTL" envDefault:"168h"`
	SQLitePath  string        `env:"GROUPSOLITAIRE_SQLITE_PATH" envDefault:"groupsolitaire.db"`

	TokenSecret string        `env:"GROUPSOLITAIRE_TOKEN_SECRET"`
	TokenTTL    time.Duration `env:"GROUPSOLITAIRE_TOKEN_TTL" envDefault:"24h"`

	// DefaultGroupCount sizes random decks when neither the request nor the
	// player's settings choose.
	DefaultGroupCount int `env:"GROUPSOLITAIRE_DEFAULT_GROUP_COUNT" envDefault:"6"`
}

// Load reads the given .env files (".env" when none are named), then parses
// the environment. Variables already set win over file values; missing files
// are skipped.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Source = strings.ToLower(strings.TrimSpace(cfg.Source))
	cfg.SaveBackend = strings.ToLower(strings.TrimSpace(cfg.SaveBackend))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements.
func (c Config) Validate() error {
	var errs []error
	switch c.Source {
	case SourceEmbedded:
	case SourcePostgres:
		if strings.TrimSpace(c.PostgresURL) == "" {
			errs = append(errs, errors.New("GROUPSOLITAIRE_POSTGRES_URL is required when GROUPSOLITAIRE_SOURCE=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown GROUPSOLITAIRE_SOURCE %q", c.Source))
	}
	switch c.SaveBackend {
	case SaveNone, SaveRedis:
	case SaveSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			errs = append(errs, errors.New("GROUPSOLITAIRE_SQLITE_PATH is required when GROUPSOLITAIRE_SAVE_BACKEND=sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown GROUPSOLITAIRE_SAVE_BACKEND %q", c.SaveBackend))
	}
	if strings.TrimSpace(c.TokenSecret) == "" {
		errs = append(errs, errors.New("GROUPSOLITAIRE_TOKEN_SECRET is required"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("GROUPSOLITAIRE_TOKEN_TTL must be positive"))
	}
	if c.IdleTimeout < 0 {
		errs = append(errs, errors.New("GROUPSOLITAIRE_IDLE_TIMEOUT must not be negative"))
	}
	if c.DefaultGroupCount < 0 {
		errs = append(errs, errors.New("GROUPSOLITAIRE_DEFAULT_GROUP_COUNT must not be negative"))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Level parses LogLevel.
func (c Config) Level() (logrus.Level, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return 0, fmt.Errorf("invalid GROUPSOLITAIRE_LOG_LEVEL: %w", err)
	}
	return level, nil
}
