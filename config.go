package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	driverPostgres = "postgres"
	driverSQLite   = "sqlite"
)

// Config is the process configuration, read once from the environment.
type Config struct {
	AppEnv          string        `env:"APP_ENV" envDefault:"local"`
	Port            string        `env:"PORT" envDefault:"4000"`
	DatabaseDriver  string        `env:"DATABASE_DRIVER" envDefault:"postgres"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	RuleConfigFile  string        `env:"GAMELITE_CONFIG_FILE" envDefault:"data/gameLite.config.json"`
	AdminKey        string        `env:"GAMELITE_ADMIN_KEY"`
	AdminRateLimit  int           `env:"ADMIN_RATE_LIMIT" envDefault:"10"`
	AdminRateWindow time.Duration `env:"ADMIN_RATE_WINDOW" envDefault:"10m"`
	ExitMarker      string        `env:"EXIT_MARKER" envDefault:"EXITOUT"`
	ExitRevalidate  bool          `env:"EXIT_REVALIDATE" envDefault:"false"`
	KioskHeartbeat  time.Duration `env:"KIOSK_HEARTBEAT" envDefault:"20s"`
	KioskBuffer     int           `env:"KIOSK_BUFFER" envDefault:"64"`
	ReaderAllowlist []string      `env:"READER_ALLOWLIST" envSeparator:","`
	SeedFile        string        `env:"SEED_FILE"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	OTelEndpoint    string        `env:"OTEL_ENDPOINT"`
	OTelEnabled     bool          `env:"OTEL_ENABLED" envDefault:"true"`
}

func loadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	cfg.DatabaseDriver = strings.ToLower(strings.TrimSpace(cfg.DatabaseDriver))
	switch cfg.DatabaseDriver {
	case driverPostgres, driverSQLite:
	default:
		return cfg, fmt.Errorf("unsupported DATABASE_DRIVER %q", cfg.DatabaseDriver)
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return cfg, errors.New("DATABASE_URL is not set")
	}

	cfg.ExitMarker = NormalizeLabel(cfg.ExitMarker)
	if cfg.ExitMarker == "" {
		cfg.ExitMarker = defaultExitMarker
	}
	if cfg.KioskHeartbeat <= 0 {
		cfg.KioskHeartbeat = 20 * time.Second
	}
	if cfg.KioskBuffer <= 0 {
		cfg.KioskBuffer = 64
	}

	allow := cfg.ReaderAllowlist[:0]
	for _, ip := range cfg.ReaderAllowlist {
		if ip = strings.TrimSpace(ip); ip != "" {
			allow = append(allow, ip)
		}
	}
	cfg.ReaderAllowlist = allow
	return cfg, nil
}

func parseLogLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLogLevel(level),
	}))
}
