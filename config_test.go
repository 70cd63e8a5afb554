package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"reflect"
	"testing"
	"time"
)

// unsetEnv clears key for the duration of the test.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unset %s: %v", key, err)
		}
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	unsetEnv(t, "APP_ENV", "PORT", "DATABASE_DRIVER", "GAMELITE_CONFIG_FILE", "GAMELITE_ADMIN_KEY",
		"ADMIN_RATE_LIMIT", "ADMIN_RATE_WINDOW", "EXIT_MARKER", "EXIT_REVALIDATE", "KIOSK_HEARTBEAT",
		"KIOSK_BUFFER", "READER_ALLOWLIST", "SEED_FILE", "LOG_LEVEL")
	t.Setenv("DATABASE_URL", "postgres://localhost/rfid")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Port != "4000" || cfg.DatabaseDriver != driverPostgres || cfg.RuleConfigFile != "data/gameLite.config.json" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.ExitMarker != "EXITOUT" || cfg.ExitRevalidate {
		t.Fatalf("exit settings = %q %v", cfg.ExitMarker, cfg.ExitRevalidate)
	}
	if cfg.KioskHeartbeat != 20*time.Second || cfg.KioskBuffer != 64 {
		t.Fatalf("kiosk settings = %v %d", cfg.KioskHeartbeat, cfg.KioskBuffer)
	}
	if cfg.AdminRateLimit != 10 || cfg.AdminRateWindow != 10*time.Minute {
		t.Fatalf("admin rate = %d per %v", cfg.AdminRateLimit, cfg.AdminRateWindow)
	}
	if len(cfg.ReaderAllowlist) != 0 {
		t.Fatalf("allowlist = %v", cfg.ReaderAllowlist)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", " SQLite ")
	t.Setenv("DATABASE_URL", "/tmp/rfid.db")
	t.Setenv("EXIT_MARKER", " gate-out ")
	t.Setenv("EXIT_REVALIDATE", "true")
	t.Setenv("KIOSK_HEARTBEAT", "5s")
	t.Setenv("KIOSK_BUFFER", "-1")
	t.Setenv("READER_ALLOWLIST", "10.0.0.1, ,10.0.1.0/24")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DatabaseDriver != driverSQLite {
		t.Fatalf("driver = %q", cfg.DatabaseDriver)
	}
	if cfg.ExitMarker != "GATE-OUT" || !cfg.ExitRevalidate {
		t.Fatalf("exit settings = %q %v", cfg.ExitMarker, cfg.ExitRevalidate)
	}
	if cfg.KioskHeartbeat != 5*time.Second || cfg.KioskBuffer != 64 {
		t.Fatalf("kiosk settings = %v %d", cfg.KioskHeartbeat, cfg.KioskBuffer)
	}
	if want := []string{"10.0.0.1", "10.0.1.0/24"}; !reflect.DeepEqual(cfg.ReaderAllowlist, want) {
		t.Fatalf("allowlist = %v, want %v", cfg.ReaderAllowlist, want)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown driver", env: map[string]string{"DATABASE_DRIVER": "mysql", "DATABASE_URL": "x"}},
		{name: "missing url", env: map[string]string{"DATABASE_DRIVER": "postgres", "DATABASE_URL": "  "}},
		{name: "bad duration", env: map[string]string{"DATABASE_DRIVER": "postgres", "DATABASE_URL": "x", "KIOSK_HEARTBEAT": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := loadConfig(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNewLoggerLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := newLogger(&buf, "WARN")
	logger.Info("hidden")
	logger.Warn("shown", "tap_id", 7)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected exactly one JSON line, got %q: %v", buf.String(), err)
	}
	if line["msg"] != "shown" || line["tap_id"] != 7.0 {
		t.Fatalf("line = %v", line)
	}

	for in, want := range map[string]slog.Level{"debug": slog.LevelDebug, "warning": slog.LevelWarn, "error": slog.LevelError, "": slog.LevelInfo, "loud": slog.LevelInfo} {
		if got := parseLogLevel(in); got != want {
			t.Fatalf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
