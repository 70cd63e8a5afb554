// Command tap-sim replays scripted reader taps against a running rfidgame
// server. It stands in for the hardware during rehearsals.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

type simConfig struct {
	BaseURL     string        `env:"API_BASE_URL"`
	Script      string        `env:"TAP_SCRIPT"`
	ScriptPath  string        `env:"TAP_SCRIPT_PATH"`
	DelayMinMS  int           `env:"TAP_DELAY_MIN_MS" envDefault:"250"`
	DelayMaxMS  int           `env:"TAP_DELAY_MAX_MS" envDefault:"1500"`
	Repeat      int           `env:"TAP_REPEAT" envDefault:"1"`
	HTTPTimeout time.Duration `env:"TAP_HTTP_TIMEOUT" envDefault:"15s"`
}

type ScriptTap struct {
	Reader string `json:"reader" yaml:"reader"`
	Portal string `json:"portal" yaml:"portal"`
	Tag    string `json:"tag" yaml:"tag"`
}

type tapResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Entry  struct {
		ID    int64  `json:"id"`
		Label string `json:"label"`
	} `json:"entry"`
}

type simulator struct {
	cfg    simConfig
	client *http.Client
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("run_id", uuid.NewString())

	var cfg simConfig
	if err := env.Parse(&cfg); err != nil {
		logger.Error("parse env", "error", err)
		os.Exit(1)
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		logger.Error("API_BASE_URL is required")
		os.Exit(1)
	}

	taps, err := loadScript(cfg)
	if err != nil {
		logger.Error("failed to load tap script", "error", err)
		os.Exit(1)
	}
	if len(taps) == 0 {
		logger.Info("no taps scripted")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sim := &simulator{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.HTTPTimeout},
		logger: logger,
		sleep:  sleepContext,
	}
	sent, failed, err := sim.run(ctx, taps)
	logger.Info("tap replay finished", "sent", sent, "failed", failed)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("tap replay aborted", "error", err)
		os.Exit(1)
	}
}

// loadScript reads taps from TAP_SCRIPT, then TAP_SCRIPT_PATH. Both accept a
// YAML or JSON list.
func loadScript(cfg simConfig) ([]ScriptTap, error) {
	var data []byte
	switch {
	case strings.TrimSpace(cfg.Script) != "":
		data = []byte(cfg.Script)
	case strings.TrimSpace(cfg.ScriptPath) != "":
		raw, err := os.ReadFile(filepath.Clean(cfg.ScriptPath))
		if err != nil {
			return nil, err
		}
		data = raw
	default:
		return nil, nil
	}

	var taps []ScriptTap
	if err := yaml.Unmarshal(data, &taps); err != nil {
		return nil, fmt.Errorf("decode tap script: %w", err)
	}
	return taps, nil
}

func (s *simulator) run(ctx context.Context, taps []ScriptTap) (int, int, error) {
	repeat := s.cfg.Repeat
	if repeat <= 0 {
		repeat = 1
	}

	sent, failed := 0, 0
	for round := 0; round < repeat; round++ {
		for i, tap := range taps {
			if err := ctx.Err(); err != nil {
				return sent, failed, err
			}
			resp, err := s.send(ctx, tap)
			if err != nil {
				failed++
				s.logger.Error("tap failed", "round", round, "index", i, "tag", tap.Tag, "reader", tap.Reader, "error", err)
			} else {
				sent++
				s.logger.Info("tap sent", "round", round, "index", i, "tag", tap.Tag, "reader", tap.Reader, "id", resp.Entry.ID)
			}
			if err := s.sleep(ctx, jitter(s.cfg.DelayMinMS, s.cfg.DelayMaxMS)); err != nil {
				return sent, failed, err
			}
		}
	}
	return sent, failed, nil
}

func (s *simulator) send(ctx context.Context, tap ScriptTap) (tapResponse, error) {
	body, err := json.Marshal(tap)
	if err != nil {
		return tapResponse{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/api/rfid/read", bytes.NewReader(body))
	if err != nil {
		return tapResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return tapResponse{}, err
	}
	defer resp.Body.Close()

	var out tapResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return tapResponse{}, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if out.Error == "" {
			out.Error = resp.Status
		}
		return out, errors.New(out.Error)
	}
	return out, nil
}

func jitter(minMs, maxMs int) time.Duration {
	minMs = max(minMs, 0)
	maxMs = max(maxMs, minMs)
	if maxMs == 0 {
		return 0
	}
	return time.Duration(rand.IntN(maxMs-minMs+1)+minMs) * time.Millisecond
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
