package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const startupAdvisoryLockID int64 = 824173921

// withStartupLock runs fn only in the instance that wins the Postgres
// advisory lock. SQLite deployments are single-process and always run fn.
func (s *sqlStore) withStartupLock(ctx context.Context, fn func() error) (bool, error) {
	if s.d.name != driverPostgres {
		return true, fn()
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	var acquired bool
	if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, startupAdvisoryLockID).Scan(&acquired); err != nil {
		return false, err
	}
	if !acquired {
		return false, nil
	}
	defer func() {
		_, _ = conn.ExecContext(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock($1)`, startupAdvisoryLockID)
	}()
	return true, fn()
}

type seedDocument struct {
	Teams []TeamSeed `json:"teams" yaml:"teams"`
}

// loadSeedFile reads a team fixture. YAML is a superset of JSON, so one
// decoder serves both formats.
func loadSeedFile(path string) ([]TeamSeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var doc seedDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	return doc.Teams, nil
}

// seedTeams creates fixture teams. Teams whose first card is already
// assigned are skipped, so restarting with the same file is harmless.
func seedTeams(ctx context.Context, store Store, teams []TeamSeed, logger *slog.Logger) (int, error) {
	created := 0
	for _, team := range teams {
		if len(team.Cards) == 0 {
			logger.Warn("seed team without cards skipped", "name", team.Name)
			continue
		}
		_, exists, err := store.TeamForCard(ctx, strings.TrimSpace(team.Cards[0]))
		if err != nil {
			return created, err
		}
		if exists {
			continue
		}
		id, err := store.CreateTeam(ctx, team)
		if errors.Is(err, ErrCardAssigned) {
			logger.Warn("seed team skipped", "name", team.Name, "error", err)
			continue
		}
		if err != nil {
			return created, err
		}
		created++
		logger.Info("seed team created", "id", id, "name", team.Name, "members", len(team.Cards))
	}
	return created, nil
}
