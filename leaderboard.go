package main

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 1000
)

// leaderboardLimit parses ?limit=, falling back to the default for missing
// or non-numeric values and clamping to [1, 1000].
func leaderboardLimit(raw string) int {
	limit, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || limit == 0 {
		return defaultLeaderboardLimit
	}
	if limit < 1 {
		return 1
	}
	if limit > maxLeaderboardLimit {
		return maxLeaderboardLimit
	}
	return limit
}

func leaderboardHandler(store Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scores, err := store.Leaderboard(r.Context(), leaderboardLimit(r.URL.Query().Get("limit")))
		if err != nil {
			logger.Error("leaderboard failed", "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, scores)
	}
}
