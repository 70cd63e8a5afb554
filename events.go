package main

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type kioskHello struct {
	OK      bool   `json:"ok"`
	Cluster string `json:"cluster"`
}

// writeEvent writes one SSE frame and flushes it.
func writeEvent(w http.ResponseWriter, flusher http.Flusher, event string, payload any) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		return false
	}
	if _, err := w.Write([]byte("event: " + event + "\n")); err != nil {
		return false
	}
	if _, err := w.Write([]byte("data: ")); err != nil {
		return false
	}
	if _, err := w.Write(data); err != nil {
		return false
	}
	if _, err := w.Write([]byte("\n\n")); err != nil {
		return false
	}
	flusher.Flush()
	return true
}

// kioskStreamHandler streams taps for one configured cluster. Taps published
// before the display connects are not replayed.
func kioskStreamHandler(rules *RuleConfig, bus *LiveEventBus, heartbeat time.Duration, buffer int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cluster := NormalizeLabel(chi.URLParam(r, "label"))
		if _, ok := rules.GetClusterRule(cluster); !ok || cluster == "" {
			writeJSON(w, http.StatusNotFound, map[string]any{
				"error":   "Unknown cluster",
				"cluster": cluster,
			})
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
			return
		}

		sub := bus.Subscribe(cluster, buffer)
		defer sub.Close()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		if !writeEvent(w, flusher, "hello", kioskHello{OK: true, Cluster: cluster}) {
			return
		}

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		ctx := r.Context()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := w.Write([]byte(":keepalive\n\n")); err != nil {
					return
				}
				flusher.Flush()
			case event, ok := <-sub.C:
				if !ok {
					return
				}
				if !writeEvent(w, flusher, "tap", event.Tap) {
					return
				}
			}
		}
	}
}

func kioskClustersHandler(rules *RuleConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"clusters": rules.Clusters()})
	}
}

type kioskEligibility struct {
	RegistrationID    int64      `json:"registration_id"`
	GroupSize         int        `json:"group_size"`
	Score             int64      `json:"score"`
	Eligible          bool       `json:"eligible"`
	MinGroupSize      int        `json:"minGroupSize"`
	MaxGroupSize      int        `json:"maxGroupSize"`
	MinPointsRequired float64    `json:"minPointsRequired"`
	LatestLabel       *string    `json:"latest_label"`
	LastSeenAt        *time.Time `json:"last_seen_at"`
}

func kioskEligibilityHandler(store Store, rules *RuleConfig, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rfid := chi.URLParam(r, "rfid")
		if !isValidCardID(rfid) {
			writeError(w, http.StatusBadRequest, "invalid rfid")
			return
		}

		status, ok, err := store.CardStatus(r.Context(), rfid)
		if err != nil {
			logger.Error("kiosk eligibility lookup failed", "rfid", rfid, "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !ok {
			writeJSON(w, http.StatusOK, map[string]any{"unknown": true, "rfid_card_id": rfid})
			return
		}

		game := rules.Get().Rules
		writeJSON(w, http.StatusOK, kioskEligibility{
			RegistrationID:    status.RegistrationID,
			GroupSize:         status.GroupSize,
			Score:             status.Score,
			Eligible:          isEligible(game, status.GroupSize, status.Score),
			MinGroupSize:      game.MinGroupSize,
			MaxGroupSize:      game.MaxGroupSize,
			MinPointsRequired: game.MinPointsRequired,
			LatestLabel:       status.LatestLabel,
			LastSeenAt:        status.LastSeenAt,
		})
	}
}

func isEligible(rules GameRules, groupSize int, score int64) bool {
	return groupSize >= rules.MinGroupSize &&
		groupSize <= rules.MaxGroupSize &&
		score >= minPointsThreshold(rules.MinPointsRequired)
}

// minPointsThreshold converts the configured minimum into whole points.
func minPointsThreshold(v float64) int64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(math.Ceil(v))
}
