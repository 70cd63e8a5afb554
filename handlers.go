package main

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func statusHandler(rules *RuleConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot := rules.Get()
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"enabled": snapshot.Enabled,
			"rules":   snapshot.Rules,
		})
	}
}

func configGetHandler(rules *RuleConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, rules.Get())
	}
}

func configUpdateHandler(rules *RuleConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patch := map[string]any{}
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
		if err := dec.Decode(&patch); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		writeJSON(w, http.StatusOK, rules.Update(patch))
	}
}

func configResetHandler(rules *RuleConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, rules.Reset())
	}
}

func parseTeamID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func teamScoreHandler(store Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseTeamID(chi.URLParam(r, "id"))
		if !ok {
			writeError(w, http.StatusBadRequest, "Invalid registration id")
			return
		}
		score, err := store.TeamScore(r.Context(), id)
		if err != nil {
			logger.Error("team score lookup failed", "team_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"registrationId": id, "score": score})
	}
}

func teamRedemptionsHandler(store Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseTeamID(chi.URLParam(r, "id"))
		if !ok {
			writeError(w, http.StatusBadRequest, "Invalid registration id")
			return
		}
		records, err := store.Redemptions(r.Context(), id)
		if err != nil {
			logger.Error("redemption history failed", "team_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, records)
	}
}

func teamScoresHandler(store Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scores, err := store.TeamScores(r.Context())
		if err != nil {
			logger.Error("team scores failed", "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, scores)
	}
}

type redeemRequest struct {
	RegistrationID any    `json:"registrationId"`
	ClusterLabel   string `json:"clusterLabel"`
	RedeemedBy     string `json:"redeemedBy"`
}

// registrationID accepts the id as a JSON number or a numeric string.
func (req redeemRequest) registrationID() (int64, bool) {
	switch v := req.RegistrationID.(type) {
	case float64:
		if v <= 0 || v != float64(int64(v)) {
			return 0, false
		}
		return int64(v), true
	case string:
		return parseTeamID(v)
	default:
		return 0, false
	}
}

func redeemHandler(engine *Engine, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req redeemRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		id, ok := req.registrationID()
		if !ok || strings.TrimSpace(req.ClusterLabel) == "" {
			writeError(w, http.StatusBadRequest, "registrationId and clusterLabel required")
			return
		}

		result, err := engine.Redeem(r.Context(), id, req.ClusterLabel, strings.TrimSpace(req.RedeemedBy))
		if err != nil {
			if isRedemptionError(err) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			logger.Error("redemption failed", "team_id", id, "cluster", req.ClusterLabel, "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func eligibleTeamsHandler(store Store, rules *RuleConfig, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		game := rules.Get().Rules
		teams, err := store.EligibleTeams(r.Context(), game.MinGroupSize, game.MaxGroupSize, minPointsThreshold(game.MinPointsRequired))
		if err != nil {
			logger.Error("eligible teams failed", "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, teams)
	}
}

func debugScoreHandler(store Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rfid := chi.URLParam(r, "rfid")
		teamID, ok, err := store.TeamForCard(r.Context(), rfid)
		if err != nil {
			logger.Error("debug score lookup failed", "rfid", rfid, "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "RFID not in team")
			return
		}
		score, err := store.TeamScore(r.Context(), teamID)
		if err != nil {
			logger.Error("debug score lookup failed", "rfid", rfid, "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"teamId": teamID, "score": score})
	}
}

func debugVisitsHandler(store Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rfid := chi.URLParam(r, "rfid")
		visits, ok, err := store.MemberVisits(r.Context(), rfid)
		if err != nil {
			logger.Error("debug visits lookup failed", "rfid", rfid, "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "RFID not found")
			return
		}
		writeJSON(w, http.StatusOK, visits)
	}
}
