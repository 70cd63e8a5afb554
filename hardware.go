package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type rfidReadRequest struct {
	Reader string `json:"reader"`
	Portal string `json:"portal"`
	Tag    string `json:"tag"`
}

// rfidReadHandler persists a raw reader event and then runs scoring on it.
// Scoring is best-effort: its failures are logged and never change the
// response, because the tap itself is already stored.
func rfidReadHandler(store Store, engine *Engine, allow *readerAllowlist, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !allow.Allows(ip) {
			logger.Warn("tap rejected from unlisted reader", "ip", ip)
			writeError(w, http.StatusForbidden, "Reader not allowed")
			return
		}

		var req rfidReadRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		req.Reader = strings.TrimSpace(req.Reader)
		req.Portal = strings.TrimSpace(req.Portal)
		req.Tag = strings.TrimSpace(req.Tag)
		if req.Reader == "" || req.Portal == "" || req.Tag == "" {
			writeError(w, http.StatusBadRequest, "Missing reader, portal or tag")
			return
		}
		if !isValidCardID(req.Tag) || !isValidReaderField(req.Reader) || !isValidReaderField(req.Portal) {
			writeError(w, http.StatusBadRequest, "Invalid reader, portal or tag")
			return
		}

		tap, err := store.RecordTap(r.Context(), req.Tag, req.Portal, req.Reader, time.Now())
		if err != nil {
			logger.Error("tap insert failed", "tag", req.Tag, "reader", req.Reader, "error", err)
			writeError(w, http.StatusInternalServerError, "Database error")
			return
		}
		logger.Debug("tap recorded", "id", tap.ID, "tag", tap.RFIDCardID, "reader", tap.Label, "portal", tap.Portal)

		// A disconnecting reader must not abort scoring halfway.
		result, err := engine.OnTapPersisted(context.WithoutCancel(r.Context()), tap)
		if err != nil {
			logger.Warn("scoring hook failed", "tap_id", tap.ID, "error", err)
		} else if !result.Skipped {
			logger.Debug("tap scored", "tap_id", tap.ID, "team_id", result.TeamID, "points", result.Points)
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"status": "success",
			"entry":  tap,
		})
	}
}
