package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type server struct {
	cfg     Config
	store   Store
	rules   *RuleConfig
	bus     *LiveEventBus
	engine  *Engine
	allow   *readerAllowlist
	limiter *attemptLimiter
	logger  *slog.Logger
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(chimw.Recoverer)

	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Post("/rfid/read", rfidReadHandler(s.store, s.engine, s.allow, s.logger))

		r.Route("/kiosk", func(r chi.Router) {
			r.Get("/clusters", kioskClustersHandler(s.rules))
			r.Get("/cluster/{label}/stream", kioskStreamHandler(s.rules, s.bus, s.cfg.KioskHeartbeat, s.cfg.KioskBuffer))
			r.Get("/eligibility/by-card/{rfid}", kioskEligibilityHandler(s.store, s.rules, s.logger))
		})

		r.Route("/game-lite", func(r chi.Router) {
			r.Get("/status", statusHandler(s.rules))
			r.Get("/config", configGetHandler(s.rules))
			r.Get("/team/{id}/score", teamScoreHandler(s.store, s.logger))
			r.Get("/team/{id}/redemptions", teamRedemptionsHandler(s.store, s.logger))
			r.Get("/teams/scores", teamScoresHandler(s.store, s.logger))
			r.Get("/eligible-teams", eligibleTeamsHandler(s.store, s.rules, s.logger))
			r.Get("/leaderboard", leaderboardHandler(s.store, s.logger))
			r.Get("/debug/score/{rfid}", debugScoreHandler(s.store, s.logger))
			r.Get("/debug/visits/{rfid}", debugVisitsHandler(s.store, s.logger))

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin(s.cfg.AdminKey, s.limiter, s.logger))
				r.Post("/config", configUpdateHandler(s.rules))
				r.Post("/config/reset", configResetHandler(s.rules))
				r.Post("/redeem", redeemHandler(s.engine, s.logger))
			})
		})
	})

	return r
}

// requestLogger logs one line per request once the handler returns. The
// wrapped writer keeps http.Flusher so event streams still flush.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.Log(r.Context(), level, "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", chimw.GetReqID(r.Context()),
			)
		})
	}
}
