package main

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
)

const adminKeyHeader = "X-Admin-Key"

// requireAdmin guards rule changes and redemptions with the shared admin key.
// Without a configured key every guarded route answers 403.
func requireAdmin(adminKey string, limiter *attemptLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKey == "" {
				writeError(w, http.StatusForbidden, "Admin key not configured")
				return
			}

			ip := clientIP(r)
			if blocked, retryAfter := limiter.Blocked(ip); blocked {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeError(w, http.StatusTooManyRequests, "Too many attempts")
				return
			}

			provided := strings.TrimSpace(r.Header.Get(adminKeyHeader))
			if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(adminKey)) != 1 {
				limiter.Fail(ip)
				logger.Warn("admin key rejected", "ip", ip, "path", r.URL.Path)
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
