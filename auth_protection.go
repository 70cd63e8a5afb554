package main

import (
	"strings"
	"sync"
	"time"
)

type attemptWindow struct {
	start    time.Time
	attempts int
}

// attemptLimiter is a fixed-window counter of failed admin key attempts per
// client IP.
type attemptLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	windows map[string]attemptWindow
	now     func() time.Time
}

func newAttemptLimiter(limit int, window time.Duration) *attemptLimiter {
	return &attemptLimiter{
		limit:   limit,
		window:  window,
		windows: make(map[string]attemptWindow),
		now:     time.Now,
	}
}

// Blocked reports whether ip has used up its attempts, and the seconds left
// until the window resets.
func (l *attemptLimiter) Blocked(ip string) (bool, int) {
	ip = strings.TrimSpace(ip)
	if l == nil || ip == "" || l.limit <= 0 || l.window <= 0 {
		return false, 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[ip]
	if !ok {
		return false, 0
	}
	elapsed := l.now().Sub(w.start)
	if elapsed >= l.window {
		delete(l.windows, ip)
		return false, 0
	}
	if w.attempts < l.limit {
		return false, 0
	}
	retryAfter := int(l.window.Seconds() - elapsed.Seconds())
	if retryAfter < 0 {
		retryAfter = 0
	}
	return true, retryAfter
}

func (l *attemptLimiter) Fail(ip string) {
	ip = strings.TrimSpace(ip)
	if l == nil || ip == "" || l.limit <= 0 || l.window <= 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[ip]
	if !ok || now.Sub(w.start) >= l.window {
		l.windows[ip] = attemptWindow{start: now, attempts: 1}
		return
	}
	w.attempts++
	l.windows[ip] = w
}
