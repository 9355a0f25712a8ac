package ratelimit

import (
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
)

// TooManyRequestsMessage is the 429 body's error text.
const TooManyRequestsMessage = "Too many requests. Please slow down."

// Middleware limits requests by client IP. Put chi's RealIP middleware in
// front of it when running behind a proxy. If the store fails the request
// is let through and the failure is logged.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := ClientIP(r)
		d, err := l.Allow(r.Context(), key)
		if err != nil {
			slog.Error("rate limiter unavailable", "client", key, "err", err)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.max))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if !d.Allowed {
			retry := int(math.Ceil(d.ResetAt.Sub(l.now()).Seconds()))
			if retry < 1 {
				retry = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": TooManyRequestsMessage})
			slog.Warn("rate limit exceeded", "client", key)
			if l.OnLimited != nil {
				l.OnLimited(key)
			}
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the host part of r.RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
