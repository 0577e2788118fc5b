// Package middleware carries the outer HTTP request policy: a CORS
// allow-list and per-client-IP rate limiting. The relay is an open demo,
// so there is no caller authentication; rate limiting is what keeps one
// noisy client from starving the classroom.
package middleware

import (
	"net"
	"net/http"
	"strings"

	"cipherrelay/pkg/logger"
	"cipherrelay/pkg/utils"
)

// SecConfig is the request policy applied in front of the router.
type SecConfig struct {
	AllowedOrigins []string
	RPS            float64
	Burst          int
}

// Guard wraps next with CORS handling and rate limiting. Health probes
// are never rate limited.
func Guard(cfg SecConfig) func(http.Handler) http.Handler {
	// rate limiters keyed by remote ip
	limiters := &limiterPool{cfg: cfg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && originAllowed(origin, cfg.AllowedOrigins) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
				w.Header().Set("Access-Control-Max-Age", "600")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if (r.URL.Path == "/healthz" || r.URL.Path == "/readyz") && r.Method == http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r)
			if !limiters.Allow(ip) {
				utils.JSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
				logger.Warn("request_rate_limited", "ip", ip, "path", r.URL.Path)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// originAllowed checks the Origin header against the configured list.
// An empty list or a "*" entry allows any origin.
func originAllowed(origin string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		a = strings.TrimSpace(a)
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}

// clientIP extracts the remote host from the request.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
