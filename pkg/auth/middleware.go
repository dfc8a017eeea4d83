package auth

import (
	"net"
	"net/http"
	"strings"

	"fluxplay/pkg/config"
	"fluxplay/pkg/logger"
)

// RequireBackendKey guards authoring endpoints: the caller must present a
// configured backend API key in X-API-Key (or a Bearer token). Playback
// endpoints stay public; viewers are anonymous by design.
func RequireBackendKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.LogRequest(r)
		key := strings.TrimSpace(r.Header.Get("X-API-Key"))
		if key == "" {
			if ah := r.Header.Get("Authorization"); strings.HasPrefix(ah, "Bearer ") {
				key = strings.TrimSpace(strings.TrimPrefix(ah, "Bearer "))
			}
		}
		keys := config.GetBackendKeys()
		if len(keys) == 0 {
			logger.Error("no_backend_keys_configured", "path", r.URL.Path)
			http.Error(w, `{"error":"server misconfigured: no backend keys available"}`, http.StatusInternalServerError)
			return
		}
		if _, ok := keys[key]; !ok {
			logger.Warn("invalid_api_key", "path", r.URL.Path, "remote", r.RemoteAddr)
			http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit applies a per-client-IP token bucket to public endpoints.
func RateLimit(cfg LimitConfig) func(http.Handler) http.Handler {
	pool := &limiterPool{cfg: cfg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host := r.RemoteAddr
			if h, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
				host = h
			}
			if !pool.Allow(host) {
				logger.Warn("rate_limited", "remote", host, "path", r.URL.Path)
				http.Error(w, `{"error":"too many requests"}`, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
