// Package telemetry provides low-overhead HTTP request instrumentation:
// prometheus latency histograms plus a warning log for slow requests.
package telemetry

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"fluxplay/pkg/logger"
)

var slowThreshold = 200 * time.Millisecond

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fluxplay_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fluxplay_http_requests_total",
		Help: "HTTP requests by status class.",
	}, []string{"method", "path", "status"})
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware instruments every request. Path labels use the route
// template resolved by the router when available, else the raw path.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		dur := time.Since(start)

		path := routePattern(r)
		requestDuration.WithLabelValues(r.Method, path).Observe(dur.Seconds())
		requestTotal.WithLabelValues(r.Method, path, statusClass(rec.status)).Inc()

		if dur >= slowThreshold {
			logger.Warn("slow_request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", dur.Milliseconds(),
			)
		}
	})
}

// routePattern prefers the mux route template so label cardinality stays
// bounded regardless of chat and block ids in the path.
func routePattern(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
