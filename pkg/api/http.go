// Package api assembles the HTTP surface: public playback endpoints,
// key-guarded authoring endpoints and the operational routes.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"fluxplay/pkg/actionlog"
	"fluxplay/pkg/api/handlers"
	"fluxplay/pkg/auth"
	"fluxplay/pkg/player"
	"fluxplay/pkg/store"
	"fluxplay/pkg/telemetry"
)

// Deps carries the wired components the routes close over.
type Deps struct {
	Seq   *player.Sequencer
	Logs  *actionlog.Sink
	Limit auth.LimitConfig
}

// Handler returns the fully assembled router.
func Handler(d Deps) http.Handler {
	r := mux.NewRouter()
	r.Use(telemetry.Middleware)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !store.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"store not ready"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.PathPrefix("/docs/").Handler(httpSwagger.WrapHandler)

	v1 := r.PathPrefix("/v1").Subrouter()

	// public playback surface, rate limited per viewer IP
	play := v1.NewRoute().Subrouter()
	play.Use(auth.RateLimit(d.Limit))
	handlers.RegisterPlayback(play, d.Seq, d.Logs)

	// authoring surface, backend key required
	authoring := v1.NewRoute().Subrouter()
	authoring.Use(auth.RequireBackendKey)
	handlers.RegisterChats(authoring)
	handlers.RegisterBlocks(authoring)

	return r
}
