package app

import (
	"context"
	"net/http"
	"time"

	"fluxplay/pkg/api"
	"fluxplay/pkg/auth"
	"fluxplay/pkg/banner"
)

const shutdownTimeout = 10 * time.Second

// printBanner prints the startup banner and build info.
func (a *App) printBanner() {
	verStr := a.version
	if a.commit != "" && a.commit != "none" {
		verStr += " (" + a.commit + ")"
	}
	if a.buildDate != "" && a.buildDate != "unknown" {
		verStr += " @ " + a.buildDate
	}
	banner.PrintWithEff(a.eff, verStr)
}

// startHTTP builds the handler, starts the HTTP server in a goroutine and
// returns a channel that will contain any server error.
func (a *App) startHTTP(_ context.Context) <-chan error {
	handler := api.Handler(api.Deps{
		Seq:  a.seq,
		Logs: a.logs,
		Limit: auth.LimitConfig{
			RPS:   a.eff.Config.Security.RateLimit.RPS,
			Burst: a.eff.Config.Security.RateLimit.Burst,
		},
	})

	a.srv = &http.Server{
		Addr:              a.eff.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		cert := a.eff.Config.Server.TLS.CertFile
		key := a.eff.Config.Server.TLS.KeyFile
		if cert != "" && key != "" {
			errCh <- a.srv.ListenAndServeTLS(cert, key)
		} else {
			errCh <- a.srv.ListenAndServe()
		}
	}()
	return errCh
}
