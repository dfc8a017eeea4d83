package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/joho/godotenv"

	"fluxplay/internal/retention"
	"fluxplay/pkg/actionlog"
	"fluxplay/pkg/config"
	"fluxplay/pkg/logger"
	"fluxplay/pkg/player"
	"fluxplay/pkg/store"
)

// App encapsulates the server components and lifecycle.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	logs *actionlog.Sink
	seq  *player.Sequencer

	retentionCancel context.CancelFunc

	srv *http.Server
}

// New initializes resources that do not require a running context (DB,
// runtime keys, the sequencer). It does not start the action-log workers
// or the HTTP server; call Run to start those and block until shutdown.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	_ = godotenv.Load(".env")

	// validate effective config early and fail fast
	if err := validateConfig(eff); err != nil {
		return nil, err
	}

	// runtime keys
	runtimeCfg := &config.RuntimeConfig{BackendKeys: map[string]struct{}{}}
	for _, k := range eff.Config.Security.APIKeys.Backend {
		runtimeCfg.BackendKeys[k] = struct{}{}
	}
	config.SetRuntime(runtimeCfg)

	// open store
	if err := store.Open(eff.DBPath); err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", eff.DBPath, err)
	}

	logs := actionlog.New(
		eff.Config.ActionLog.QueueCapacity,
		eff.Config.ActionLog.Workers,
		store.AppendAction,
	)
	seq := player.NewSequencer(store.Playback(), logs)

	a := &App{
		eff:       eff,
		version:   version,
		commit:    commit,
		buildDate: buildDate,
		logs:      logs,
		seq:       seq,
	}
	return a, nil
}

// Run starts the action-log sink, the retention scheduler and the HTTP
// server, and blocks until ctx is canceled or a fatal server error occurs.
func (a *App) Run(ctx context.Context) error {
	a.logs.Start(ctx)

	cancel, err := retention.Start(ctx, a.eff.Config.Retention)
	if err != nil {
		return err
	}
	a.retentionCancel = cancel

	a.printBanner()

	errCh := a.startHTTP(ctx)

	select {
	case <-ctx.Done():
		a.shutdown()
		return nil
	case err := <-errCh:
		a.shutdown()
		return err
	}
}

// shutdown stops background components and drains the action log so
// buffered analytics are not lost on exit.
func (a *App) shutdown() {
	if a.retentionCancel != nil {
		a.retentionCancel()
	}
	if a.srv != nil {
		sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer scancel()
		if err := a.srv.Shutdown(sctx); err != nil {
			logger.Warn("http_shutdown_error", "error", err)
		}
	}
	a.logs.Close()
	if err := store.Close(); err != nil {
		logger.Warn("store_close_error", "error", err)
	}
	logger.Info("shutdown_complete")
}
