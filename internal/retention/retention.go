// Package retention purges aged action-log entries on a cron schedule.
// Captures and blocks are never touched; only analytics records expire.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"fluxplay/pkg/config"
	"fluxplay/pkg/logger"
	"fluxplay/pkg/store"
)

// Start launches the retention scheduler if enabled. Returns a cancel func.
func Start(ctx context.Context, cfg config.RetentionConfig) (context.CancelFunc, error) {
	if !cfg.Enabled {
		logger.Info("retention_disabled")
		return func() {}, nil
	}
	period, err := time.ParseDuration(cfg.Period)
	if err != nil || period <= 0 {
		return nil, fmt.Errorf("invalid retention period %q", cfg.Period)
	}
	cronExpr := cfg.Cron
	if cronExpr == "" {
		// default daily @02:00
		cronExpr = "0 2 * * *"
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("retention_invalid_cron", "cron", cfg.Cron)
		return nil, fmt.Errorf("invalid retention cron expression: %s", cfg.Cron)
	}

	logger.Info("retention_enabled", "cron", cronExpr, "period", cfg.Period)
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, cronExpr, period, cfg.DryRun)
	return cancel, nil
}

// RunOnce performs a single purge pass and returns the removed count.
func RunOnce(period time.Duration, dryRun bool) (int, error) {
	cutoff := time.Now().Add(-period)
	if dryRun {
		logger.Info("retention_dry_run", "cutoff", cutoff.UTC().Format(time.RFC3339))
		return 0, nil
	}
	return store.PurgeActionsBefore(cutoff)
}

func runScheduler(ctx context.Context, cronExpr string, period time.Duration, dryRun bool) {
	g := gronx.New()
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopped")
			return
		case <-ticker.C:
			due, err := g.IsDue(cronExpr, time.Now())
			if err != nil || !due {
				continue
			}
			removed, err := RunOnce(period, dryRun)
			if err != nil {
				logger.Error("retention_run_failed", "error", err)
				continue
			}
			logger.Info("retention_run_completed", "removed", removed)
		}
	}
}
