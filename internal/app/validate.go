package app

import (
	"fmt"
	"os"
	"time"

	"fluxplay/pkg/config"
)

// validateConfig performs quick, fail-fast validation of the effective
// configuration before starting long-running services. Keep checks light
// and focused so callers can surface user-friendly errors.
func validateConfig(eff config.EffectiveConfigResult) error {
	// DB path must be present
	if p := eff.DBPath; p == "" {
		return fmt.Errorf("database path is empty: set --db flag, FLUXPLAY_DB_PATH env, or storage.db_path in config")
	}

	// TLS cert/key presence check if one is set
	cert := eff.Config.Server.TLS.CertFile
	key := eff.Config.Server.TLS.KeyFile
	if (cert != "" && key == "") || (cert == "" && key != "") {
		return fmt.Errorf("incomplete TLS configuration: both server.tls.cert_file and server.tls.key_file must be set")
	}
	if cert != "" {
		if _, err := os.Stat(cert); err != nil {
			return fmt.Errorf("tls cert file not accessible: %w", err)
		}
		if _, err := os.Stat(key); err != nil {
			return fmt.Errorf("tls key file not accessible: %w", err)
		}
	}

	// retention period must parse if the purge runner is enabled
	if eff.Config.Retention.Enabled {
		d, err := time.ParseDuration(eff.Config.Retention.Period)
		if err != nil || d <= 0 {
			return fmt.Errorf("retention enabled but retention.period %q is not a positive duration", eff.Config.Retention.Period)
		}
	}

	if eff.Config.ActionLog.QueueCapacity < 0 {
		return fmt.Errorf("action_log.queue_capacity must not be negative")
	}
	if eff.Config.ActionLog.Workers < 0 {
		return fmt.Errorf("action_log.workers must not be negative")
	}

	return nil
}
