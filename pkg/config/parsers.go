package config

import (
	"flag"
	"net"
	"os"
	"strconv"
	"strings"
)

// Flags holds parsed command-line flag values and which were set.
type Flags struct {
	Addr   string
	DB     string
	Config string
	Set    map[string]bool
}

// ParseCommandFlags parses command-line flags and returns them as a Flags
// struct. Flags win over file and env when explicitly set.
func ParseCommandFlags() Flags {
	addrPtr := flag.String("addr", ":8080", "HTTP listen address")
	dbPtr := flag.String("db", "./.database", "Pebble DB path")
	cfgPtr := flag.String("config", "./config.yaml", "Path to config file")
	flag.Parse()
	setFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	return Flags{Addr: *addrPtr, DB: *dbPtr, Config: *cfgPtr, Set: setFlags}
}

// ResolveConfigPath picks the config file path: an explicit flag wins,
// then FLUXPLAY_CONFIG, then the flag default.
func ResolveConfigPath(flagPath string, flagSet bool) string {
	if flagSet {
		return flagPath
	}
	if v := os.Getenv("FLUXPLAY_CONFIG"); v != "" {
		return v
	}
	return flagPath
}

// applyEnvOverrides reads FLUXPLAY_* environment variables into cfg and
// reports whether any were present.
func applyEnvOverrides(cfg *Config) bool {
	used := false

	if v := os.Getenv("FLUXPLAY_SERVER_ADDR"); v != "" {
		used = true
		if h, p, err := net.SplitHostPort(v); err == nil {
			cfg.Server.Address = h
			if pi, err := strconv.Atoi(p); err == nil {
				cfg.Server.Port = pi
			}
		} else {
			cfg.Server.Address = v
		}
	}
	if v := os.Getenv("FLUXPLAY_DB_PATH"); v != "" {
		used = true
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("FLUXPLAY_LOG_LEVEL"); v != "" {
		used = true
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FLUXPLAY_BACKEND_KEYS"); v != "" {
		used = true
		cfg.Security.APIKeys.Backend = parseList(v)
	}
	if v := os.Getenv("FLUXPLAY_RATE_RPS"); v != "" {
		used = true
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Security.RateLimit.RPS = f
		}
	}
	if v := os.Getenv("FLUXPLAY_RATE_BURST"); v != "" {
		used = true
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Security.RateLimit.Burst = n
		}
	}
	if v := os.Getenv("FLUXPLAY_RETENTION_ENABLED"); v != "" {
		used = true
		cfg.Retention.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("FLUXPLAY_RETENTION_CRON"); v != "" {
		used = true
		cfg.Retention.Cron = v
	}
	if v := os.Getenv("FLUXPLAY_RETENTION_PERIOD"); v != "" {
		used = true
		cfg.Retention.Period = v
	}
	return used
}

func parseList(v string) []string {
	if v == "" {
		return nil
	}
	parts := []string{}
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}
