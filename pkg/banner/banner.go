package banner

import (
	"fmt"

	"fluxplay/pkg/config"
)

const banner = `
███████╗██╗     ██╗   ██╗██╗  ██╗██████╗ ██╗      █████╗ ██╗   ██╗
██╔════╝██║     ██║   ██║╚██╗██╔╝██╔══██╗██║     ██╔══██╗╚██╗ ██╔╝
█████╗  ██║     ██║   ██║ ╚███╔╝ ██████╔╝██║     ███████║ ╚████╔╝
██╔══╝  ██║     ██║   ██║ ██╔██╗ ██╔═══╝ ██║     ██╔══██║  ╚██╔╝
██║     ███████╗╚██████╔╝██╔╝ ██╗██║     ███████╗██║  ██║   ██║
╚═╝     ╚══════╝ ╚═════╝ ╚═╝  ╚═╝╚═╝     ╚══════╝╚═╝  ╚═╝   ╚═╝
`

// PrintWithEff prints the startup banner with runtime context from the
// effective config.
func PrintWithEff(eff config.EffectiveConfigResult, version string) {
	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", eff.Addr)
	fmt.Printf("DB Path:  %s\n", eff.DBPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	fmt.Printf("Config:   %s\n", eff.Source)

	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("GET  /v1/chats/{chat}/next?cursor=<n>&run=<id> - Fetch the next playback block")
	fmt.Println("POST /v1/chats/{chat}/answers - Submit a viewer answer (JSON: cursor, run, answer)")
	fmt.Println("POST /v1/chats/{chat}/actions - Report an analytics action (fire-and-forget)")
	fmt.Println("POST /v1/chats - Create a chat template (backend key required)")
	fmt.Println("POST /v1/chats/{chat}/blocks - Append a script block (backend key required)")

	fmt.Println("\n== Production? =================================================")
	be := 0
	if eff.Config != nil {
		be = len(eff.Config.Security.APIKeys.Backend)
	}
	if be > 0 {
		fmt.Printf("- Backend API keys: OK (%d)\n", be)
	} else {
		fmt.Println("- Backend API keys: MISSING (required for authoring endpoints)")
	}
	if eff.Config != nil && eff.Config.Server.TLS.CertFile != "" && eff.Config.Server.TLS.KeyFile != "" {
		fmt.Println("- TLS: configured")
	} else {
		fmt.Println("- TLS: unconfigured")
	}
	if eff.Config != nil && eff.Config.Retention.Enabled {
		if eff.Config.Retention.Cron != "" {
			fmt.Printf("- Retention: enabled (cron=%s)\n", eff.Config.Retention.Cron)
		} else {
			fmt.Println("- Retention: enabled")
		}
	} else {
		fmt.Println("- Retention: disabled")
	}

	fmt.Println("\n== Logs: =================================================")
}
