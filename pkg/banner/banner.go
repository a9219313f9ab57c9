package banner

import (
	"fmt"

	"citysafe/pkg/config"
)

const banner = `
 ██████╗██╗████████╗██╗   ██╗███████╗ █████╗ ███████╗███████╗
██╔════╝██║╚══██╔══╝╚██╗ ██╔╝██╔════╝██╔══██╗██╔════╝██╔════╝
██║     ██║   ██║    ╚████╔╝ ███████╗███████║█████╗  █████╗
██║     ██║   ██║     ╚██╔╝  ╚════██║██╔══██║██╔══╝  ██╔══╝
╚██████╗██║   ██║      ██║   ███████║██║  ██║██║     ███████╗
 ╚═════╝╚═╝   ╚═╝      ╚═╝   ╚══════╝╚═╝  ╚═╝╚═╝     ╚══════╝
`

// PrintWithEff prints the startup banner with the effective runtime
// config and a quick production checklist.
func PrintWithEff(eff config.EffectiveConfigResult, version string) {
	addr := eff.Addr
	if addr == "" && eff.Config != nil {
		addr = eff.Config.Addr()
	}
	dbPath := eff.DBPath
	if dbPath == "" && eff.Config != nil {
		dbPath = eff.Config.Storage.DBPath
	}
	src := eff.Source
	if src == "" {
		src = "flags"
	}

	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", addr)
	fmt.Printf("DB Path:  %s\n", dbPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	fmt.Printf("Config: %s\n", src)

	fmt.Println("\n== Examples ===================================================")
	fmt.Println("curl -X POST 'http://<host>:<port>/v1/sos' -d '{\"type\":\"medical\",\"location\":{\"lat\":41.0,\"lng\":28.9}}'")
	fmt.Println("curl 'http://<host>:<port>/v1/channels/istanbul/messages?limit=10'")

	fmt.Println("\n== Production? =================================================")
	be, fe, ak := 0, 0, 0
	if eff.Config != nil {
		be = len(eff.Config.Security.APIKeys.Backend)
		fe = len(eff.Config.Security.APIKeys.Frontend)
		ak = len(eff.Config.Security.APIKeys.Admin)
	}
	if be > 0 {
		fmt.Printf("- Backend API keys: OK (%d)\n", be)
	} else {
		fmt.Println("- Backend API keys: MISSING (required for backend services)")
	}
	if fe > 0 {
		fmt.Printf("- Frontend API keys: OK (%d)\n", fe)
	} else {
		fmt.Println("- Frontend API keys: MISSING (required for mobile clients)")
	}
	if ak > 0 {
		fmt.Printf("- Admin API keys: OK (%d)\n", ak)
	} else {
		fmt.Println("- Admin API keys: MISSING (required for dashboards)")
	}

	tlsOK := eff.Config != nil && eff.Config.Server.TLS.CertFile != "" && eff.Config.Server.TLS.KeyFile != ""
	if tlsOK {
		fmt.Println("- TLS: configured")
	} else {
		fmt.Println("- TLS: unconfigured")
	}

	weatherOK := eff.Config != nil && eff.Config.External.Weather.APIKey != ""
	if weatherOK {
		fmt.Println("- Weather proxy: configured")
	} else {
		fmt.Println("- Weather proxy: MISSING API key (GET /v1/weather will 503)")
	}
}
