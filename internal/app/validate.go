package app

import (
	"fmt"
	"os"
	"time"

	"citysafe/pkg/config"
)

// validateConfig performs quick, fail-fast validation of the effective
// configuration before starting long-running services.
func validateConfig(eff config.EffectiveConfigResult) error {
	if eff.DBPath == "" {
		return fmt.Errorf("database path is empty: set --db flag, CITYSAFE_DB_PATH env, or storage.db_path in config")
	}

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

	if p := eff.Config.Retention.Period; p != "" {
		if _, err := time.ParseDuration(p); err != nil {
			return fmt.Errorf("invalid retention.period %q: %w", p, err)
		}
	}

	if len(eff.Config.Security.APIKeys.Backend) == 0 {
		// signing depends on backend keys; warn-level failure is not enough
		// because /v1/login and /v1/sign would always 500.
		return fmt.Errorf("no backend API keys configured: set security.api_keys.backend or CITYSAFE_API_BACKEND_KEYS")
	}

	return nil
}
