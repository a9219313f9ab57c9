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

// EnvResult holds the results of applying environment overrides.
type EnvResult struct {
	BackendKeys map[string]struct{}
	SigningKeys map[string]struct{}
	EnvUsed     bool
}

// EffectiveConfigResult is the merged view of flags, env and config file
// that the rest of the server consumes.
type EffectiveConfigResult struct {
	Config *Config
	Addr   string
	DBPath string
	Source string // "flags", "config", or "env"
}

// ParseConfigFlags parses command-line flags and returns them as a Flags
// struct.
func ParseConfigFlags() Flags {
	addrPtr := flag.String("addr", ":8080", "HTTP listen address")
	dbPtr := flag.String("db", "./.database", "Pebble DB path")
	cfgPtr := flag.String("config", "./config.yaml", "Path to config file")
	flag.Parse()
	setFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	return Flags{Addr: *addrPtr, DB: *dbPtr, Config: *cfgPtr, Set: setFlags}
}

// ParseConfigFile resolves the config path and loads the YAML file. It
// returns the parsed config, whether the file was present, and an error
// for fatal parsing problems.
func ParseConfigFile(flags Flags) (*Config, bool, error) {
	cfgPath := ResolveConfigPath(flags.Config, flags.Set["config"])
	cfg, err := Load(cfgPath)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return &Config{}, false, nil
		}
		return nil, false, err
	}
	return cfg, true, nil
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

// ApplyEnvOverrides applies CITYSAFE_* environment overrides onto cfg and
// returns derived backend and signing key maps plus whether env vars were
// used.
func ApplyEnvOverrides(cfg *Config) EnvResult {
	envUsed := false

	if v := os.Getenv("CITYSAFE_ADDR"); v != "" {
		envUsed = true
		if h, p, err := net.SplitHostPort(v); err == nil {
			cfg.Server.Address = h
			if pi, err := strconv.Atoi(p); err == nil {
				cfg.Server.Port = pi
			}
		} else {
			cfg.Server.Address = v
		}
	}
	if v := os.Getenv("CITYSAFE_DB_PATH"); v != "" {
		envUsed = true
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("CITYSAFE_MEDIA_DIR"); v != "" {
		envUsed = true
		cfg.Storage.MediaDir = v
	}
	if v := os.Getenv("CITYSAFE_CORS_ORIGINS"); v != "" {
		envUsed = true
		cfg.Security.CORS.AllowedOrigins = parseList(v)
	}
	if v := os.Getenv("CITYSAFE_RATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			envUsed = true
			cfg.Security.RateLimit.RPS = f
		}
	}
	if v := os.Getenv("CITYSAFE_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envUsed = true
			cfg.Security.RateLimit.Burst = n
		}
	}
	if v := os.Getenv("CITYSAFE_IP_WHITELIST"); v != "" {
		envUsed = true
		cfg.Security.IPWhitelist = parseList(v)
	}
	if v := os.Getenv("CITYSAFE_API_BACKEND_KEYS"); v != "" {
		envUsed = true
		cfg.Security.APIKeys.Backend = parseList(v)
	}
	if v := os.Getenv("CITYSAFE_API_FRONTEND_KEYS"); v != "" {
		envUsed = true
		cfg.Security.APIKeys.Frontend = parseList(v)
	}
	if v := os.Getenv("CITYSAFE_API_ADMIN_KEYS"); v != "" {
		envUsed = true
		cfg.Security.APIKeys.Admin = parseList(v)
	}
	if v := os.Getenv("CITYSAFE_WEATHER_API_KEY"); v != "" {
		envUsed = true
		cfg.External.Weather.APIKey = v
	}
	if v := os.Getenv("CITYSAFE_WEATHER_URL"); v != "" {
		envUsed = true
		cfg.External.Weather.BaseURL = v
	}
	if v := os.Getenv("CITYSAFE_GEOCODE_URL"); v != "" {
		envUsed = true
		cfg.External.Geocode.BaseURL = v
	}
	if c := os.Getenv("CITYSAFE_TLS_CERT"); c != "" {
		envUsed = true
		cfg.Server.TLS.CertFile = c
	}
	if k := os.Getenv("CITYSAFE_TLS_KEY"); k != "" {
		envUsed = true
		cfg.Server.TLS.KeyFile = k
	}

	backendKeys := map[string]struct{}{}
	for _, k := range cfg.Security.APIKeys.Backend {
		backendKeys[k] = struct{}{}
	}
	// Signing keys are identical to backend API keys.
	signingKeys := map[string]struct{}{}
	for k := range backendKeys {
		signingKeys[k] = struct{}{}
	}
	return EnvResult{BackendKeys: backendKeys, SigningKeys: signingKeys, EnvUsed: envUsed}
}

// LoadEffective loads the config file at path (missing file is not fatal),
// applies environment overrides and resolves the listen address and DB
// path honoring flag precedence: flags win over env, env wins over file.
func LoadEffective(flags Flags) (EffectiveConfigResult, EnvResult, error) {
	cfg, fileExists, err := ParseConfigFile(flags)
	if err != nil {
		return EffectiveConfigResult{}, EnvResult{}, err
	}
	envRes := ApplyEnvOverrides(cfg)

	eff := EffectiveConfigResult{Config: cfg}
	switch {
	case len(flags.Set) > 0:
		eff.Source = "flags"
	case envRes.EnvUsed:
		eff.Source = "env"
	case fileExists:
		eff.Source = "config"
	default:
		eff.Source = "flags"
	}

	if flags.Set["addr"] {
		eff.Addr = flags.Addr
	} else {
		eff.Addr = cfg.Addr()
	}
	if flags.Set["db"] {
		eff.DBPath = flags.DB
	} else if cfg.Storage.DBPath != "" {
		eff.DBPath = cfg.Storage.DBPath
	} else {
		eff.DBPath = flags.DB
	}
	return eff, envRes, nil
}
