package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"citysafe/internal/retention"
	"citysafe/pkg/config"
	"citysafe/pkg/external"
	"citysafe/pkg/live"
	"citysafe/pkg/logger"
	"citysafe/pkg/media"
	"citysafe/pkg/store"
	"citysafe/pkg/telemetry"
	"citysafe/pkg/validation"
)

// App encapsulates the server components and lifecycle.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	hub     *live.Hub
	media   *media.Store
	weather *external.WeatherClient
	geocode *external.GeocodeClient

	retentionCancel context.CancelFunc
	srv             *http.Server
}

// New initializes resources that do not require a running context (DB,
// media store, validation rules, runtime keys, external clients). Call
// Run to start the scheduler and HTTP server and block until shutdown.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	_ = godotenv.Load(".env")

	if err := validateConfig(eff); err != nil {
		return nil, err
	}

	// runtime keys: backend keys double as identity-signing secrets
	runtimeCfg := &config.RuntimeConfig{BackendKeys: map[string]struct{}{}, SigningKeys: map[string]struct{}{}}
	for _, k := range eff.Config.Security.APIKeys.Backend {
		runtimeCfg.BackendKeys[k] = struct{}{}
		runtimeCfg.SigningKeys[k] = struct{}{}
	}
	config.SetRuntime(runtimeCfg)

	initValidation(eff)

	if err := store.Open(eff.DBPath); err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", eff.DBPath, err)
	}
	telemetry.SetTraceDir(eff.DBPath + "/logs")

	mediaDir := eff.Config.Storage.MediaDir
	if mediaDir == "" {
		mediaDir = eff.DBPath + "/media"
	}
	ms, err := media.NewStore(mediaDir, eff.Config.Storage.MaxUploadBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to open media store at %s: %w", mediaDir, err)
	}

	a := &App{
		eff:       eff,
		version:   version,
		commit:    commit,
		buildDate: buildDate,
		hub:       live.NewHub(),
		media:     ms,
	}
	a.setupExternal()
	return a, nil
}

// setupExternal builds the upstream proxy clients. The weather client
// is only wired when an API key is configured; geocoding needs none.
func (a *App) setupExternal() {
	ext := a.eff.Config.External
	if ext.Weather.APIKey != "" {
		timeout := time.Duration(ext.Weather.TimeoutMs) * time.Millisecond
		a.weather = external.NewWeatherClient(ext.Weather.BaseURL, ext.Weather.APIKey, timeout)
	} else {
		logger.Warn("weather_client_disabled", "reason", "no api key configured")
	}
	gTimeout := time.Duration(ext.Geocode.TimeoutMs) * time.Millisecond
	gTTL := time.Duration(ext.Geocode.CacheTTLS) * time.Second
	a.geocode = external.NewGeocodeClient(ext.Geocode.BaseURL, gTimeout, gTTL)
}

// Run starts the retention scheduler and the HTTP server, and blocks
// until ctx is canceled or a fatal server error occurs.
func (a *App) Run(ctx context.Context) error {
	retention.SetEffectiveConfig(a.eff, a.media)
	cancel, err := retention.Start(ctx, a.eff, a.media)
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
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// shutdown drains the HTTP server and closes the store.
func (a *App) shutdown() {
	if a.retentionCancel != nil {
		a.retentionCancel()
	}
	if a.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.srv.Shutdown(ctx); err != nil {
			logger.Warn("http_shutdown_incomplete", "err", err)
		}
	}
	if err := store.Close(); err != nil {
		logger.Warn("store_close_failed", "err", err)
	}
	logger.Info("server_stopped")
}

// initValidation builds message validation rules from config and sets
// them globally.
func initValidation(eff config.EffectiveConfigResult) {
	vr := validation.Rules{Types: map[string]string{}, MaxLen: map[string]int{}, Enums: map[string][]string{}}
	vr.Required = append(vr.Required, eff.Config.Validation.Required...)
	for _, t := range eff.Config.Validation.Types {
		vr.Types[t.Path] = t.Type
	}
	for _, ml := range eff.Config.Validation.MaxLen {
		vr.MaxLen[ml.Path] = ml.Max
	}
	for _, e := range eff.Config.Validation.Enums {
		vr.Enums[e.Path] = append([]string{}, e.Values...)
	}
	validation.SetRules(vr)
}
