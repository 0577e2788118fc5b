package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"cipherrelay/internal/monitor"
	"cipherrelay/pkg/banner"
	"cipherrelay/pkg/config"
	"cipherrelay/pkg/logger"
	"cipherrelay/pkg/relay"
	"cipherrelay/pkg/security"
	"cipherrelay/pkg/store"
	"cipherrelay/pkg/visual"
)

// App encapsulates the server components and lifecycle.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	engine  *security.Engine
	store   *store.Store
	hub     *relay.Hub
	relay   *relay.Relay
	visual  *visual.Service
	demoKey bool

	srv           *http.Server
	monitorCancel context.CancelFunc
}

// New initializes resources that do not require a running context: config
// validation, the cipher engine and the store. Call Run to start the HTTP
// server and block until shutdown.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	// validate effective config early and fail fast
	if err := validateConfig(eff); err != nil {
		return nil, err
	}

	keyHex, demoKey, err := eff.Config.KeyHex()
	if err != nil {
		return nil, err
	}
	engine, err := security.NewEngineHex(keyHex, eff.Config.Security.Encryption.KeyVersion)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key: %w", err)
	}
	if demoKey {
		logger.Warn("using_builtin_demo_key")
	}

	st, err := store.Open(eff.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", eff.DBPath, err)
	}

	hub := relay.NewHub()
	rl := relay.New(engine, st, hub, eff.Config.Relay.MaxMessageBytes)

	a := &App{
		eff:       eff,
		version:   version,
		commit:    commit,
		buildDate: buildDate,
		engine:    engine,
		store:     st,
		hub:       hub,
		relay:     rl,
		visual:    visual.New(engine),
		demoKey:   demoKey,
	}
	return a, nil
}

// Run starts the monitor and the HTTP server, and blocks until ctx is
// canceled or a fatal server error occurs. Shutdown is graceful: the
// listener drains before the store closes.
func (a *App) Run(ctx context.Context) error {
	a.printBanner()

	cancel, err := monitor.Start(ctx, a.eff.Config, a.store)
	if err != nil {
		return err
	}
	a.monitorCancel = cancel

	errCh := a.startHTTP()

	select {
	case <-ctx.Done():
		a.shutdown()
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			a.shutdown()
			return err
		}
		return nil
	}
}

func (a *App) shutdown() {
	logger.Info("shutting_down")
	if a.monitorCancel != nil {
		a.monitorCancel()
	}
	if a.srv != nil {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		if err := a.srv.Shutdown(sctx); err != nil {
			logger.Warn("http_shutdown_error", "error", err)
		}
	}
	if err := a.store.Close(); err != nil {
		logger.Error("store_close_failed", "error", err)
	}
	a.engine.Close()
	logger.Info("shutdown_complete")
}

func (a *App) printBanner() {
	verStr := a.version
	if a.commit != "" && a.commit != "none" {
		verStr += " (" + a.commit + ")"
	}
	if a.buildDate != "" && a.buildDate != "unknown" {
		verStr += " @ " + a.buildDate
	}
	banner.Print(a.eff, verStr, a.demoKey)
}
