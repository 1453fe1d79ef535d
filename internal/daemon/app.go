// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/msgport/internal/config"
	"github.com/ManuGH/msgport/internal/relay"
)

// App owns the long-lived runtime: config watching and reload, the bus
// service and the HTTP server.
type App struct {
	logger       zerolog.Logger
	cfgHolder    *config.ConfigHolder
	server       *relay.Server
	service      *relay.Service
	reloadSignal os.Signal
}

// NewApp creates the orchestrator. cfgHolder may be nil.
func NewApp(logger zerolog.Logger, cfgHolder *config.ConfigHolder, server *relay.Server, service *relay.Service) *App {
	return &App{
		logger:       logger,
		cfgHolder:    cfgHolder,
		server:       server,
		service:      service,
		reloadSignal: syscall.SIGHUP,
	}
}

// Run starts every subsystem and blocks until ctx is cancelled or one of
// them fails.
func (a *App) Run(ctx context.Context) error {
	if a.server == nil {
		return ErrMissingServer
	}
	if a.service == nil {
		return ErrMissingService
	}

	g, ctx := errgroup.WithContext(ctx)

	// Config watcher is best-effort: startup should not fail if watcher cannot be started.
	if a.cfgHolder != nil {
		if err := a.cfgHolder.StartWatcher(ctx); err != nil {
			a.logger.Warn().Err(err).Str("event", "config.watcher_start_failed").Msg("failed to start config watcher")
		}
	}

	if a.cfgHolder != nil && a.reloadSignal != nil {
		g.Go(func() error {
			hupChan := make(chan os.Signal, 1)
			signal.Notify(hupChan, a.reloadSignal)
			defer signal.Stop(hupChan)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hupChan:
					a.logger.Info().
						Str("event", "config.reload_signal").
						Str("signal", a.reloadSignal.String()).
						Msg("received reload signal, reloading config")

					if err := a.cfgHolder.Reload(ctx); err != nil {
						a.logger.Warn().
							Err(err).
							Str("event", "config.reload_failed").
							Msg("config reload failed")
					}
				}
			}
		})
	}

	g.Go(func() error {
		return a.service.Run(ctx)
	})

	g.Go(func() error {
		return a.server.ListenAndRun(ctx)
	})

	err := g.Wait()
	if a.cfgHolder != nil {
		a.cfgHolder.Stop()
	}
	return err
}
