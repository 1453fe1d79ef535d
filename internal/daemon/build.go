// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon wires the relay components together and owns their
// lifecycle.
package daemon

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ManuGH/msgport/internal/config"
	"github.com/ManuGH/msgport/internal/health"
	"github.com/ManuGH/msgport/internal/log"
	"github.com/ManuGH/msgport/internal/relay"
	"github.com/ManuGH/msgport/internal/telemetry"
	"github.com/ManuGH/msgport/internal/transport"
	"github.com/ManuGH/msgport/internal/transport/redisport"
)

// Deps are the assembled runtime components.
type Deps struct {
	Hub     *relay.Hub
	Service *relay.Service
	Server  *relay.Server
	Health  *health.Manager

	redisClient *redis.Client
	redisChan   *redisport.Channel
	tracing     *telemetry.Provider
}

// Build assembles the relay for cfg. With Redis configured the hub uses the
// Redis channel as its shared bus.
func Build(ctx context.Context, cfg config.AppConfig) (*Deps, error) {
	logger := log.WithComponent("daemon")
	deps := &Deps{Health: health.NewManager(cfg.Version)}

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: cfg.Version,
		ExporterType:   cfg.Tracing.Exporter,
		Endpoint:       cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}
	deps.tracing = tp
	if cfg.Tracing.Enabled {
		logger.Info().
			Str("event", "daemon.tracing_enabled").
			Str("exporter", cfg.Tracing.Exporter).
			Str("endpoint", cfg.Tracing.Endpoint).
			Msg("exporting traces")
	}

	var upstream transport.Target
	if cfg.Redis.Enabled() {
		client, err := redisport.NewClient(ctx, redisport.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			_ = tp.Shutdown(ctx)
			return nil, err
		}
		ch, err := redisport.New(ctx, client, cfg.Channel)
		if err != nil {
			_ = client.Close()
			_ = tp.Shutdown(ctx)
			return nil, fmt.Errorf("redis upstream: %w", err)
		}
		deps.redisClient, deps.redisChan = client, ch
		upstream = ch
		deps.Health.RegisterChecker(health.NewPingChecker("redis", ch.Ping))
		logger.Info().
			Str("event", "daemon.redis_enabled").
			Str("addr", cfg.Redis.Addr).
			Str(log.FieldChannel, cfg.Channel).
			Msg("relaying through redis")
	}

	deps.Hub = relay.NewHub(relay.HubOptions{
		Upstream:     upstream,
		QueueSize:    cfg.QueueSize,
		ReadLimit:    cfg.ReadLimit,
		InboundRate:  rate.Limit(cfg.Inbound.Rate),
		InboundBurst: cfg.Inbound.Burst,
	})
	deps.Health.RegisterChecker(hubChecker(deps.Hub))

	deps.Service = relay.NewService(deps.Hub, cfg.Version, deps.Hub.ClientCount)
	deps.Server = relay.NewServer(cfg, deps.Hub, deps.Health)
	return deps, nil
}

func hubChecker(hub *relay.Hub) health.Checker {
	return health.NewFuncChecker("hub", func(context.Context) health.CheckResult {
		return health.CheckResult{
			Status:  health.StatusHealthy,
			Message: fmt.Sprintf("%d clients", hub.ClientCount()),
		}
	})
}

// Close releases everything Build created.
func (d *Deps) Close(logger zerolog.Logger) error {
	var errs []error
	if d.Service != nil {
		errs = append(errs, d.Service.Close())
	}
	if d.Hub != nil {
		errs = append(errs, d.Hub.Close())
	}
	if d.redisChan != nil {
		errs = append(errs, d.redisChan.Close())
	}
	if d.redisClient != nil {
		errs = append(errs, d.redisClient.Close())
	}
	if d.tracing != nil {
		errs = append(errs, d.tracing.Shutdown(context.Background()))
	}
	err := errors.Join(errs...)
	if err != nil {
		logger.Warn().Err(err).Str("event", "daemon.close_failed").Msg("error while releasing resources")
	}
	return err
}
