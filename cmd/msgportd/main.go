// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command msgportd runs the websocket message-port relay.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ManuGH/msgport/internal/config"
	"github.com/ManuGH/msgport/internal/daemon"
	"github.com/ManuGH/msgport/internal/health"
	mplog "github.com/ManuGH/msgport/internal/log"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "healthcheck" {
		os.Exit(runHealthcheckCLI(os.Args[2:]))
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Safe defaults until config is loaded
	mplog.Configure(mplog.Config{
		Level:   "info",
		Service: "msgportd",
		Version: version,
	})
	logger := mplog.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := strings.TrimSpace(*configPath)
	loader := config.NewLoader(path, version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", path).
			Msg("failed to load configuration")
	}

	mplog.Configure(mplog.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: cfg.Version,
	})
	logger = mplog.WithComponent("main")

	if path != "" {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "file").
			Str("path", path).
			Msg("loaded configuration from file")
	} else {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "env+defaults").
			Msg("loaded configuration from environment and defaults")
	}

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "startup.check_failed").
			Msg("startup checks failed, verify listen address and redis")
	}

	deps, err := daemon.Build(ctx, cfg)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "startup.build_failed").
			Msg("failed to assemble relay")
	}
	defer func() { _ = deps.Close(logger) }()

	holder := config.NewConfigHolder(cfg, loader)
	app := daemon.NewApp(logger, holder, deps.Server, deps.Service)

	logger.Info().
		Str("event", "startup.complete").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Str("listen", cfg.Listen).
		Str("ws_path", cfg.WSPath).
		Bool("redis", cfg.Redis.Enabled()).
		Msg("msgportd starting")

	if err := app.Run(ctx); err != nil {
		logger.Error().Err(err).Str("event", "daemon.stopped").Msg("relay stopped with error")
		_ = deps.Close(logger)
		os.Exit(1)
	}
	logger.Info().Str("event", "daemon.stopped").Msg("relay stopped")
}
