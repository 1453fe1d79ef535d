// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"net"

	"github.com/ManuGH/msgport/internal/config"
	"github.com/ManuGH/msgport/internal/log"
)

// PerformStartupChecks verifies the daemon can bind its listen address and,
// when configured, reach Redis before anything is started.
func PerformStartupChecks(ctx context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("running pre-flight startup checks")

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen address %q unavailable: %w", cfg.Listen, err)
	}
	_ = ln.Close()
	logger.Info().Str("addr", cfg.Listen).Msg("listen address is available")

	if cfg.Redis.Enabled() {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", cfg.Redis.Addr)
		if err != nil {
			return fmt.Errorf("redis %q unreachable: %w", cfg.Redis.Addr, err)
		}
		_ = conn.Close()
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("redis is reachable")
	}

	logger.Info().Msg("all startup checks passed")
	return nil
}
