// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ManuGH/msgport/internal/validate"
)

// Validate checks a merged configuration. Failures wrap ErrInvalidConfig.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.ListenAddr("listen", cfg.Listen)
	v.URLPath("wsPath", cfg.WSPath)
	v.OneOf("logLevel", strings.ToLower(cfg.LogLevel), validate.LogLevels)
	v.NotEmpty("logService", cfg.LogService)
	v.NotEmpty("channel", cfg.Channel)

	if cfg.Redis.Enabled() {
		v.HostPort("redis.addr", cfg.Redis.Addr)
		v.Range("redis.db", cfg.Redis.DB, 0, 15)
	}

	v.Positive("rateLimit.requests", cfg.RateLimit.Requests)
	v.MinDuration("rateLimit.window", cfg.RateLimit.Window, time.Second)

	v.NonNegative("inbound.rate", cfg.Inbound.Rate)
	if cfg.Inbound.Rate > 0 {
		v.Positive("inbound.burst", cfg.Inbound.Burst)
	}

	if cfg.ReadLimit < 512 {
		v.AddError("readLimit", fmt.Sprintf("must be at least 512 bytes, got %d", cfg.ReadLimit), cfg.ReadLimit)
	}
	v.Range("queueSize", cfg.QueueSize, 1, 65536)

	if cfg.Tracing.Enabled {
		v.OneOf("tracing.exporter", cfg.Tracing.Exporter, []string{"grpc", "http"})
		v.HostPort("tracing.endpoint", cfg.Tracing.Endpoint)
		if cfg.Tracing.SamplingRate < 0 || cfg.Tracing.SamplingRate > 1 {
			v.AddError("tracing.samplingRate", "must be between 0 and 1", cfg.Tracing.SamplingRate)
		}
	}

	if err := v.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
