// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads and hot-reloads the relay daemon configuration.
//
// Precedence is defaults, then the YAML file (parsed strictly), then
// MSGPORT_* environment variables.
package config

import "time"

// AppConfig is the effective daemon configuration.
type AppConfig struct {
	Version string

	Listen     string // HTTP listen address
	WSPath     string // websocket upgrade path
	LogLevel   string
	LogService string

	// Channel names the logical bus. It is the Redis pub/sub channel when
	// Redis is configured.
	Channel string

	Redis     RedisConfig
	RateLimit RateLimitConfig
	Inbound   InboundConfig
	Tracing   TracingConfig

	ReadLimit int64 // max websocket frame size in bytes
	QueueSize int   // per-client outbound queue
}

// RedisConfig enables cross-instance fan-out when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether Redis fan-out is configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// RateLimitConfig limits websocket upgrades per client IP.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// InboundConfig limits frames per connection. Rate 0 disables the limit.
type InboundConfig struct {
	Rate  float64
	Burst int
}

// TracingConfig exports OpenTelemetry spans when Enabled.
type TracingConfig struct {
	Enabled      bool
	Exporter     string // "grpc" or "http"
	Endpoint     string
	SamplingRate float64
}

// FileConfig is the YAML file shape. Pointer fields distinguish "unset"
// from zero values during merge.
type FileConfig struct {
	Listen     *string `yaml:"listen"`
	WSPath     *string `yaml:"wsPath"`
	LogLevel   *string `yaml:"logLevel"`
	LogService *string `yaml:"logService"`
	Channel    *string `yaml:"channel"`
	ReadLimit  *int64  `yaml:"readLimit"`
	QueueSize  *int    `yaml:"queueSize"`

	Redis     *RedisFileConfig     `yaml:"redis"`
	RateLimit *RateLimitFileConfig `yaml:"rateLimit"`
	Inbound   *InboundFileConfig   `yaml:"inbound"`
	Tracing   *TracingFileConfig   `yaml:"tracing"`
}

type RedisFileConfig struct {
	Addr     *string `yaml:"addr"`
	Password *string `yaml:"password"`
	DB       *int    `yaml:"db"`
}

type RateLimitFileConfig struct {
	Requests *int    `yaml:"requests"`
	Window   *string `yaml:"window"`
}

type InboundFileConfig struct {
	Rate  *float64 `yaml:"rate"`
	Burst *int     `yaml:"burst"`
}

type TracingFileConfig struct {
	Enabled      *bool    `yaml:"enabled"`
	Exporter     *string  `yaml:"exporter"`
	Endpoint     *string  `yaml:"endpoint"`
	SamplingRate *float64 `yaml:"samplingRate"`
}
