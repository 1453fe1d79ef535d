// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultListen     = ":8088"
	DefaultWSPath     = "/ws"
	DefaultLogLevel   = "info"
	DefaultLogService = "msgportd"
	DefaultChannel    = "msgport"
	DefaultReadLimit  = 1 << 20
	DefaultQueueSize  = 256

	DefaultTracingExporter = "grpc"
	DefaultTracingEndpoint = "localhost:4317"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a loader. An empty configPath means env-only
// configuration.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Path returns the config file path, if any.
func (l *Loader) Path() string { return l.configPath }

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envInt64(key string, defaultVal int64) int64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt64(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults.
// The result is validated; validation failures wrap ErrInvalidConfig.
func (l *Loader) Load() (AppConfig, error) {
	cfg := AppConfig{}
	l.setDefaults(&cfg)

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (l *Loader) setDefaults(cfg *AppConfig) {
	cfg.Listen = DefaultListen
	cfg.WSPath = DefaultWSPath
	cfg.LogLevel = DefaultLogLevel
	cfg.LogService = DefaultLogService
	cfg.Channel = DefaultChannel
	cfg.ReadLimit = DefaultReadLimit
	cfg.QueueSize = DefaultQueueSize
	cfg.RateLimit = RateLimitConfig{Requests: 60, Window: time.Minute}
	cfg.Inbound = InboundConfig{Rate: 100, Burst: 200}
	cfg.Tracing = TracingConfig{
		Exporter:     DefaultTracingExporter,
		Endpoint:     DefaultTracingEndpoint,
		SamplingRate: 1.0,
	}
}

// loadFile loads configuration from a YAML file with STRICT parsing.
// Unknown fields fail with ErrUnknownConfigField.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("strict config parse error: %w: %v", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return &fileCfg, nil
}

func mergeFileConfig(cfg *AppConfig, f *FileConfig) error {
	setIf(&cfg.Listen, f.Listen)
	setIf(&cfg.WSPath, f.WSPath)
	setIf(&cfg.LogLevel, f.LogLevel)
	setIf(&cfg.LogService, f.LogService)
	setIf(&cfg.Channel, f.Channel)
	setIf(&cfg.ReadLimit, f.ReadLimit)
	setIf(&cfg.QueueSize, f.QueueSize)

	if r := f.Redis; r != nil {
		setIf(&cfg.Redis.Addr, r.Addr)
		setIf(&cfg.Redis.Password, r.Password)
		setIf(&cfg.Redis.DB, r.DB)
	}
	if rl := f.RateLimit; rl != nil {
		setIf(&cfg.RateLimit.Requests, rl.Requests)
		if rl.Window != nil {
			d, err := time.ParseDuration(*rl.Window)
			if err != nil {
				return fmt.Errorf("rateLimit.window: %w", err)
			}
			cfg.RateLimit.Window = d
		}
	}
	if in := f.Inbound; in != nil {
		setIf(&cfg.Inbound.Rate, in.Rate)
		setIf(&cfg.Inbound.Burst, in.Burst)
	}
	if tr := f.Tracing; tr != nil {
		setIf(&cfg.Tracing.Enabled, tr.Enabled)
		setIf(&cfg.Tracing.Exporter, tr.Exporter)
		setIf(&cfg.Tracing.Endpoint, tr.Endpoint)
		setIf(&cfg.Tracing.SamplingRate, tr.SamplingRate)
	}
	return nil
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.Listen = l.envString(EnvPrefix+"LISTEN", cfg.Listen)
	cfg.WSPath = l.envString(EnvPrefix+"WS_PATH", cfg.WSPath)
	cfg.LogLevel = l.envString(EnvPrefix+"LOG_LEVEL", cfg.LogLevel)
	cfg.LogService = l.envString(EnvPrefix+"LOG_SERVICE", cfg.LogService)
	cfg.Channel = l.envString(EnvPrefix+"CHANNEL", cfg.Channel)
	cfg.ReadLimit = l.envInt64(EnvPrefix+"READ_LIMIT", cfg.ReadLimit)
	cfg.QueueSize = l.envInt(EnvPrefix+"QUEUE_SIZE", cfg.QueueSize)

	cfg.Redis.Addr = l.envString(EnvPrefix+"REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = l.envString(EnvPrefix+"REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = l.envInt(EnvPrefix+"REDIS_DB", cfg.Redis.DB)

	cfg.RateLimit.Requests = l.envInt(EnvPrefix+"RATELIMIT_REQUESTS", cfg.RateLimit.Requests)
	cfg.RateLimit.Window = l.envDuration(EnvPrefix+"RATELIMIT_WINDOW", cfg.RateLimit.Window)

	cfg.Inbound.Rate = l.envFloat(EnvPrefix+"INBOUND_RATE", cfg.Inbound.Rate)
	cfg.Inbound.Burst = l.envInt(EnvPrefix+"INBOUND_BURST", cfg.Inbound.Burst)

	cfg.Tracing.Enabled = l.envBool(EnvPrefix+"TRACING_ENABLED", cfg.Tracing.Enabled)
	cfg.Tracing.Exporter = l.envString(EnvPrefix+"TRACING_EXPORTER", cfg.Tracing.Exporter)
	cfg.Tracing.Endpoint = l.envString(EnvPrefix+"TRACING_ENDPOINT", cfg.Tracing.Endpoint)
	cfg.Tracing.SamplingRate = l.envFloat(EnvPrefix+"TRACING_SAMPLING_RATE", cfg.Tracing.SamplingRate)
}
