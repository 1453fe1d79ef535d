// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/msgport/internal/log"
)

// EnvPrefix is shared by every environment override.
const EnvPrefix = "MSGPORT_"

// ParseString reads a string from environment variable or returns default value.
// An empty variable counts as unset.
func ParseString(key, defaultValue string) string {
	logger := log.WithComponent("config")
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		logDefault(logger, key)
		return defaultValue
	}
	ev := logger.Debug().Str("key", key).Str("source", "environment")
	if isSensitive(key) {
		ev = ev.Bool("sensitive", true)
	} else {
		ev = ev.Str("value", value)
	}
	ev.Msg("using environment variable")
	return value
}

// ParseInt reads an integer from environment variable or returns default value.
// Unparseable values fall back to the default with a warning.
func ParseInt(key string, defaultValue int) int {
	return parseWith(key, defaultValue, strconv.Atoi)
}

// ParseInt64 is ParseInt for 64-bit values.
func ParseInt64(key string, defaultValue int64) int64 {
	return parseWith(key, defaultValue, func(s string) (int64, error) {
		return strconv.ParseInt(s, 10, 64)
	})
}

// ParseFloat reads a float from environment variable or returns default value.
func ParseFloat(key string, defaultValue float64) float64 {
	return parseWith(key, defaultValue, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}

// ParseBool reads a boolean ("true", "1", "false", "0", ...) from environment
// variable or returns default value.
func ParseBool(key string, defaultValue bool) bool {
	return parseWith(key, defaultValue, strconv.ParseBool)
}

// ParseDuration reads a duration in Go duration format (e.g. "5s").
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	return parseWith(key, defaultValue, time.ParseDuration)
}

func parseWith[T any](key string, defaultValue T, parse func(string) (T, error)) T {
	logger := log.WithComponent("config")
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		logDefault(logger, key)
		return defaultValue
	}
	v, err := parse(strings.TrimSpace(raw))
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", raw).
			Interface("default", defaultValue).
			Msg("invalid value in environment variable, using default")
		return defaultValue
	}
	logger.Debug().
		Str("key", key).
		Interface("value", v).
		Str("source", "environment").
		Msg("using environment variable")
	return v
}

func logDefault(logger zerolog.Logger, key string) {
	logger.Trace().Str("key", key).Str("source", "default").Msg("using default value")
}

func isSensitive(key string) bool {
	lower := strings.ToLower(key)
	return strings.Contains(lower, "password") || strings.Contains(lower, "token")
}
