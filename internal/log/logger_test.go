// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	require.NoError(t, SetLevel("debug"))
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	require.Error(t, SetLevel("loud"))
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestConfigure_Reconfigure(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(prev)
		Configure(Config{})
	})

	var first, second bytes.Buffer
	Configure(Config{Level: "warn", Output: &first, Service: "boot"})
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
	early := WithComponent("early")

	Configure(Config{Level: "info", Output: &second, Service: "msgportd", Version: "v1"})
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	late := WithComponent("late")
	late.Info().Msg("hello")
	early.Info().Msg("still boot")

	assert.Contains(t, second.String(), `"service":"msgportd"`)
	assert.Contains(t, second.String(), `"version":"v1"`)
	assert.Contains(t, second.String(), `"component":"late"`)
	assert.Contains(t, first.String(), `"service":"boot"`)
}

func TestWithComponent(t *testing.T) {
	l := WithComponent("port")
	assert.NotEqual(t, zerolog.Disabled, l.GetLevel())
}
