// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigHolder_Reload(t *testing.T) {
	path := writeConfig(t, "channel: first\n")
	loader := NewLoader(path, "v1")
	initial, err := loader.Load()
	require.NoError(t, err)

	holder := NewConfigHolder(initial, loader)
	updates := make(chan AppConfig, 1)
	holder.RegisterListener(updates)

	require.NoError(t, os.WriteFile(path, []byte("channel: second\n"), 0o600))
	require.NoError(t, holder.Reload(context.Background()))

	assert.Equal(t, "second", holder.Get().Channel)
	select {
	case cfg := <-updates:
		assert.Equal(t, "second", cfg.Channel)
	default:
		t.Fatal("listener was not notified")
	}
}

func TestConfigHolder_FailedReloadKeepsConfig(t *testing.T) {
	path := writeConfig(t, "channel: first\n")
	loader := NewLoader(path, "")
	initial, err := loader.Load()
	require.NoError(t, err)
	holder := NewConfigHolder(initial, loader)

	require.NoError(t, os.WriteFile(path, []byte("channel: [broken\n"), 0o600))
	require.Error(t, holder.Reload(context.Background()))
	assert.Equal(t, "first", holder.Get().Channel)

	require.NoError(t, os.WriteFile(path, []byte("unknownKey: 1\n"), 0o600))
	err = holder.Reload(context.Background())
	require.ErrorIs(t, err, ErrUnknownConfigField)
	assert.Equal(t, "first", holder.Get().Channel)
}

func TestConfigHolder_FullListenerIsSkipped(t *testing.T) {
	loader := NewLoader("", "")
	initial, err := loader.Load()
	require.NoError(t, err)
	holder := NewConfigHolder(initial, loader)

	full := make(chan AppConfig)
	holder.RegisterListener(full)
	require.NoError(t, holder.Reload(context.Background()))
}

func TestConfigHolder_WatcherReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, "channel: first\n")
	loader := NewLoader(path, "")
	initial, err := loader.Load()
	require.NoError(t, err)
	holder := NewConfigHolder(initial, loader)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, holder.StartWatcher(ctx))
	defer holder.Stop()

	updates := make(chan AppConfig, 4)
	holder.RegisterListener(updates)
	require.NoError(t, os.WriteFile(path, []byte("channel: watched\n"), 0o600))

	select {
	case cfg := <-updates:
		assert.Equal(t, "watched", cfg.Channel)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not reload the config")
	}
}

func TestConfigHolder_WatcherDisabledWithoutFile(t *testing.T) {
	holder := NewConfigHolder(AppConfig{}, NewLoader("", ""))
	require.NoError(t, holder.StartWatcher(context.Background()))
	holder.Stop()
}
