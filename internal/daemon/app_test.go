// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/msgport/internal/config"
	"github.com/ManuGH/msgport/internal/health"
)

func testConfig(listen string) config.AppConfig {
	return config.AppConfig{
		Version:   "test",
		Listen:    listen,
		WSPath:    "/ws",
		LogLevel:  "info",
		Channel:   "msgport",
		ReadLimit: 1 << 20,
		QueueSize: 16,
		RateLimit: config.RateLimitConfig{Requests: 100, Window: time.Minute},
		Inbound:   config.InboundConfig{Rate: 100, Burst: 100},
	}
}

func TestApp_Run_MissingComponents(t *testing.T) {
	app := NewApp(zerolog.Nop(), nil, nil, nil)
	assert.ErrorIs(t, app.Run(context.Background()), ErrMissingServer)

	deps, err := Build(context.Background(), testConfig("127.0.0.1:0"))
	require.NoError(t, err)
	defer deps.Close(zerolog.Nop())

	app = NewApp(zerolog.Nop(), nil, deps.Server, nil)
	assert.ErrorIs(t, app.Run(context.Background()), ErrMissingService)
}

func TestBuild_Local(t *testing.T) {
	deps, err := Build(context.Background(), testConfig("127.0.0.1:0"))
	require.NoError(t, err)
	defer deps.Close(zerolog.Nop())

	assert.NotNil(t, deps.Hub)
	assert.NotNil(t, deps.Service)
	assert.NotNil(t, deps.Server)

	resp := deps.Health.Health(context.Background(), true)
	assert.Equal(t, health.StatusHealthy, resp.Status)
	assert.Contains(t, resp.Checks, "hub")
	assert.NotContains(t, resp.Checks, "redis")
}

func TestBuild_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig("127.0.0.1:0")
	cfg.Redis.Addr = mr.Addr()

	deps, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	defer deps.Close(zerolog.Nop())

	resp := deps.Health.Health(context.Background(), true)
	assert.Equal(t, health.StatusHealthy, resp.Status)
	assert.Contains(t, resp.Checks, "redis")
}

func TestBuild_RedisUnreachable(t *testing.T) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig("127.0.0.1:0")
	cfg.Redis.Addr = addr
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := Build(ctx, cfg)
	assert.Error(t, err)
}

func TestApp_Run_StopsOnCancel(t *testing.T) {
	addr := freeAddr(t)
	deps, err := Build(context.Background(), testConfig(addr))
	require.NoError(t, err)
	defer deps.Close(zerolog.Nop())

	app := NewApp(zerolog.Nop(), nil, deps.Server, deps.Service)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}
