// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/msgport/internal/relay"
)

func startRelay(t *testing.T) string {
	t.Helper()
	hub := relay.NewHub(relay.HubOptions{})
	svc := relay.NewService(hub, "v-test", hub.ClientCount)
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		_ = svc.Close()
		_ = hub.Close()
		srv.Close()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestRun_PingPong(t *testing.T) {
	url := startRelay(t)
	var out bytes.Buffer

	err := run(context.Background(), sendOptions{
		URLs:    []string{url},
		Type:    "ping",
		Data:    `{"n":1}`,
		Expect:  "pong",
		Count:   1,
		Timeout: 3 * time.Second,
	}, &out)
	require.NoError(t, err)

	var got result
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "pong", got.Type)
	assert.Equal(t, map[string]any{"n": float64(1)}, got.Data)
	assert.True(t, strings.HasPrefix(got.DispatcherID, "MP/"))
}

func TestRun_FanoutCollectsEveryRelay(t *testing.T) {
	urls := []string{startRelay(t), startRelay(t)}
	var out bytes.Buffer

	err := run(context.Background(), sendOptions{
		URLs:    urls,
		Type:    "ping",
		Expect:  "pong",
		Count:   2,
		Timeout: 3 * time.Second,
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out.String(), `"type":"pong"`))
}

func TestRun_Timeout(t *testing.T) {
	url := startRelay(t)

	err := run(context.Background(), sendOptions{
		URLs:    []string{url},
		Type:    "ping",
		Expect:  "never",
		Timeout: 200 * time.Millisecond,
	}, &bytes.Buffer{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRun_InvalidInput(t *testing.T) {
	err := run(context.Background(), sendOptions{Timeout: time.Second}, &bytes.Buffer{})
	assert.Error(t, err)

	err = run(context.Background(), sendOptions{
		URLs:    []string{"ws://127.0.0.1:1/ws"},
		Data:    "{not json",
		Timeout: time.Second,
	}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "parse -data")
}

func TestSplitURLs(t *testing.T) {
	assert.Equal(t, []string{"ws://a", "ws://b"}, splitURLs(" ws://a, ,ws://b "))
	assert.Nil(t, splitURLs(""))
}
