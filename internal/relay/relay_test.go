// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package relay

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/msgport/internal/config"
	"github.com/ManuGH/msgport/internal/event"
	"github.com/ManuGH/msgport/internal/health"
	"github.com/ManuGH/msgport/internal/port"
	"github.com/ManuGH/msgport/internal/transport"
	"github.com/ManuGH/msgport/internal/transport/redisport"
	"github.com/ManuGH/msgport/internal/transport/wsport"
)

type collector struct {
	ch chan *transport.MessageEvent
}

func newCollector() *collector {
	return &collector{ch: make(chan *transport.MessageEvent, 16)}
}

func (c *collector) HandleMessage(msg *transport.MessageEvent) { c.ch <- msg }

func (c *collector) next(t *testing.T) *transport.MessageEvent {
	t.Helper()
	select {
	case msg := <-c.ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return nil
	}
}

func (c *collector) none(t *testing.T) {
	t.Helper()
	select {
	case msg := <-c.ch:
		t.Fatalf("unexpected frame: %v", msg.Data)
	case <-time.After(100 * time.Millisecond):
	}
}

func startHub(t *testing.T, opts HubOptions) (*Hub, string) {
	t.Helper()
	hub := NewHub(opts)
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		_ = hub.Close()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dialClient(t *testing.T, url string, handler transport.MessageHandler) *wsport.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var opts []wsport.Option
	if handler != nil {
		opts = append(opts, wsport.WithHandler(handler))
	}
	conn, err := wsport.Dial(ctx, url, nil, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.ClientCount() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_RebroadcastsToOtherClients(t *testing.T) {
	hub, url := startHub(t, HubOptions{})
	local := newCollector()
	hub.AddMessageHandler(local)

	ca, cb := newCollector(), newCollector()
	a := dialClient(t, url, ca)
	dialClient(t, url, cb)
	waitClients(t, hub, 2)

	require.NoError(t, a.PostMessage("hello", "*", nil))

	assert.Equal(t, "hello", cb.next(t).Data)
	msg := local.next(t)
	assert.Equal(t, "hello", msg.Data)
	assert.NotEmpty(t, msg.Origin, "origin carries the client id")
	ca.none(t)
}

func TestHub_PostMessageBroadcastsToAll(t *testing.T) {
	hub, url := startHub(t, HubOptions{})
	ca, cb := newCollector(), newCollector()
	dialClient(t, url, ca)
	dialClient(t, url, cb)
	waitClients(t, hub, 2)

	require.NoError(t, hub.PostMessage(map[string]any{"k": "v"}, "*", nil))

	assert.JSONEq(t, `{"k":"v"}`, ca.next(t).Data.(string))
	assert.JSONEq(t, `{"k":"v"}`, cb.next(t).Data.(string))
}

func TestHub_ClientDisconnectUnregisters(t *testing.T) {
	hub, url := startHub(t, HubOptions{})
	conn := dialClient(t, url, nil)
	waitClients(t, hub, 1)

	require.NoError(t, conn.Close())
	waitClients(t, hub, 0)
}

func TestHub_CloseRejectsPosts(t *testing.T) {
	hub, url := startHub(t, HubOptions{})
	conn := dialClient(t, url, nil)
	waitClients(t, hub, 1)

	require.NoError(t, hub.Close())
	require.NoError(t, hub.Close())
	waitClients(t, hub, 0)

	select {
	case <-conn.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("client connection was not closed")
	}
	require.ErrorIs(t, hub.PostMessage("x", "*", nil), transport.ErrClosed)
}

func TestHub_UpstreamEchoesToEveryClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ch, err := redisport.New(context.Background(), client, "relay")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close() })

	hub, url := startHub(t, HubOptions{Upstream: ch})
	local := newCollector()
	hub.AddMessageHandler(local)

	ca, cb := newCollector(), newCollector()
	a := dialClient(t, url, ca)
	dialClient(t, url, cb)
	waitClients(t, hub, 2)

	require.NoError(t, a.PostMessage("shared", "*", nil))

	assert.Equal(t, "shared", ca.next(t).Data, "upstream mode echoes to the sender")
	assert.Equal(t, "shared", cb.next(t).Data)
	assert.Equal(t, "shared", local.next(t).Data)
}

func TestService_AnswersPingOverWebsocket(t *testing.T) {
	hub, url := startHub(t, HubOptions{})
	svc := NewService(hub, "v-test", hub.ClientCount)
	t.Cleanup(func() { _ = svc.Close() })

	conn := dialClient(t, url, nil)
	waitClients(t, hub, 1)

	d := port.New(conn)
	t.Cleanup(func() { _ = d.Close() })

	pongs := make(chan any, 1)
	d.AddEventListener(EventPong, event.NewListener(func(c *event.Call) { pongs <- c.Event.Data }), 0)

	require.NoError(t, d.DispatchEvent(EventPing, map[string]any{"n": 1}))

	select {
	case data := <-pongs:
		assert.Equal(t, map[string]any{"n": float64(1)}, data)
	case <-time.After(2 * time.Second):
		t.Fatal("no pong received")
	}
}

func TestService_ReportsStats(t *testing.T) {
	hub, url := startHub(t, HubOptions{})
	svc := NewService(hub, "v-test", hub.ClientCount)
	t.Cleanup(func() { _ = svc.Close() })

	conn := dialClient(t, url, nil)
	waitClients(t, hub, 1)
	d := port.New(conn)
	t.Cleanup(func() { _ = d.Close() })

	stats := make(chan any, 1)
	d.AddEventListener(EventStats, event.NewListener(func(c *event.Call) { stats <- c.Event.Data }), 0)
	require.NoError(t, d.DispatchEvent(EventStats, nil))

	select {
	case data := <-stats:
		m, ok := data.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, float64(1), m["clients"])
		assert.Equal(t, "v-test", m["version"])
		assert.Equal(t, svc.Dispatcher().ID(), m["dispatcherId"])
	case <-time.After(2 * time.Second):
		t.Fatal("no stats received")
	}
}

func TestService_RunAnnouncesReady(t *testing.T) {
	lb := transport.NewLoopback(0)
	t.Cleanup(func() { _ = lb.Close() })

	observer := port.New(lb)
	t.Cleanup(func() { _ = observer.Close() })
	ready := make(chan any, 1)
	observer.AddEventListener(EventReady, event.NewListener(func(c *event.Call) { ready <- c.Event.Data }), 0)

	svc := NewService(lb, "v-test", nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	select {
	case data := <-ready:
		assert.Equal(t, "v-test", data.(map[string]any)["version"])
	case <-time.After(2 * time.Second):
		t.Fatal("no ready announcement")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestServer_Routes(t *testing.T) {
	cfg := config.AppConfig{
		WSPath:    "/ws",
		RateLimit: config.RateLimitConfig{Requests: 2, Window: time.Minute},
	}
	hub := NewHub(HubOptions{})
	t.Cleanup(func() { _ = hub.Close() })

	hm := health.NewManager("v-test")
	hm.RegisterChecker(health.NewFuncChecker("hub", func(context.Context) health.CheckResult {
		return health.CheckResult{Status: health.StatusHealthy}
	}))
	srv := httptest.NewServer(NewServer(cfg, hub, hm).Handler())
	t.Cleanup(srv.Close)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.NotEmpty(t, resp.Header.Get(HeaderRequestID))
	}

	// Plain GETs fail the upgrade but still count against the limit.
	var last int
	for i := 0; i < 3; i++ {
		resp, err := http.Get(srv.URL + "/ws")
		require.NoError(t, err)
		_ = resp.Body.Close()
		last = resp.StatusCode
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	cfg := config.AppConfig{
		Listen:    "127.0.0.1:0",
		WSPath:    "/ws",
		RateLimit: config.RateLimitConfig{Requests: 10, Window: time.Minute},
	}
	hub := NewHub(HubOptions{})
	s := NewServer(cfg, hub, health.NewManager("v-test"))

	ln, err := net.Listen("tcp", cfg.Listen)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRecoverer(t *testing.T) {
	h := RequestID(Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), rec.Header().Get(HeaderRequestID))
}
