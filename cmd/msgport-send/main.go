// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command msgport-send sends one event to one or more relays and waits for
// the reply.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/ManuGH/msgport/internal/event"
	mplog "github.com/ManuGH/msgport/internal/log"
	"github.com/ManuGH/msgport/internal/port"
	"github.com/ManuGH/msgport/internal/transport"
	"github.com/ManuGH/msgport/internal/transport/wsport"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type sendOptions struct {
	URLs    []string
	Type    string
	Data    string
	Expect  string
	Count   int
	Timeout time.Duration
}

func main() {
	urls := flag.String("url", "ws://localhost:8088/ws", "comma-separated relay websocket URLs")
	eventType := flag.String("type", "ping", "event type to send")
	data := flag.String("data", "", "event data as JSON")
	expect := flag.String("expect", "pong", "event type to wait for")
	count := flag.Int("count", 1, "number of expected events to collect")
	timeout := flag.Duration("timeout", 5*time.Second, "overall timeout")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	mplog.Configure(mplog.Config{Level: *logLevel, Service: "msgport-send", Output: os.Stderr})

	opts := sendOptions{
		URLs:    splitURLs(*urls),
		Type:    *eventType,
		Data:    *data,
		Expect:  *expect,
		Count:   *count,
		Timeout: *timeout,
	}
	if err := run(context.Background(), opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
		os.Exit(1)
	}
}

func splitURLs(s string) []string {
	var out []string
	for _, u := range strings.Split(s, ",") {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}

type result struct {
	Type         string `json:"type"`
	Data         any    `json:"data"`
	DispatcherID string `json:"dispatcherId"`
}

func run(ctx context.Context, opts sendOptions, out io.Writer) error {
	if len(opts.URLs) == 0 {
		return errors.New("at least one -url is required")
	}
	if opts.Count < 1 {
		opts.Count = 1
	}

	var data any
	if opts.Data != "" {
		if err := json.Unmarshal([]byte(opts.Data), &data); err != nil {
			return fmt.Errorf("parse -data: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	conns := make([]transport.Target, 0, len(opts.URLs))
	for _, u := range opts.URLs {
		conn, err := wsport.Dial(ctx, u, nil)
		if err != nil {
			return err
		}
		defer conn.Close()
		conns = append(conns, conn)
	}

	var target transport.Target = conns[0]
	if len(conns) > 1 {
		target = transport.NewFanout(conns, conns)
	}

	d := port.New(target)
	defer d.Close()

	got := make(chan result, opts.Count)
	d.AddEventListener(opts.Expect, event.NewListener(func(c *event.Call) {
		select {
		case got <- result{Type: c.Event.Type, Data: c.Event.Data, DispatcherID: d.ID()}:
		default:
		}
	}), 0)

	if err := d.DispatchEvent(opts.Type, data); err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	for i := 0; i < opts.Count; i++ {
		select {
		case r := <-got:
			if err := enc.Encode(r); err != nil {
				return err
			}
		case <-ctx.Done():
			return fmt.Errorf("waiting for %q (%d/%d received): %w", opts.Expect, i, opts.Count, ctx.Err())
		}
	}
	return nil
}
