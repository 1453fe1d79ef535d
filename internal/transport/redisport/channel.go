// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package redisport exposes a Redis pub/sub channel as a transport.Target.
// Subscribers receive their own publishes, so a dispatcher on a Channel
// sees echoes of everything it sends.
package redisport

import (
	"context"
	"fmt"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ManuGH/msgport/internal/log"
	"github.com/ManuGH/msgport/internal/metrics"
	"github.com/ManuGH/msgport/internal/transport"
)

const (
	transportName  = "redis"
	publishTimeout = 3 * time.Second
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Config holds Redis connection settings.
type Config struct {
	Addr     string // host:port
	Password string
	DB       int
}

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return client, nil
}

// Option configures a Channel.
type Option func(*Channel)

// WithLogger replaces the default "redisport" component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Channel) { c.logger = logger }
}

// Channel publishes to and receives from one Redis pub/sub channel.
type Channel struct {
	client   *redis.Client
	name     string
	pubsub   *redis.PubSub
	handlers transport.Handlers
	logger   zerolog.Logger

	closeOnce sync.Once
	done      chan struct{}
	delivery  transport.Delivery
}

// New subscribes to channel and returns once Redis has confirmed the
// subscription.
func New(ctx context.Context, client *redis.Client, channel string, opts ...Option) (*Channel, error) {
	c := &Channel{
		client: client,
		name:   channel,
		logger: log.WithComponent("redisport"),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str(log.FieldChannel, channel).Logger()

	c.pubsub = client.Subscribe(ctx, channel)
	if _, err := c.pubsub.Receive(ctx); err != nil {
		_ = c.pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	go c.receiveLoop(c.pubsub.Channel())
	c.logger.Info().Str("event", "redisport.subscribed").Msg("subscribed to redis channel")
	return c, nil
}

func (c *Channel) receiveLoop(msgs <-chan *redis.Message) {
	defer close(c.done)
	for msg := range msgs {
		c.delivery.Begin()
		c.handlers.Deliver(&transport.MessageEvent{Data: msg.Payload, Origin: msg.Channel})
		c.delivery.End()
		metrics.IncTransportDelivered(transportName)
	}
}

// PostMessage publishes data. Strings and byte slices are published as they
// are; other values are JSON-encoded.
func (c *Channel) PostMessage(data any, targetOrigin string, transfer []any) error {
	select {
	case <-c.done:
		return transport.ErrClosed
	default:
	}

	var payload any
	switch v := data.(type) {
	case string, []byte:
		payload = v
	default:
		text, err := json.MarshalToString(v)
		if err != nil {
			return fmt.Errorf("encode message: %w", err)
		}
		payload = text
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := c.client.Publish(ctx, c.name, payload).Err(); err != nil {
		metrics.IncTransportDrop(transportName, "publish_error")
		return fmt.Errorf("publish %s: %w", c.name, err)
	}
	return nil
}

func (c *Channel) AddMessageHandler(h transport.MessageHandler) { c.handlers.Add(h) }

func (c *Channel) RemoveMessageHandler(h transport.MessageHandler) { c.handlers.Remove(h) }

// Name returns the pub/sub channel name.
func (c *Channel) Name() string { return c.name }

// Ping checks the underlying client.
func (c *Channel) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close unsubscribes and waits for the receive loop. The client stays open.
// Called from a handler, it returns without waiting; Done reports the exit.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.pubsub.Close()
		if !c.delivery.Active() {
			<-c.done
		}
	})
	return err
}

// Done is closed once the receive loop has exited.
func (c *Channel) Done() <-chan struct{} { return c.done }

var _ transport.Target = (*Channel)(nil)
