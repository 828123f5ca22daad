// File: adapters/redis.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Redis-backed relay for multi-instance deployments: events broadcast on one
// server instance are published to a shared pub/sub channel and re-delivered
// to the local registries of every other instance. The protocol engine knows
// nothing about this; the relay is plain host-side code built on the
// registry surface.

package adapters

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/sugawarayuuta/sonnet"

	"github.com/momentics/reactor-ws/api"
	"github.com/momentics/reactor-ws/server"
)

// DefaultRelayChannel is the pub/sub channel used when none is configured.
const DefaultRelayChannel = "reactor-ws-relay"

// relayEnvelope is the wire format on the pub/sub channel. Origin lets an
// instance skip its own publications.
type relayEnvelope struct {
	Origin string `json:"origin"`
	Data   string `json:"data"`
}

// RedisRelay fans text events out across server instances.
type RedisRelay struct {
	client  *redis.Client
	sub     *redis.PubSub
	channel string
	id      string
	reg     *server.Registry
	log     *slog.Logger
	cancel  context.CancelFunc
}

// NewRedisRelay connects to Redis, subscribes to the relay channel and
// starts re-delivering remote events into reg. An empty channel selects
// DefaultRelayChannel.
func NewRedisRelay(ctx context.Context, opts *redis.Options, channel string, reg *server.Registry, log *slog.Logger) (*RedisRelay, error) {
	if channel == "" {
		channel = DefaultRelayChannel
	}
	if log == nil {
		log = slog.Default()
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	r := &RedisRelay{
		client:  client,
		sub:     client.Subscribe(ctx, channel),
		channel: channel,
		id:      relayID(),
		reg:     reg,
		log:     log,
		cancel:  cancel,
	}
	go r.receive(ctx)
	return r, nil
}

// Broadcast delivers data to every local connection and publishes it for
// the other instances.
func (r *RedisRelay) Broadcast(ctx context.Context, data string) error {
	r.reg.ForEach(func(c api.Conn) {
		if err := c.SendText(data); err != nil {
			r.log.Debug("relay local send failed", "conn", c.ID(), "err", err)
		}
	})
	payload, err := sonnet.Marshal(relayEnvelope{Origin: r.id, Data: data})
	if err != nil {
		return fmt.Errorf("relay encode: %w", err)
	}
	return r.client.Publish(ctx, r.channel, payload).Err()
}

// receive re-delivers publications from other instances to the local
// registry until the relay is closed.
func (r *RedisRelay) receive(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-r.sub.Channel():
			if !ok {
				return
			}
			var env relayEnvelope
			if err := sonnet.Unmarshal([]byte(msg.Payload), &env); err != nil {
				r.log.Warn("relay decode failed", "err", err)
				continue
			}
			if env.Origin == r.id {
				continue
			}
			r.reg.ForEach(func(c api.Conn) {
				if err := c.SendText(env.Data); err != nil {
					r.log.Debug("relay remote send failed", "conn", c.ID(), "err", err)
				}
			})
		}
	}
}

// Close stops the receive loop and releases the Redis resources.
func (r *RedisRelay) Close() error {
	r.cancel()
	_ = r.sub.Close()
	return r.client.Close()
}

func relayID() string {
	var buf [12]byte
	rand.Read(buf[:])
	return hex.EncodeToString(buf[:])
}
