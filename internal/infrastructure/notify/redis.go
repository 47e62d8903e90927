// Package notify fans watch events out across processes. Each instance
// publishes committed snapshots to Redis pub/sub and replays snapshots
// published by its peers into the local hub.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/redis/go-redis/v9"

	"kedai/internal/core/id"
	"kedai/internal/core/watch"
	"kedai/pkg/logger"
)

// channelPrefix namespaces the pub/sub channels; the topic is appended.
const channelPrefix = "kedai.watch."

// Compile-time check that RedisBridge implements watch.Bridge.
var _ watch.Bridge = (*RedisBridge)(nil)

// envelope is the wire format. Snapshot is zstd-compressed; Origin lets
// an instance skip its own broadcasts when they echo back.
type envelope struct {
	Origin   string    `json:"origin"`
	Topic    string    `json:"topic"`
	At       time.Time `json:"at"`
	Snapshot []byte    `json:"snapshot"`
}

// RedisBridge connects a watch.Hub to Redis pub/sub.
type RedisBridge struct {
	client  *redis.Client
	hub     *watch.Hub
	origin  string
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewRedisBridge creates a bridge. Call Run to start replaying peer
// events, and Attach the bridge to the hub for outbound broadcasts.
func NewRedisBridge(client *redis.Client, hub *watch.Hub) (*RedisBridge, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &RedisBridge{
		client:  client,
		hub:     hub,
		origin:  id.New().String(),
		encoder: encoder,
		decoder: decoder,
	}, nil
}

// Broadcast publishes one event to the topic's channel.
func (b *RedisBridge) Broadcast(ctx context.Context, ev watch.Event) error {
	payload, err := b.encode(ev)
	if err != nil {
		return err
	}

	if err := b.client.Publish(ctx, channelPrefix+ev.Topic, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Topic, err)
	}
	return nil
}

// Run consumes peer broadcasts until ctx is cancelled. Events published
// by this instance are skipped; everything else is delivered to local
// listeners only, so a replayed event is never re-broadcast.
func (b *RedisBridge) Run(ctx context.Context) error {
	pubsub := b.client.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	// Fail fast when Redis is unreachable instead of looping silently.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s*: %w", channelPrefix, err)
	}

	logger.Info(ctx, "watch bridge started", "origin", b.origin)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			ev, origin, err := b.decode([]byte(msg.Payload))
			if err != nil {
				logger.Warn(ctx, "dropping malformed watch event",
					"channel", msg.Channel,
					"error", err,
				)
				continue
			}
			if origin == b.origin {
				continue
			}
			b.hub.Deliver(ev)
		}
	}
}

func (b *RedisBridge) encode(ev watch.Event) ([]byte, error) {
	env := envelope{
		Origin:   b.origin,
		Topic:    ev.Topic,
		At:       ev.At,
		Snapshot: b.encoder.EncodeAll(ev.Snapshot, nil),
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return payload, nil
}

func (b *RedisBridge) decode(payload []byte) (watch.Event, string, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return watch.Event{}, "", fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Topic == "" {
		return watch.Event{}, "", fmt.Errorf("envelope has no topic")
	}

	snapshot, err := b.decoder.DecodeAll(env.Snapshot, nil)
	if err != nil {
		return watch.Event{}, "", fmt.Errorf("decompress snapshot: %w", err)
	}

	return watch.Event{Topic: env.Topic, Snapshot: snapshot, At: env.At}, env.Origin, nil
}
