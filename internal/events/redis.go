package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ayusman/touchless/internal/gesture"
)

// DefaultChannel is the redis channel events are published on.
const DefaultChannel = "touchless:gestures"

// RedisPublisher publishes events as JSON messages on a redis channel.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

// NewRedisPublisher connects to redis and verifies the connection.
func NewRedisPublisher(ctx context.Context, opts *redis.Options, channel string) (*RedisPublisher, error) {
	if channel == "" {
		channel = DefaultChannel
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}
	return &RedisPublisher{rdb: rdb, channel: channel}, nil
}

// Channel returns the channel name.
func (p *RedisPublisher) Channel() string {
	return p.channel
}

// Publish sends ev to the channel.
func (p *RedisPublisher) Publish(ctx context.Context, ev gesture.Event) error {
	data, err := encode(ev)
	if err != nil {
		return err
	}
	if err := p.rdb.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", p.channel, err)
	}
	return nil
}

// Close releases the redis connection.
func (p *RedisPublisher) Close() error {
	return p.rdb.Close()
}

// Subscription receives events published by a RedisPublisher.
type Subscription struct {
	pubsub *redis.PubSub
	events chan Message
	errs   chan error
}

// Subscribe listens on channel until ctx is done or Close is called.
// Malformed payloads are reported on Errors and skipped.
func Subscribe(ctx context.Context, opts *redis.Options, channel string) (*Subscription, error) {
	if channel == "" {
		channel = DefaultChannel
	}
	rdb := redis.NewClient(opts)
	pubsub := rdb.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		rdb.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", channel, err)
	}

	s := &Subscription{
		pubsub: pubsub,
		events: make(chan Message, 16),
		errs:   make(chan error, 1),
	}

	go func() {
		defer rdb.Close()
		defer close(s.events)
		for msg := range pubsub.Channel() {
			var m Message
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				select {
				case s.errs <- fmt.Errorf("decode message: %w", err):
				default:
				}
				continue
			}
			select {
			case s.events <- m:
			case <-ctx.Done():
				return
			}
		}
	}()

	return s, nil
}

// Events returns the message stream. It is closed when the subscription ends.
func (s *Subscription) Events() <-chan Message {
	return s.events
}

// Errors reports decode failures.
func (s *Subscription) Errors() <-chan error {
	return s.errs
}

// Close ends the subscription.
func (s *Subscription) Close() error {
	return s.pubsub.Close()
}
