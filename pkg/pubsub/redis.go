package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/openblog/microblog/pkg/log"
)

// subscriberBuffer is the capacity of the event channel handed to a
// subscriber. When the subscriber falls behind, further events are dropped
// rather than blocking the reader goroutine.
const subscriberBuffer = 100

// RedisPubSub implements PubSub over Redis pub/sub channels.
type RedisPubSub struct {
	client        *redis.Client
	subscriptions map[string]*redis.PubSub
	mu            sync.Mutex
}

// NewRedisPubSub creates a Redis-backed PubSub and verifies connectivity.
func NewRedisPubSub(cfg RedisConfig) (*RedisPubSub, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisPubSub{
		client:        client,
		subscriptions: make(map[string]*redis.PubSub),
	}, nil
}

// Publish sends an event to the given channel.
func (r *RedisPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return r.client.Publish(ctx, channel, data).Err()
}

// Subscribe subscribes to a single channel. The returned channel is closed
// when ctx is cancelled or the subscription is closed.
func (r *RedisPubSub) Subscribe(ctx context.Context, channel string) (<-chan *Event, error) {
	return r.track(ctx, channel, r.client.Subscribe(ctx, channel))
}

// SubscribePattern subscribes to every channel matching a glob pattern, e.g.
// "follow:*:created".
func (r *RedisPubSub) SubscribePattern(ctx context.Context, pattern string) (<-chan *Event, error) {
	return r.track(ctx, pattern, r.client.PSubscribe(ctx, pattern))
}

func (r *RedisPubSub) track(ctx context.Context, key string, sub *redis.PubSub) (<-chan *Event, error) {
	r.mu.Lock()
	if existing, ok := r.subscriptions[key]; ok {
		existing.Close()
	}
	r.subscriptions[key] = sub
	r.mu.Unlock()

	eventCh := make(chan *Event, subscriberBuffer)
	go r.forward(ctx, key, sub, eventCh)
	return eventCh, nil
}

// Unsubscribe closes the subscription for a channel or pattern.
func (r *RedisPubSub) Unsubscribe(ctx context.Context, channel string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subscriptions[channel]
	if !ok {
		return nil
	}
	delete(r.subscriptions, channel)
	return sub.Close()
}

// Close closes all subscriptions and the Redis client.
func (r *RedisPubSub) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, sub := range r.subscriptions {
		sub.Close()
	}
	r.subscriptions = make(map[string]*redis.PubSub)

	return r.client.Close()
}

// forward decodes raw Redis messages into events and delivers them to the
// subscriber channel until the subscription closes or ctx is cancelled.
func (r *RedisPubSub) forward(ctx context.Context, key string, sub *redis.PubSub, eventCh chan<- *Event) {
	defer close(eventCh)

	l := log.L()
	msgCh := sub.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgCh:
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				l.Warn().Err(err).Str("channel", key).Msg("dropping undecodable pubsub message")
				continue
			}

			select {
			case eventCh <- &event:
			case <-ctx.Done():
				return
			default:
				l.Warn().Str("channel", key).Str("event_type", event.Type).Msg("subscriber full, dropping event")
			}
		}
	}
}
