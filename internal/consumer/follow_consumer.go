package consumer

import (
	"context"
	"fmt"

	"github.com/openblog/microblog/internal/repository"
	"github.com/openblog/microblog/internal/store"
	"github.com/openblog/microblog/pkg/log"
	"github.com/openblog/microblog/pkg/pubsub"
)

// followEventPayload is the payload carried by follow.created/follow.removed
// events. The event subject is the followed user.
type followEventPayload struct {
	FollowerID string `json:"follower_id"`
}

// FollowEventConsumer keeps the cached follow counts in sync with the
// database by consuming follow events from the bus. The conditional
// increment/decrement in the service only runs on the instance that performed
// the mutation; the consumer re-reads the authoritative counts so every
// instance sharing the cache converges.
type FollowEventConsumer struct {
	bus     pubsub.Subscriber
	counts  store.CountStore
	follows repository.FollowRepository
	doneCh  chan struct{}
}

// NewFollowEventConsumer creates a new follow-event consumer.
func NewFollowEventConsumer(bus pubsub.Subscriber, counts store.CountStore, follows repository.FollowRepository) *FollowEventConsumer {
	return &FollowEventConsumer{
		bus:     bus,
		counts:  counts,
		follows: follows,
		doneCh:  make(chan struct{}),
	}
}

// Start subscribes to the follow event patterns and begins consuming in a
// background goroutine. The consumer stops when ctx is cancelled.
func (c *FollowEventConsumer) Start(ctx context.Context) error {
	created, err := c.bus.SubscribePattern(ctx, pubsub.PatternEntity("follow", "created"))
	if err != nil {
		return fmt.Errorf("failed to subscribe to follow.created: %w", err)
	}
	removed, err := c.bus.SubscribePattern(ctx, pubsub.PatternEntity("follow", "removed"))
	if err != nil {
		return fmt.Errorf("failed to subscribe to follow.removed: %w", err)
	}

	l := log.L()
	l.Info().Msg("follow event consumer started")
	go c.run(ctx, created, removed)

	return nil
}

// Done returns a channel that is closed when the consumer has fully stopped.
func (c *FollowEventConsumer) Done() <-chan struct{} {
	return c.doneCh
}

func (c *FollowEventConsumer) run(ctx context.Context, created, removed <-chan *pubsub.Event) {
	defer close(c.doneCh)

	for created != nil || removed != nil {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-created:
			if !ok {
				created = nil
				continue
			}
			c.handle(ctx, event)
		case event, ok := <-removed:
			if !ok {
				removed = nil
				continue
			}
			c.handle(ctx, event)
		}
	}
}

// handle re-reads both affected counts from the database and writes them into
// the cache. The subject of a follow event is the followed user.
func (c *FollowEventConsumer) handle(ctx context.Context, event *pubsub.Event) {
	l := log.L()

	if event.Subject == "" {
		l.Warn().Str("event_type", event.Type).Msg("follow event without subject, skipping")
		return
	}

	var payload followEventPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		l.Warn().Err(err).Str("event_type", event.Type).Msg("failed to decode follow event payload")
		return
	}

	c.sync(ctx, store.FollowersCountKey(event.Subject), func() (int64, error) {
		return c.follows.CountFollowers(ctx, event.Subject)
	})

	if payload.FollowerID != "" {
		c.sync(ctx, store.FollowedCountKey(payload.FollowerID), func() (int64, error) {
			return c.follows.CountFollowed(ctx, payload.FollowerID)
		})
	}
}

func (c *FollowEventConsumer) sync(ctx context.Context, key string, fromDB func() (int64, error)) {
	l := log.L()

	count, err := fromDB()
	if err != nil {
		l.Error().Err(err).Str("key", key).Msg("failed to read count from db")
		return
	}
	if err := c.counts.SetCount(ctx, key, count); err != nil {
		l.Error().Err(err).Str("key", key).Msg("failed to write count to cache")
	}
}
